/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

import (
	"crypto/sha256"
	"encoding/binary"

	cose "github.com/veraison/go-cose"
)

// Response is a signed answer to a Challenge, carrying the measurements the
// target collected under the challenge's mutation parameters.
type Response struct {
	_           struct{} `cbor:",toarray"`
	ChallengeID string
	Responder   string

	// hardware measurements taken with the mutated parameters
	CacheTimingTicks    uint64
	MemoryTimingTicks   uint64
	PipelineTimingTicks uint64
	JitterVariance      uint32 // percent, compared against the mutated bounds
	ThermalCelsius      int32  // negative means no sensor reading
	SerialValue         string // value of the mutation-selected serial type

	// proof of real-time work with the mutated hash round count
	HardwareEntropy []byte
	ProofHash       []byte

	TimestampMS int64
	Signature   []byte `cbor:"-"`
}

// Canonical returns the deterministic byte encoding that is signed and
// verified across the network. The signature itself is excluded.
func (r *Response) Canonical() ([]byte, error) {
	return CanonicalMarshal(r)
}

// Sign produces a COSE_Sign1 message over the canonical encoding and stores
// it in r.Signature.
func (r *Response) Sign(key *cose.Key) error {
	raw, err := signCanonical(key, r)
	if err != nil {
		return err
	}
	r.Signature = raw
	return nil
}

// VerifySignature checks r.Signature against the given public key.
func (r *Response) VerifySignature(key *cose.Key) error {
	return verifyCanonical(key, r.Signature, r)
}

// ComputeProof derives the iterated proof hash for this response under the
// given mutation parameters. The preimage binds the challenge id, the
// responder's hardware entropy and the packed measurements; the iteration
// count comes from the mutation, so a proof computed for a different round
// count can never verify.
func (r *Response) ComputeProof(m *MutationParams, entropy []byte) []byte {
	data := make([]byte, 0, len(r.ChallengeID)+len(entropy)+32+len(r.SerialValue))
	data = append(data, []byte(r.ChallengeID)...)
	data = append(data, entropy...)
	data = binary.BigEndian.AppendUint64(data, r.CacheTimingTicks)
	data = binary.BigEndian.AppendUint64(data, r.MemoryTimingTicks)
	data = binary.BigEndian.AppendUint64(data, r.PipelineTimingTicks)
	data = binary.BigEndian.AppendUint32(data, r.JitterVariance)
	data = binary.BigEndian.AppendUint32(data, uint32(r.ThermalCelsius))
	data = append(data, []byte(r.SerialValue)...)

	result := data
	for i := uint32(0); i < m.HashRounds; i++ {
		sum := sha256.Sum256(result)
		result = sum[:]
	}
	return result
}
