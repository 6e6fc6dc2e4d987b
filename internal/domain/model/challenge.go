/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"errors"

	"github.com/fxamacker/cbor/v2"
	cose "github.com/veraison/go-cose"

	"github.com/elyanlabs/rustchain-trust/internal/util"
)

var (
	ErrNotSigned        = errors.New("message is not signed")
	ErrPayloadMismatch  = errors.New("signed payload does not match canonical encoding")
	ErrSignatureInvalid = errors.New("signature verification failed")
)

// Challenge is a signed request to prove hardware identity. The target must
// answer with measurements taken under the embedded mutation parameters
// before the deadline passes.
type Challenge struct {
	_           struct{}       `cbor:",toarray"`
	ID          string         // "<height>-<challenger8>-<target8>"
	BlockHeight int64          // block that seeded this round
	BlockHash   []byte         // 32-byte block hash
	Challenger  string         // validator issuing the challenge
	Target      string         // validator expected to respond
	Mutation    MutationParams // this round's derived test configuration
	IssuedAtMS  int64          // unix milliseconds
	ExpiresAtMS int64          // mutation-derived response deadline
	Signature   []byte         `cbor:"-"` // COSE_Sign1 over Canonical(), set after signing
}

// Canonical returns the deterministic byte encoding that is signed and
// verified across the network. The signature itself is excluded.
func (c *Challenge) Canonical() ([]byte, error) {
	return CanonicalMarshal(c)
}

// Sign produces a COSE_Sign1 message over the canonical encoding and stores
// it in c.Signature. The kid header carries the SHA-256 thumbprint of the key.
func (c *Challenge) Sign(key *cose.Key) error {
	raw, err := signCanonical(key, c)
	if err != nil {
		return err
	}
	c.Signature = raw
	return nil
}

// VerifySignature checks c.Signature against the given public key and
// confirms the signed payload matches the canonical encoding.
func (c *Challenge) VerifySignature(key *cose.Key) error {
	return verifyCanonical(key, c.Signature, c)
}

// Dump renders the canonical encoding as indented JSON for logging.
func (c *Challenge) Dump() (string, error) {
	raw, err := c.Canonical()
	if err != nil {
		return "", err
	}
	var decoded any
	if err := cbor.Unmarshal(raw, &decoded); err != nil {
		return "", err
	}
	return util.RenderCBORPretty(decoded)
}

type canonicalMessage interface {
	Canonical() ([]byte, error)
}

func signCanonical(key *cose.Key, m canonicalMessage) ([]byte, error) {
	signer, err := key.Signer()
	if err != nil {
		return nil, err
	}
	alg, err := key.AlgorithmOrDefault()
	if err != nil {
		return nil, err
	}
	kid, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return nil, err
	}

	headers := cose.Headers{
		Protected: cose.ProtectedHeader{
			cose.HeaderLabelAlgorithm: alg,
		},
		Unprotected: cose.UnprotectedHeader{
			cose.HeaderLabelKeyID: kid,
		},
	}

	payload, err := m.Canonical()
	if err != nil {
		return nil, err
	}
	return cose.Sign1(rand.Reader, signer, headers, payload, nil)
}

func verifyCanonical(key *cose.Key, raw []byte, m canonicalMessage) error {
	if len(raw) == 0 {
		return ErrNotSigned
	}
	verifier, err := key.Verifier()
	if err != nil {
		return err
	}

	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(raw); err != nil {
		return err
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return ErrSignatureInvalid
	}

	canonical, err := m.Canonical()
	if err != nil {
		return err
	}
	if !bytes.Equal(msg.Payload, canonical) {
		return ErrPayloadMismatch
	}
	return nil
}
