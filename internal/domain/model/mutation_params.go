/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// SerialType identifies which hardware serial a challenge round asks for.
type SerialType string

const (
	SerialOpenFirmware SerialType = "openfirmware"
	SerialGPU          SerialType = "gpu"
	SerialStorage      SerialType = "storage"
	SerialPlatform     SerialType = "platform"
)

// SerialTypes is the rotation order used by the mutation-derived serial selector.
var SerialTypes = []SerialType{SerialOpenFirmware, SerialGPU, SerialStorage, SerialPlatform}

// MutationParams is one round's test configuration. All parties holding the
// same (genesis seed, block hash, validator id, epoch) derive identical values.
type MutationParams struct {
	CacheStride       uint32     `cbor:"0,keyasint"`
	CacheIterations   uint32     `cbor:"1,keyasint"`
	MemoryPatternSeed uint32     `cbor:"2,keyasint"`
	MemorySizeKB      uint32     `cbor:"3,keyasint"`
	TimingMinTicks    uint32     `cbor:"4,keyasint"`
	TimingMaxTicks    uint32     `cbor:"5,keyasint"`
	PipelineDepth     uint32     `cbor:"6,keyasint"`
	ThermalMinC       int32      `cbor:"7,keyasint"`
	ThermalMaxC       int32      `cbor:"8,keyasint"`
	JitterMinPercent  uint32     `cbor:"9,keyasint"`
	JitterMaxPercent  uint32     `cbor:"10,keyasint"`
	HashRounds        uint32     `cbor:"11,keyasint"`
	SerialType        SerialType `cbor:"12,keyasint"`
}

// DefaultMutationParams returns the baseline configuration before mutation.
func DefaultMutationParams() MutationParams {
	return MutationParams{
		CacheStride:       64,
		CacheIterations:   256,
		MemoryPatternSeed: 0,
		MemorySizeKB:      1024,
		TimingMinTicks:    100,
		TimingMaxTicks:    500000,
		PipelineDepth:     1000,
		ThermalMinC:       15,
		ThermalMaxC:       85,
		JitterMinPercent:  5,
		JitterMaxPercent:  500,
		HashRounds:        1000,
		SerialType:        SerialOpenFirmware,
	}
}

// ToBytes serializes the parameters for hashing. The layout is fixed:
// ten big-endian uint32 fields followed by the serial type name.
func (m *MutationParams) ToBytes() []byte {
	buf := make([]byte, 0, 40+len(m.SerialType))
	for _, v := range []uint32{
		m.CacheStride,
		m.CacheIterations,
		m.MemoryPatternSeed,
		m.MemorySizeKB,
		m.TimingMinTicks,
		m.TimingMaxTicks,
		m.PipelineDepth,
		m.JitterMinPercent,
		m.JitterMaxPercent,
		m.HashRounds,
	} {
		buf = binary.BigEndian.AppendUint32(buf, v)
	}
	return append(buf, []byte(m.SerialType)...)
}

// Hash returns the deterministic content hash of the parameters.
func (m *MutationParams) Hash() string {
	sum := sha256.Sum256(m.ToBytes())
	return hex.EncodeToString(sum[:])[:16]
}
