/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package mutation derives per-round challenge parameters from chain state.
// Every honest node holding the same genesis seed, block hash, validator id
// and epoch counter derives byte-identical parameters, so challenges never
// need to carry a negotiation step. Pre-computing responses is useless
// because the parameters are unknown until the seeding block exists.
package mutation

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/elyanlabs/rustchain-trust/internal/domain/model"
)

// mutation ranges, inclusive on both ends
const (
	strideMin, strideMax         = 32, 512
	iterationsMin, iterationsMax = 128, 1024
	memoryKBMin, memoryKBMax     = 256, 8192
	pipelineMin, pipelineMax     = 500, 5000
	hashRoundsMin, hashRoundsMax = 500, 5000
	jitterMinLow, jitterMinHigh  = 3, 10
)

// Mutator derives MutationParams deterministically and tracks the epoch
// counter that advances once per completed challenge round.
type Mutator struct {
	genesisSeed []byte

	mu      sync.Mutex
	epoch   uint64
	history []string // parameter hashes, oldest first
}

// NewMutator creates a mutator bound to the given genesis seed. A nil seed
// draws a random one, which is only useful for isolated test networks since
// other nodes cannot reproduce its derivations.
func NewMutator(genesisSeed []byte) (*Mutator, error) {
	if genesisSeed == nil {
		genesisSeed = make([]byte, 32)
		if _, err := rand.Read(genesisSeed); err != nil {
			return nil, fmt.Errorf("generating genesis seed: %w", err)
		}
	}
	return &Mutator{genesisSeed: genesisSeed}, nil
}

// Derive computes this epoch's parameters for one validator. Disjoint
// 4-byte windows of the seed drive independent fields, so no field leaks
// information about another.
func (m *Mutator) Derive(blockHash []byte, validatorID string) model.MutationParams {
	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()

	h := sha256.New()
	h.Write(m.genesisSeed)
	h.Write(blockHash)
	h.Write([]byte(validatorID))
	h.Write(binary.BigEndian.AppendUint64(nil, epoch))
	seed := h.Sum(nil)

	p := model.DefaultMutationParams()
	p.CacheStride = selectRange(seed[0:4], strideMin, strideMax)
	p.CacheIterations = selectRange(seed[4:8], iterationsMin, iterationsMax)
	p.MemoryPatternSeed = binary.BigEndian.Uint32(seed[8:12])
	p.MemorySizeKB = selectRange(seed[12:16], memoryKBMin, memoryKBMax)
	p.PipelineDepth = selectRange(seed[16:20], pipelineMin, pipelineMax)
	p.HashRounds = selectRange(seed[20:24], hashRoundsMin, hashRoundsMax)
	p.JitterMinPercent = selectRange(seed[24:28], jitterMinLow, jitterMinHigh)
	p.SerialType = model.SerialTypes[int(seed[28])%len(model.SerialTypes)]

	// scale the accepted timing window with the derived workload
	complexity := p.CacheIterations * p.PipelineDepth / 1000
	p.TimingMinTicks = 100 + complexity
	p.TimingMaxTicks = 500000 + complexity*10

	m.mu.Lock()
	m.history = append(m.history, p.Hash())
	m.mu.Unlock()
	return p
}

// AdvanceEpoch moves to the next mutation epoch and returns it.
func (m *Mutator) AdvanceEpoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	return m.epoch
}

// Epoch returns the current mutation epoch.
func (m *Mutator) Epoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

// History returns the parameter hashes derived so far, oldest first.
func (m *Mutator) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.history))
	copy(out, m.history)
	return out
}

func selectRange(window []byte, min, max uint32) uint32 {
	v := binary.BigEndian.Uint32(window)
	return min + v%(max-min+1)
}
