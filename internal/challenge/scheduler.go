/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package challenge

import (
	"sort"
	"sync"

	"github.com/elyanlabs/rustchain-trust/internal/util"
)

// Pair assigns one validator to challenge another for a round.
type Pair struct {
	Challenger string
	Target     string
}

// Scheduler produces round-robin challenge assignments. The target offset
// walks through 1..N-1 as rounds advance, so over N-1 consecutive rounds
// every validator challenges every other validator exactly once.
type Scheduler struct {
	mu    sync.Mutex
	round int64
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Round returns the current round number, starting at zero.
func (s *Scheduler) Round() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// AdvanceRound moves to the next round and returns it.
func (s *Scheduler) AdvanceRound() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.round++
	return s.round
}

// Assign pairs every validator with a target for the current round. The
// validator list is sorted first so every node computes the same pairing
// regardless of input order.
func (s *Scheduler) Assign(validators []string) ([]Pair, error) {
	if len(validators) < 2 {
		return nil, ErrTooFewValidators
	}
	seen := util.NewSet[string]()
	for _, v := range validators {
		if seen.Has(v) {
			return nil, ErrDuplicateValidator
		}
		seen.Add(v)
	}

	ordered := make([]string, len(validators))
	copy(ordered, validators)
	sort.Strings(ordered)

	n := int64(len(ordered))
	offset := 1 + s.Round()%(n-1)

	pairs := make([]Pair, 0, n)
	for i, challenger := range ordered {
		target := ordered[(int64(i)+offset)%n]
		pairs = append(pairs, Pair{Challenger: challenger, Target: target})
	}
	return pairs, nil
}
