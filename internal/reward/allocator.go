/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package reward

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/elyanlabs/rustchain-trust/internal/config"
	"github.com/elyanlabs/rustchain-trust/internal/domain"
	"github.com/elyanlabs/rustchain-trust/internal/domain/model"
	"github.com/elyanlabs/rustchain-trust/internal/domain/service"
)

// ErrAllocationImbalance means an allocation did not sum to the pot. The
// caller must treat it as fatal; a ledger that leaks or mints units is
// worse than one that halts.
var ErrAllocationImbalance = errors.New("allocation does not sum to the pot")

// Miner is one reward claimant for an epoch.
type Miner struct {
	ID             string
	Arch           string
	BaseMultiplier float64
}

// Allocator splits integer reward pots across buckets and miners. Every
// split is exact: fractional remainders go to the last member in sorted
// order, so all nodes place the dust identically.
type Allocator struct {
	cfg      *config.FleetConfig
	scores   service.FleetScoreRepository
	pressure service.BucketPressureRepository
	logger   *log.Logger
}

func NewAllocator(cfg *config.FleetConfig, scores service.FleetScoreRepository, pressure service.BucketPressureRepository) *Allocator {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Allocator{cfg: cfg, scores: scores, pressure: pressure, logger: logger}
}

// DecayedWeight applies the fleet penalty to a miner's base multiplier.
// Even a fully flagged miner keeps the configured floor fraction, false
// positives must sting, not destroy.
func (a *Allocator) DecayedWeight(base, fleetScore float64) float64 {
	return math.Max(base*a.cfg.FloorFraction, base*(1-fleetScore*a.cfg.DecayCoeff))
}

// Allocate splits pot across the epoch's miners and returns the per-miner
// amounts. Fleet scores decay each miner's weight and the configured bucket
// mode decides how buckets share the pot. The decayed weights are written
// back to the score rows and the bucket pressure snapshot is persisted.
func (a *Allocator) Allocate(ctx context.Context, epoch int64, pot int64, miners []Miner) (map[string]int64, error) {
	if pot < 0 {
		return nil, fmt.Errorf("negative pot %d", pot)
	}
	if len(miners) == 0 {
		return map[string]int64{}, nil
	}

	weights, err := a.decayedWeights(ctx, epoch, miners)
	if err != nil {
		return nil, err
	}

	buckets := map[string][]Miner{}
	for _, m := range miners {
		b := ClassifyArch(m.Arch)
		buckets[b] = append(buckets[b], m)
	}
	names := make([]string, 0, len(buckets))
	for b := range buckets {
		names = append(names, b)
	}
	sort.Strings(names)

	ideal := float64(len(miners)) / float64(len(buckets))
	for _, b := range names {
		bp := &model.BucketPressure{
			Epoch:      epoch,
			Bucket:     b,
			Population: len(buckets[b]),
			Ideal:      ideal,
			Multiplier: PressureMultiplier(a.cfg, len(buckets[b]), ideal),
		}
		if err := a.pressure.Put(ctx, bp); err != nil {
			return nil, fmt.Errorf("storing bucket pressure for %s: %w", b, err)
		}
	}

	var alloc map[string]int64
	switch a.cfg.BucketMode {
	case config.BucketModePressure:
		alloc = a.allocatePressure(pot, miners, weights, buckets, ideal)
	default:
		alloc = a.allocateEqualSplit(pot, buckets, names, weights)
	}

	var total int64
	for _, v := range alloc {
		total += v
	}
	if total != pot {
		return nil, fmt.Errorf("%w: allocated %d of %d", ErrAllocationImbalance, total, pot)
	}

	a.logger.Printf("epoch %d: allocated %d across %d miners in %d buckets (%s)",
		epoch, pot, len(miners), len(buckets), a.cfg.BucketMode)
	return alloc, nil
}

// allocateEqualSplit gives every bucket the same share of the pot, then
// splits each share pro rata by decayed weight. Three PowerBooks on a shelf
// collectively earn what five hundred cloud instances do.
func (a *Allocator) allocateEqualSplit(pot int64, buckets map[string][]Miner, names []string, weights map[string]float64) map[string]int64 {
	alloc := map[string]int64{}

	share := pot / int64(len(names))
	for i, b := range names {
		bucketPot := share
		if i == len(names)-1 {
			bucketPot = pot - share*int64(len(names)-1)
		}
		splitProRata(alloc, bucketPot, buckets[b], weights)
	}
	return alloc
}

// allocatePressure weights every miner by bucket crowding and splits the
// whole pot over the adjusted weights in one pass.
func (a *Allocator) allocatePressure(pot int64, miners []Miner, weights map[string]float64, buckets map[string][]Miner, ideal float64) map[string]int64 {
	multipliers := map[string]float64{}
	for b, members := range buckets {
		multipliers[b] = PressureMultiplier(a.cfg, len(members), ideal)
	}

	adjusted := map[string]float64{}
	for _, m := range miners {
		adjusted[m.ID] = weights[m.ID] * multipliers[ClassifyArch(m.Arch)]
	}

	alloc := map[string]int64{}
	splitProRata(alloc, pot, miners, adjusted)
	return alloc
}

// splitProRata divides amount over the members by weight, flooring each
// share and handing the remainder to the last member by id. A bucket whose
// members all decayed to zero weight splits evenly instead.
func splitProRata(alloc map[string]int64, amount int64, members []Miner, weights map[string]float64) {
	if len(members) == 0 {
		return
	}
	ordered := make([]Miner, len(members))
	copy(ordered, members)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	var totalWeight float64
	for _, m := range ordered {
		totalWeight += weights[m.ID]
	}

	var given int64
	for i, m := range ordered {
		if i == len(ordered)-1 {
			alloc[m.ID] = amount - given
			break
		}
		var share int64
		if totalWeight > 0 {
			// nudge past float error so exact fractions floor cleanly
			share = int64(math.Floor(weights[m.ID]/totalWeight*float64(amount) + 1e-9))
		} else {
			share = amount / int64(len(ordered))
		}
		alloc[m.ID] = share
		given += share
	}
}

// decayedWeights resolves each miner's fleet score and writes the decayed
// multiplier back onto the score row. Miners without a score row this epoch
// decay by nothing.
func (a *Allocator) decayedWeights(ctx context.Context, epoch int64, miners []Miner) (map[string]float64, error) {
	weights := map[string]float64{}
	for _, m := range miners {
		score, err := a.scores.Get(ctx, m.ID, epoch)
		if err != nil {
			return nil, fmt.Errorf("loading fleet score for %s: %w", m.ID, err)
		}
		var fleetScore float64
		if score != nil {
			fleetScore = score.FleetScore
		}
		w := a.DecayedWeight(m.BaseMultiplier, fleetScore)
		weights[m.ID] = w

		if err := a.scores.SetEffectiveMultiplier(ctx, m.ID, epoch, w); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("storing effective multiplier for %s: %w", m.ID, err)
		}
	}
	return weights, nil
}
