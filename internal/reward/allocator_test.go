/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package reward

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elyanlabs/rustchain-trust/internal/config"
	"github.com/elyanlabs/rustchain-trust/internal/domain"
	"github.com/elyanlabs/rustchain-trust/internal/domain/model"
)

type scoreKey struct {
	miner string
	epoch int64
}

type memScoreRepo struct {
	scores map[scoreKey]*model.FleetScore
}

func newMemScoreRepo() *memScoreRepo {
	return &memScoreRepo{scores: map[scoreKey]*model.FleetScore{}}
}

func (r *memScoreRepo) Put(_ context.Context, s *model.FleetScore) error {
	cp := *s
	r.scores[scoreKey{s.Miner, s.Epoch}] = &cp
	return nil
}

func (r *memScoreRepo) Get(_ context.Context, miner string, epoch int64) (*model.FleetScore, error) {
	return r.scores[scoreKey{miner, epoch}], nil
}

func (r *memScoreRepo) ListByEpoch(_ context.Context, epoch int64) ([]*model.FleetScore, error) {
	var out []*model.FleetScore
	for k, s := range r.scores {
		if k.epoch == epoch {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memScoreRepo) SetEffectiveMultiplier(_ context.Context, miner string, epoch int64, multiplier float64) error {
	s, ok := r.scores[scoreKey{miner, epoch}]
	if !ok {
		return domain.ErrNotFound
	}
	s.EffectiveMultiplier = multiplier
	return nil
}

type memPressureRepo struct {
	rows []*model.BucketPressure
}

func (r *memPressureRepo) Put(_ context.Context, bp *model.BucketPressure) error {
	r.rows = append(r.rows, bp)
	return nil
}

func (r *memPressureRepo) ListByEpoch(_ context.Context, epoch int64) ([]*model.BucketPressure, error) {
	var out []*model.BucketPressure
	for _, bp := range r.rows {
		if bp.Epoch == epoch {
			out = append(out, bp)
		}
	}
	return out, nil
}

func testAllocator(mode config.BucketMode) (*Allocator, *memScoreRepo, *memPressureRepo) {
	cfg := config.DefaultFleetConfig()
	cfg.BucketMode = mode
	cfg.Logger = log.New(io.Discard, "", 0)
	scores := newMemScoreRepo()
	pressure := &memPressureRepo{}
	return NewAllocator(cfg, scores, pressure), scores, pressure
}

func TestEqualSplitProtectsVintageBucket(t *testing.T) {
	a, _, _ := testAllocator(config.BucketModeEqualSplit)

	miners := []Miner{
		{ID: "g3-powerbook", Arch: "ppc", BaseMultiplier: 1.8},
		{ID: "g4-powerbook", Arch: "ppc", BaseMultiplier: 2.5},
		{ID: "g5-powermac", Arch: "ppc", BaseMultiplier: 2.0},
	}
	for i := 0; i < 500; i++ {
		miners = append(miners, Miner{
			ID: fmt.Sprintf("cloud-%03d", i), Arch: "x86_64", BaseMultiplier: 1.0,
		})
	}

	alloc, err := a.Allocate(context.Background(), 1, 1_500_000, miners)
	require.NoError(t, err)

	// two buckets, 750000 each regardless of population
	assert.Equal(t, int64(297_619), alloc["g4-powerbook"]) // 2.5 of 6.3 combined weight
	assert.Equal(t, int64(214_285), alloc["g3-powerbook"])
	for i := 0; i < 500; i++ {
		assert.Equal(t, int64(1500), alloc[fmt.Sprintf("cloud-%03d", i)])
	}

	var total int64
	for _, v := range alloc {
		total += v
	}
	assert.Equal(t, int64(1_500_000), total)
}

func TestEqualSplitDustGoesToLastMember(t *testing.T) {
	a, _, _ := testAllocator(config.BucketModeEqualSplit)

	miners := []Miner{
		{ID: "m-a", Arch: "ppc", BaseMultiplier: 1.0},
		{ID: "m-b", Arch: "ppc", BaseMultiplier: 1.0},
		{ID: "m-c", Arch: "ppc", BaseMultiplier: 1.0},
	}

	alloc, err := a.Allocate(context.Background(), 1, 100, miners)
	require.NoError(t, err)
	assert.Equal(t, int64(33), alloc["m-a"])
	assert.Equal(t, int64(33), alloc["m-b"])
	assert.Equal(t, int64(34), alloc["m-c"])
}

func TestAllocateAppliesFleetDecay(t *testing.T) {
	a, scores, _ := testAllocator(config.BucketModeEqualSplit)
	ctx := context.Background()

	require.NoError(t, scores.Put(ctx, &model.FleetScore{Miner: "farm", Epoch: 1, FleetScore: 1.0}))

	miners := []Miner{
		{ID: "farm", Arch: "x86_64", BaseMultiplier: 1.0},
		{ID: "honest", Arch: "x86_64", BaseMultiplier: 1.0},
	}
	alloc, err := a.Allocate(ctx, 1, 1000, miners)
	require.NoError(t, err)

	// fully flagged decays to the 0.6 floor: 0.6 of 1.6 total weight
	assert.Equal(t, int64(375), alloc["farm"])
	assert.Equal(t, int64(625), alloc["honest"])

	stored, err := scores.Get(ctx, "farm", 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, stored.EffectiveMultiplier, 1e-9)
}

func TestDecayedWeightKeepsFloor(t *testing.T) {
	a, _, _ := testAllocator(config.BucketModeEqualSplit)

	assert.InDelta(t, 1.0, a.DecayedWeight(1.0, 0), 1e-9)
	assert.InDelta(t, 0.8, a.DecayedWeight(1.0, 0.5), 1e-9)
	assert.InDelta(t, 0.6, a.DecayedWeight(1.0, 1.0), 1e-9)
	assert.InDelta(t, 1.5, a.DecayedWeight(2.5, 1.0), 1e-9)
}

func TestPressureModeFavorsEmptyBuckets(t *testing.T) {
	a, _, pressure := testAllocator(config.BucketModePressure)

	var miners []Miner
	for i := 0; i < 6; i++ {
		miners = append(miners, Miner{ID: fmt.Sprintf("pc-%d", i), Arch: "x86_64", BaseMultiplier: 1.0})
	}
	miners = append(miners,
		Miner{ID: "pi-0", Arch: "armv7", BaseMultiplier: 1.0},
		Miner{ID: "pi-1", Arch: "aarch64", BaseMultiplier: 1.0},
	)

	alloc, err := a.Allocate(context.Background(), 1, 730_000, miners)
	require.NoError(t, err)

	// ideal 4 per bucket: modern at 1.5x ideal weighs 0.8, arm at 0.5x weighs 1.25
	assert.Equal(t, int64(80_000), alloc["pc-0"])
	assert.Equal(t, int64(125_000), alloc["pi-0"])

	var total int64
	for _, v := range alloc {
		total += v
	}
	assert.Equal(t, int64(730_000), total)

	rows, err := pressure.ListByEpoch(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	byBucket := map[string]*model.BucketPressure{}
	for _, r := range rows {
		byBucket[r.Bucket] = r
	}
	assert.InDelta(t, 0.8, byBucket[BucketModern].Multiplier, 1e-9)
	assert.InDelta(t, 1.25, byBucket[BucketARM].Multiplier, 1e-9)
}

func TestAllocateEdgeCases(t *testing.T) {
	a, _, _ := testAllocator(config.BucketModeEqualSplit)
	ctx := context.Background()

	alloc, err := a.Allocate(ctx, 1, 1000, nil)
	require.NoError(t, err)
	assert.Empty(t, alloc)

	_, err = a.Allocate(ctx, 1, -1, []Miner{{ID: "m", Arch: "ppc", BaseMultiplier: 1}})
	assert.Error(t, err)

	// zero pot allocates zero everywhere
	alloc, err = a.Allocate(ctx, 1, 0, []Miner{
		{ID: "m-a", Arch: "ppc", BaseMultiplier: 1},
		{ID: "m-b", Arch: "amd64", BaseMultiplier: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), alloc["m-a"]+alloc["m-b"])
}
