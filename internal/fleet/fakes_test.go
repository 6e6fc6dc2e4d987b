/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package fleet

import (
	"context"

	"github.com/elyanlabs/rustchain-trust/internal/domain"
	"github.com/elyanlabs/rustchain-trust/internal/domain/model"
)

type memSignalRepo struct {
	signals []*model.FleetSignal
}

func (r *memSignalRepo) Put(_ context.Context, sig *model.FleetSignal) error {
	r.signals = append(r.signals, sig)
	return nil
}

func (r *memSignalRepo) ListByEpoch(_ context.Context, epoch int64) ([]*model.FleetSignal, error) {
	var out []*model.FleetSignal
	for _, s := range r.signals {
		if s.Epoch == epoch {
			out = append(out, s)
		}
	}
	return out, nil
}

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
