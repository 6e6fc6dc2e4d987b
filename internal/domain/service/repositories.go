/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package service

import (
	"context"

	"github.com/elyanlabs/rustchain-trust/internal/domain/model"
)

// FleetSignalRepository stores the derived attestation signals, one row per
// (miner, epoch). Later submissions in the same epoch replace earlier ones.
type FleetSignalRepository interface {
	Put(ctx context.Context, sig *model.FleetSignal) error
	ListByEpoch(ctx context.Context, epoch int64) ([]*model.FleetSignal, error)
}

// FleetScoreRepository stores per-epoch coordination scores.
type FleetScoreRepository interface {
	Put(ctx context.Context, score *model.FleetScore) error
	Get(ctx context.Context, miner string, epoch int64) (*model.FleetScore, error)
	ListByEpoch(ctx context.Context, epoch int64) ([]*model.FleetScore, error)
	// SetEffectiveMultiplier records the post-decay reward weight on an
	// existing score row. Returns domain.ErrNotFound when no row exists.
	SetEffectiveMultiplier(ctx context.Context, miner string, epoch int64, multiplier float64) error
}

// BucketPressureRepository stores per-epoch bucket population snapshots.
type BucketPressureRepository interface {
	Put(ctx context.Context, bp *model.BucketPressure) error
	ListByEpoch(ctx context.Context, epoch int64) ([]*model.BucketPressure, error)
}

// HardwareProfileRepository stores registered hardware profiles.
type HardwareProfileRepository interface {
	Upsert(ctx context.Context, profile *model.HardwareProfile) error
	// FindByValidator returns (nil, nil) when the validator never registered.
	FindByValidator(ctx context.Context, validator string) (*model.HardwareProfile, error)
}
