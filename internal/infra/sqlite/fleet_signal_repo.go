/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/elyanlabs/rustchain-trust/internal/domain/model"
)

// FleetSignalRepository handles fleet signal persistence.
type FleetSignalRepository struct {
	db *sql.DB
}

func NewFleetSignalRepository(db *sql.DB) *FleetSignalRepository {
	return &FleetSignalRepository{db: db}
}

// Put stores a signal, replacing any earlier one from the same miner in the
// same epoch.
func (r *FleetSignalRepository) Put(ctx context.Context, sig *model.FleetSignal) error {
	const q = `
		INSERT OR REPLACE INTO fleet_signals
			(miner, epoch, attest_ts, subnet_hash, clock_drift_cv,
			 cache_timing_hash, thermal_signature, simd_timing_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, q,
		sig.Miner, sig.Epoch, sig.AttestTS, sig.SubnetHash, sig.ClockDriftCV,
		sig.CacheTimingHash, sig.ThermalSignature, sig.SIMDTimingHash)
	if err != nil {
		return fmt.Errorf("insert fleet signal: %w", err)
	}
	return nil
}

// ListByEpoch returns every signal recorded in the epoch, ordered by miner.
func (r *FleetSignalRepository) ListByEpoch(ctx context.Context, epoch int64) ([]*model.FleetSignal, error) {
	const q = `
		SELECT miner, epoch, attest_ts, subnet_hash, clock_drift_cv,
		       cache_timing_hash, thermal_signature, simd_timing_hash
		FROM fleet_signals
		WHERE epoch = ?
		ORDER BY miner
	`
	rows, err := r.db.QueryContext(ctx, q, epoch)
	if err != nil {
		return nil, fmt.Errorf("query fleet signals: %w", err)
	}
	defer rows.Close()

	var out []*model.FleetSignal
	for rows.Next() {
		var s model.FleetSignal
		if err := rows.Scan(&s.Miner, &s.Epoch, &s.AttestTS, &s.SubnetHash, &s.ClockDriftCV,
			&s.CacheTimingHash, &s.ThermalSignature, &s.SIMDTimingHash); err != nil {
			return nil, fmt.Errorf("scan fleet signal: %w", err)
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fleet signals: %w", err)
	}
	return out, nil
}
