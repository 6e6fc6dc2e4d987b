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

	"github.com/elyanlabs/rustchain-trust/internal/domain"
	"github.com/elyanlabs/rustchain-trust/internal/domain/model"
)

// FleetScoreRepository handles fleet score persistence.
type FleetScoreRepository struct {
	db *sql.DB
}

func NewFleetScoreRepository(db *sql.DB) *FleetScoreRepository {
	return &FleetScoreRepository{db: db}
}

// Put stores a score, replacing any earlier one for the same miner and epoch.
func (r *FleetScoreRepository) Put(ctx context.Context, s *model.FleetScore) error {
	const q = `
		INSERT OR REPLACE INTO fleet_scores
			(miner, epoch, fleet_score, ip_signal, timing_signal,
			 fingerprint_signal, cluster_id, effective_multiplier)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, q,
		s.Miner, s.Epoch, s.FleetScore, s.IPSignal, s.TimingSignal,
		s.FingerprintSignal, s.ClusterID, s.EffectiveMultiplier)
	if err != nil {
		return fmt.Errorf("insert fleet score: %w", err)
	}
	return nil
}

// Get returns the score for one miner and epoch, or nil when none exists.
func (r *FleetScoreRepository) Get(ctx context.Context, miner string, epoch int64) (*model.FleetScore, error) {
	const q = `
		SELECT miner, epoch, fleet_score, ip_signal, timing_signal,
		       fingerprint_signal, cluster_id, effective_multiplier
		FROM fleet_scores
		WHERE miner = ? AND epoch = ?
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, q, miner, epoch)
	var s model.FleetScore
	if err := row.Scan(&s.Miner, &s.Epoch, &s.FleetScore, &s.IPSignal, &s.TimingSignal,
		&s.FingerprintSignal, &s.ClusterID, &s.EffectiveMultiplier); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan fleet score: %w", err)
	}
	return &s, nil
}

// ListByEpoch returns every score in the epoch, ordered by miner.
func (r *FleetScoreRepository) ListByEpoch(ctx context.Context, epoch int64) ([]*model.FleetScore, error) {
	const q = `
		SELECT miner, epoch, fleet_score, ip_signal, timing_signal,
		       fingerprint_signal, cluster_id, effective_multiplier
		FROM fleet_scores
		WHERE epoch = ?
		ORDER BY miner
	`
	rows, err := r.db.QueryContext(ctx, q, epoch)
	if err != nil {
		return nil, fmt.Errorf("query fleet scores: %w", err)
	}
	defer rows.Close()

	var out []*model.FleetScore
	for rows.Next() {
		var s model.FleetScore
		if err := rows.Scan(&s.Miner, &s.Epoch, &s.FleetScore, &s.IPSignal, &s.TimingSignal,
			&s.FingerprintSignal, &s.ClusterID, &s.EffectiveMultiplier); err != nil {
			return nil, fmt.Errorf("scan fleet score: %w", err)
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fleet scores: %w", err)
	}
	return out, nil
}

// SetEffectiveMultiplier records the post-decay reward weight on an existing
// score row.
func (r *FleetScoreRepository) SetEffectiveMultiplier(ctx context.Context, miner string, epoch int64, multiplier float64) error {
	const q = `
		UPDATE fleet_scores
		SET effective_multiplier = ?
		WHERE miner = ? AND epoch = ?
	`
	res, err := r.db.ExecContext(ctx, q, multiplier, miner, epoch)
	if err != nil {
		return fmt.Errorf("update fleet score: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
