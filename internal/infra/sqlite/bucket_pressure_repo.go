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

// BucketPressureRepository handles bucket pressure persistence.
type BucketPressureRepository struct {
	db *sql.DB
}

func NewBucketPressureRepository(db *sql.DB) *BucketPressureRepository {
	return &BucketPressureRepository{db: db}
}

// Put stores a snapshot, replacing any earlier one for the same epoch and
// bucket.
func (r *BucketPressureRepository) Put(ctx context.Context, bp *model.BucketPressure) error {
	const q = `
		INSERT OR REPLACE INTO bucket_pressure
			(epoch, bucket, population, ideal, multiplier)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, q, bp.Epoch, bp.Bucket, bp.Population, bp.Ideal, bp.Multiplier)
	if err != nil {
		return fmt.Errorf("insert bucket pressure: %w", err)
	}
	return nil
}

// ListByEpoch returns every snapshot in the epoch, ordered by bucket.
func (r *BucketPressureRepository) ListByEpoch(ctx context.Context, epoch int64) ([]*model.BucketPressure, error) {
	const q = `
		SELECT epoch, bucket, population, ideal, multiplier
		FROM bucket_pressure
		WHERE epoch = ?
		ORDER BY bucket
	`
	rows, err := r.db.QueryContext(ctx, q, epoch)
	if err != nil {
		return nil, fmt.Errorf("query bucket pressure: %w", err)
	}
	defer rows.Close()

	var out []*model.BucketPressure
	for rows.Next() {
		var bp model.BucketPressure
		if err := rows.Scan(&bp.Epoch, &bp.Bucket, &bp.Population, &bp.Ideal, &bp.Multiplier); err != nil {
			return nil, fmt.Errorf("scan bucket pressure: %w", err)
		}
		out = append(out, &bp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bucket pressure: %w", err)
	}
	return out, nil
}
