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

// HardwareProfileRepository handles hardware profile persistence.
type HardwareProfileRepository struct {
	db *sql.DB
}

func NewHardwareProfileRepository(db *sql.DB) *HardwareProfileRepository {
	return &HardwareProfileRepository{db: db}
}

// Upsert stores a profile and its serials, replacing any earlier
// registration for the same validator.
func (r *HardwareProfileRepository) Upsert(ctx context.Context, p *model.HardwareProfile) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	const profileQ = `
		INSERT OR REPLACE INTO hardware_profiles (validator, device_arch, created_at)
		VALUES (?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, profileQ, p.Validator, p.DeviceArch, p.CreatedAt); err != nil {
		return fmt.Errorf("insert hardware profile: %w", err)
	}

	// drop serials the new registration no longer carries
	if _, err := tx.ExecContext(ctx, `DELETE FROM hardware_serials WHERE validator = ?`, p.Validator); err != nil {
		return fmt.Errorf("delete hardware serials: %w", err)
	}

	const serialQ = `
		INSERT INTO hardware_serials (validator, serial_type, serial_value)
		VALUES (?, ?, ?)
	`
	for serialType, value := range p.Serials {
		if _, err := tx.ExecContext(ctx, serialQ, p.Validator, string(serialType), value); err != nil {
			return fmt.Errorf("insert hardware serial: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// FindByValidator returns the registered profile, or nil when the validator
// never registered.
func (r *HardwareProfileRepository) FindByValidator(ctx context.Context, validator string) (*model.HardwareProfile, error) {
	const profileQ = `
		SELECT validator, device_arch, created_at
		FROM hardware_profiles
		WHERE validator = ?
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, profileQ, validator)
	var p model.HardwareProfile
	if err := row.Scan(&p.Validator, &p.DeviceArch, &p.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan hardware profile: %w", err)
	}

	const serialQ = `
		SELECT serial_type, serial_value
		FROM hardware_serials
		WHERE validator = ?
	`
	rows, err := r.db.QueryContext(ctx, serialQ, validator)
	if err != nil {
		return nil, fmt.Errorf("query hardware serials: %w", err)
	}
	defer rows.Close()

	p.Serials = map[model.SerialType]string{}
	for rows.Next() {
		var serialType, value string
		if err := rows.Scan(&serialType, &value); err != nil {
			return nil, fmt.Errorf("scan hardware serial: %w", err)
		}
		p.Serials[model.SerialType(serialType)] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hardware serials: %w", err)
	}
	return &p, nil
}
