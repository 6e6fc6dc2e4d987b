/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/elyanlabs/rustchain-trust/internal/domain"
	"github.com/elyanlabs/rustchain-trust/internal/domain/model"
)

func TestFleetScore_PutGet(t *testing.T) {
	ctx := context.Background()
	db, err := InitDB(ctx, ":memory:")
	if err != nil {
		t.Fatalf("InitDB error: %v", err)
	}
	defer CloseDB(db)

	repo := NewFleetScoreRepository(db)

	score := &model.FleetScore{
		Miner:             "miner-1",
		Epoch:             7,
		FleetScore:        0.884,
		IPSignal:          0.4,
		TimingSignal:      1.0,
		FingerprintSignal: 0.8,
		ClusterID:         "cluster-1",
	}
	if err := repo.Put(ctx, score); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	got, err := repo.Get(ctx, "miner-1", 7)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got == nil {
		t.Fatalf("expected score, got nil")
	}
	if got.FleetScore != 0.884 || got.ClusterID != "cluster-1" {
		t.Fatalf("unexpected score: %+v", got)
	}
}

func TestFleetScore_Get_NotFound(t *testing.T) {
	ctx := context.Background()
	db, err := InitDB(ctx, ":memory:")
	if err != nil {
		t.Fatalf("InitDB error: %v", err)
	}
	defer CloseDB(db)

	repo := NewFleetScoreRepository(db)

	got, err := repo.Get(ctx, "missing", 7)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestFleetScore_SetEffectiveMultiplier(t *testing.T) {
	ctx := context.Background()
	db, err := InitDB(ctx, ":memory:")
	if err != nil {
		t.Fatalf("InitDB error: %v", err)
	}
	defer CloseDB(db)

	repo := NewFleetScoreRepository(db)

	if err := repo.Put(ctx, &model.FleetScore{Miner: "miner-1", Epoch: 7, FleetScore: 0.5}); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	if err := repo.SetEffectiveMultiplier(ctx, "miner-1", 7, 0.8); err != nil {
		t.Fatalf("SetEffectiveMultiplier error: %v", err)
	}

	got, err := repo.Get(ctx, "miner-1", 7)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.EffectiveMultiplier != 0.8 {
		t.Fatalf("expected effective_multiplier=0.8, got %v", got.EffectiveMultiplier)
	}

	err = repo.SetEffectiveMultiplier(ctx, "missing", 7, 0.8)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFleetScore_ListByEpoch(t *testing.T) {
	ctx := context.Background()
	db, err := InitDB(ctx, ":memory:")
	if err != nil {
		t.Fatalf("InitDB error: %v", err)
	}
	defer CloseDB(db)

	repo := NewFleetScoreRepository(db)

	if err := repo.Put(ctx, &model.FleetScore{Miner: "miner-b", Epoch: 7}); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if err := repo.Put(ctx, &model.FleetScore{Miner: "miner-a", Epoch: 7}); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if err := repo.Put(ctx, &model.FleetScore{Miner: "miner-c", Epoch: 8}); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	got, err := repo.ListByEpoch(ctx, 7)
	if err != nil {
		t.Fatalf("ListByEpoch error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 scores, got %d", len(got))
	}
	if got[0].Miner != "miner-a" || got[1].Miner != "miner-b" {
		t.Fatalf("unexpected order: %s, %s", got[0].Miner, got[1].Miner)
	}
}
