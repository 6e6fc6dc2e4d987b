/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/elyanlabs/rustchain-trust/internal/domain/service"
)

// flagThreshold is the fleet score above which a miner appears in reports.
const flagThreshold = 0.3

// Report is the per-epoch fleet summary handed to operators.
type Report struct {
	Epoch      int64           `json:"epoch"`
	Population int             `json:"population"`
	Flagged    []FlaggedMiner  `json:"flagged_miners"`
	Buckets    []BucketSummary `json:"bucket_pressure"`
}

type FlaggedMiner struct {
	Miner             string  `json:"miner"`
	FleetScore        float64 `json:"fleet_score"`
	IPSignal          float64 `json:"ip_signal"`
	TimingSignal      float64 `json:"timing_signal"`
	FingerprintSignal float64 `json:"fingerprint_signal"`
	ClusterID         string  `json:"cluster_id,omitempty"`
}

type BucketSummary struct {
	Bucket     string  `json:"bucket"`
	Population int     `json:"population"`
	Multiplier float64 `json:"multiplier"`
}

// Reporter assembles epoch reports from the persisted scores and bucket
// pressure rows.
type Reporter struct {
	scores   service.FleetScoreRepository
	pressure service.BucketPressureRepository
}

func NewReporter(scores service.FleetScoreRepository, pressure service.BucketPressureRepository) *Reporter {
	return &Reporter{scores: scores, pressure: pressure}
}

// BuildReport summarizes one epoch. Flagged miners are sorted by descending
// score, buckets by name.
func (r *Reporter) BuildReport(ctx context.Context, epoch int64) (*Report, error) {
	scores, err := r.scores.ListByEpoch(ctx, epoch)
	if err != nil {
		return nil, fmt.Errorf("loading fleet scores for epoch %d: %w", epoch, err)
	}
	pressures, err := r.pressure.ListByEpoch(ctx, epoch)
	if err != nil {
		return nil, fmt.Errorf("loading bucket pressure for epoch %d: %w", epoch, err)
	}

	report := &Report{Epoch: epoch, Population: len(scores)}
	for _, s := range scores {
		if s.FleetScore <= flagThreshold {
			continue
		}
		report.Flagged = append(report.Flagged, FlaggedMiner{
			Miner:             s.Miner,
			FleetScore:        s.FleetScore,
			IPSignal:          s.IPSignal,
			TimingSignal:      s.TimingSignal,
			FingerprintSignal: s.FingerprintSignal,
			ClusterID:         s.ClusterID,
		})
	}
	sort.Slice(report.Flagged, func(i, j int) bool {
		if report.Flagged[i].FleetScore != report.Flagged[j].FleetScore {
			return report.Flagged[i].FleetScore > report.Flagged[j].FleetScore
		}
		return report.Flagged[i].Miner < report.Flagged[j].Miner
	})

	for _, p := range pressures {
		report.Buckets = append(report.Buckets, BucketSummary{
			Bucket:     p.Bucket,
			Population: p.Population,
			Multiplier: p.Multiplier,
		})
	}
	sort.Slice(report.Buckets, func(i, j int) bool {
		return report.Buckets[i].Bucket < report.Buckets[j].Bucket
	})
	return report, nil
}

// Render returns the report as indented JSON.
func (r *Report) Render() (string, error) {
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
