/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package fleet detects coordinated miner farms from the per-epoch signals
// the attestation boundary records. No single detector is decisive; the
// scorer combines them and punishes agreement between independent ones.
package fleet

import (
	"math"

	"github.com/elyanlabs/rustchain-trust/internal/config"
	"github.com/elyanlabs/rustchain-trust/internal/domain/model"
)

// relative tolerances for pairwise fingerprint comparison
const (
	clockDriftTolerance = 0.05
	thermalTolerance    = 0.10
)

// DetectIPClustering flags miners that attest from shared /24 subnets.
// Groups smaller than the subnet threshold are ignored; a handful of
// housemates is not a farm. Returns per-miner signals and the subnet
// groups that triggered them.
func DetectIPClustering(cfg *config.FleetConfig, signals []*model.FleetSignal) (map[string]float64, map[string][]string) {
	scores := map[string]float64{}
	groups := map[string][]string{}
	if len(signals) < cfg.MinPopulation {
		return scores, groups
	}

	bySubnet := map[string][]string{}
	for _, s := range signals {
		if s.SubnetHash == "" {
			continue
		}
		bySubnet[s.SubnetHash] = append(bySubnet[s.SubnetHash], s.Miner)
	}

	for subnet, miners := range bySubnet {
		if len(miners) < cfg.SubnetThreshold {
			continue
		}
		groups[subnet] = miners
		signal := math.Min(1.0, float64(len(miners))/20.0+0.15)
		for _, m := range miners {
			scores[m] = signal
		}
	}
	return scores, groups
}

// DetectTimingCorrelation flags miners whose attestations land inside the
// timing window of most other miners, the signature of a cron-driven farm.
func DetectTimingCorrelation(cfg *config.FleetConfig, signals []*model.FleetSignal) map[string]float64 {
	scores := map[string]float64{}
	if len(signals) < cfg.MinPopulation {
		return scores
	}

	window := int64(cfg.TimingWindow.Seconds())
	for _, s := range signals {
		if s.AttestTS == 0 {
			continue
		}
		var close, others int
		for _, o := range signals {
			if o.Miner == s.Miner || o.AttestTS == 0 {
				continue
			}
			others++
			if abs64(s.AttestTS-o.AttestTS) <= window {
				close++
			}
		}
		if others == 0 {
			continue
		}
		ratio := float64(close) / float64(others)
		if ratio >= cfg.TimingThreshold {
			scores[s.Miner] = ratio
		}
	}
	return scores
}

// DetectFingerprintSimilarity flags miners whose hardware fingerprints are
// pairwise near-identical. Two signals match when at least two dimensions
// are comparable on both sides and at least two of them agree.
func DetectFingerprintSimilarity(cfg *config.FleetConfig, signals []*model.FleetSignal) map[string]float64 {
	scores := map[string]float64{}
	if len(signals) < cfg.MinPopulation {
		return scores
	}

	for _, s := range signals {
		matches := 0
		for _, o := range signals {
			if o.Miner == s.Miner {
				continue
			}
			if fingerprintsMatch(s, o) {
				matches++
			}
		}
		if matches > 0 {
			scores[s.Miner] = math.Min(1.0, 0.2+0.15*float64(matches))
		}
	}
	return scores
}

func fingerprintsMatch(a, b *model.FleetSignal) bool {
	shared, agreeing := 0, 0

	if a.CacheTimingHash != "" && b.CacheTimingHash != "" {
		shared++
		if a.CacheTimingHash == b.CacheTimingHash {
			agreeing++
		}
	}
	if a.SIMDTimingHash != "" && b.SIMDTimingHash != "" {
		shared++
		if a.SIMDTimingHash == b.SIMDTimingHash {
			agreeing++
		}
	}
	if a.ClockDriftCV != 0 && b.ClockDriftCV != 0 {
		shared++
		if withinRelative(a.ClockDriftCV, b.ClockDriftCV, clockDriftTolerance) {
			agreeing++
		}
	}
	if a.ThermalSignature != 0 && b.ThermalSignature != 0 {
		shared++
		if withinRelative(a.ThermalSignature, b.ThermalSignature, thermalTolerance) {
			agreeing++
		}
	}
	return shared >= 2 && agreeing >= 2
}

func withinRelative(a, b, tolerance float64) bool {
	scale := math.Max(math.Abs(a), math.Abs(b))
	if scale == 0 {
		return false
	}
	return math.Abs(a-b)/scale <= tolerance
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
