/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package fleet

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/elyanlabs/rustchain-trust/internal/config"
	"github.com/elyanlabs/rustchain-trust/internal/domain/model"
	"github.com/elyanlabs/rustchain-trust/internal/domain/service"
)

// composite weights; ip and fingerprint evidence dominate timing
const (
	weightIP          = 0.4
	weightFingerprint = 0.4
	weightTiming      = 0.2

	// applied when two or more detectors independently agree
	amplification   = 1.3
	agreementSignal = 0.3
)

// clusterNamespace makes cluster ids a pure function of the subnet hash,
// so every node derives the same id for the same flagged subnet.
var clusterNamespace = uuid.MustParse("8f3c1c42-9a6e-4d07-b1c5-2f6a0d4e7a19")

// Scorer combines the detector outputs into one fleet score per miner and
// persists the results.
type Scorer struct {
	cfg     *config.FleetConfig
	signals service.FleetSignalRepository
	scores  service.FleetScoreRepository
	logger  *log.Logger
}

func NewScorer(cfg *config.FleetConfig, signals service.FleetSignalRepository, scores service.FleetScoreRepository) *Scorer {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Scorer{cfg: cfg, signals: signals, scores: scores, logger: logger}
}

// ScoreEpoch scores every miner that attested in the epoch, persists the
// rows and returns them sorted by miner id. Below the minimum population
// every miner scores zero.
func (sc *Scorer) ScoreEpoch(ctx context.Context, epoch int64) ([]*model.FleetScore, error) {
	signals, err := sc.signals.ListByEpoch(ctx, epoch)
	if err != nil {
		return nil, fmt.Errorf("loading fleet signals for epoch %d: %w", epoch, err)
	}

	ipScores, groups := DetectIPClustering(sc.cfg, signals)
	timingScores := DetectTimingCorrelation(sc.cfg, signals)
	fpScores := DetectFingerprintSimilarity(sc.cfg, signals)

	clusterBySubnet := map[string]string{}
	for subnet := range groups {
		clusterBySubnet[subnet] = uuid.NewSHA1(clusterNamespace, []byte(subnet)).String()
	}

	out := make([]*model.FleetScore, 0, len(signals))
	for _, sig := range signals {
		score := &model.FleetScore{
			Miner:             sig.Miner,
			Epoch:             epoch,
			IPSignal:          ipScores[sig.Miner],
			TimingSignal:      timingScores[sig.Miner],
			FingerprintSignal: fpScores[sig.Miner],
		}
		score.FleetScore = composite(score.IPSignal, score.FingerprintSignal, score.TimingSignal)
		if _, flagged := ipScores[sig.Miner]; flagged {
			score.ClusterID = clusterBySubnet[sig.SubnetHash]
		}

		if err := sc.scores.Put(ctx, score); err != nil {
			return nil, fmt.Errorf("storing fleet score for %s: %w", sig.Miner, err)
		}
		out = append(out, score)

		if score.FleetScore > 0 {
			sc.logger.Printf("epoch %d: miner %s fleet score %.4f (ip %.2f fp %.2f timing %.2f)",
				epoch, sig.Miner, score.FleetScore, score.IPSignal, score.FingerprintSignal, score.TimingSignal)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Miner < out[j].Miner })
	return out, nil
}

func composite(ip, fp, timing float64) float64 {
	score := weightIP*ip + weightFingerprint*fp + weightTiming*timing

	agreeing := 0
	for _, s := range []float64{ip, fp, timing} {
		if s > agreementSignal {
			agreeing++
		}
	}
	if agreeing >= 2 {
		score *= amplification
	}
	if score > 1 {
		score = 1
	}
	return math.Round(score*10000) / 10000
}
