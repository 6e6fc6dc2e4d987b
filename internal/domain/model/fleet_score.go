/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

// FleetScore is the per-epoch coordination verdict for one miner. The
// composite score weighs the three detector signals and is amplified when
// at least two of them agree.
type FleetScore struct {
	Miner string
	Epoch int64

	FleetScore        float64 // composite in [0,1], rounded to 4 decimals
	IPSignal          float64
	TimingSignal      float64
	FingerprintSignal float64

	// ClusterID groups miners in the same flagged subnet. Empty when the
	// miner is not part of any subnet group.
	ClusterID string

	// EffectiveMultiplier is the miner's reward weight after fleet decay.
	// Written by the allocator, zero until then.
	EffectiveMultiplier float64
}
