/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

// FleetSignal is the privacy-preserving residue of one attestation
// submission. Raw addresses and fingerprints never leave the ingest
// boundary; only hashed and derived values are recorded. Zero values mean
// the submission did not carry that dimension.
type FleetSignal struct {
	Miner    string
	Epoch    int64
	AttestTS int64 // unix seconds of the submission

	SubnetHash       string  // sha256 of the /24 prefix, first 16 hex chars
	ClockDriftCV     float64 // coefficient of variation of clock drift samples
	CacheTimingHash  string  // hash over the sorted cache timing profile
	ThermalSignature float64 // entropy * (1 + drift magnitude)
	SIMDTimingHash   string  // hash over the sorted SIMD timing identity
}
