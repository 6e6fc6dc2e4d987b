/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package reward divides each epoch's pot across hardware buckets so no
// architecture class can crowd out the others, then splits within buckets
// by fleet-decayed miner weight.
package reward

import (
	"math"
	"strings"

	"github.com/elyanlabs/rustchain-trust/internal/config"
)

// hardware buckets
const (
	BucketVintagePowerPC = "vintage_powerpc"
	BucketVintageX86     = "vintage_x86"
	BucketAppleSilicon   = "apple_silicon"
	BucketModern         = "modern"
	BucketExotic         = "exotic"
	BucketARM            = "arm"
)

var bucketByArch = map[string]string{
	"ppc":     BucketVintagePowerPC,
	"ppc64":   BucketVintagePowerPC,
	"powerpc": BucketVintagePowerPC,
	"g3":      BucketVintagePowerPC,
	"g4":      BucketVintagePowerPC,
	"g5":      BucketVintagePowerPC,

	"i386":    BucketVintageX86,
	"i486":    BucketVintageX86,
	"i586":    BucketVintageX86,
	"i686":    BucketVintageX86,
	"pentium": BucketVintageX86,

	"m1": BucketAppleSilicon,
	"m2": BucketAppleSilicon,
	"m3": BucketAppleSilicon,
	"m4": BucketAppleSilicon,

	"x86_64": BucketModern,
	"amd64":  BucketModern,

	"sparc":   BucketExotic,
	"mips":    BucketExotic,
	"alpha":   BucketExotic,
	"pa-risc": BucketExotic,
	"riscv":   BucketExotic,
	"vax":     BucketExotic,

	"arm":     BucketARM,
	"armv6":   BucketARM,
	"armv7":   BucketARM,
	"aarch64": BucketARM,
	"arm64":   BucketARM,
}

// ClassifyArch maps a device architecture string to its bucket. Matching is
// case-insensitive; anything unrecognized lands in the modern bucket.
func ClassifyArch(arch string) string {
	if b, ok := bucketByArch[strings.ToLower(strings.TrimSpace(arch))]; ok {
		return b
	}
	return BucketModern
}

// PressureMultiplier computes how a bucket's reward weight shifts with its
// population. ideal is the population an even spread would give the bucket.
// Overpopulated buckets decay toward the configured floor, underpopulated
// ones gain up to 50%.
func PressureMultiplier(cfg *config.FleetConfig, population int, ideal float64) float64 {
	if ideal <= 0 || population == 0 {
		return 1.0
	}
	ratio := float64(population) / ideal
	if ratio > 1 {
		m := 1 / (1 + cfg.PressureStrength*(ratio-1))
		return math.Max(cfg.MinBucketWeight, m)
	}
	return math.Min(1.5, 1+(1-ratio)*cfg.PressureStrength)
}
