/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

// BucketPressure records how crowded one hardware bucket was in an epoch
// and the multiplier applied to counteract it.
type BucketPressure struct {
	Epoch      int64
	Bucket     string
	Population int
	Ideal      float64 // total miners / number of active buckets
	Multiplier float64 // <1 when overpopulated, >1 when underpopulated
}
