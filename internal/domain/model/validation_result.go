/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

// ValidationResult is the outcome of scoring one Response against its
// Challenge. Confidence starts at 100 and each failed check subtracts a
// fixed penalty; a response is valid when the remaining confidence is at
// least 50.
type ValidationResult struct {
	ChallengeID string
	Responder   string
	Valid       bool
	Confidence  float64

	JitterOK  bool
	TimingOK  bool
	ThermalOK bool
	SerialOK  bool
	ProofOK   bool

	FailureReasons []string
}
