/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package challenge

import (
	"bytes"
	"strings"

	"github.com/elyanlabs/rustchain-trust/internal/domain/model"
)

// confidence penalties per failed check
const (
	penaltyJitter   = 55
	penaltyTiming   = 25
	penaltyThermal  = 15
	penaltySerial   = 30
	penaltyNoSerial = 20
	penaltyProof    = 60

	validThreshold = 50
)

// Validate scores a response against its challenge's mutation parameters.
// Confidence starts at 100 and every failed check subtracts its penalty;
// the response is valid when at least 50 remains. A jitter or proof failure
// alone is enough to fail, the softer checks only fail in combination.
//
// The profile supplies the registered serial values and may be nil when the
// target never registered hardware.
func Validate(ch *model.Challenge, resp *model.Response, profile *model.HardwareProfile) *model.ValidationResult {
	res := &model.ValidationResult{
		ChallengeID: ch.ID,
		Responder:   resp.Responder,
		Confidence:  100,
		JitterOK:    true,
		TimingOK:    true,
		ThermalOK:   true,
		SerialOK:    true,
		ProofOK:     true,
	}

	if resp.ChallengeID != ch.ID || resp.Responder != ch.Target {
		res.Confidence = 0
		res.JitterOK, res.TimingOK, res.ThermalOK, res.SerialOK, res.ProofOK = false, false, false, false, false
		res.FailureReasons = append(res.FailureReasons, "response does not answer this challenge")
		return res
	}

	m := &ch.Mutation

	switch {
	case resp.JitterVariance < m.JitterMinPercent:
		res.JitterOK = false
		res.Confidence -= penaltyJitter
		res.FailureReasons = append(res.FailureReasons, "jitter variance too low, likely emulated")
	case resp.JitterVariance > m.JitterMaxPercent:
		res.JitterOK = false
		res.Confidence -= penaltyJitter
		res.FailureReasons = append(res.FailureReasons, "jitter variance too high")
	}

	if resp.CacheTimingTicks < uint64(m.TimingMinTicks) || resp.CacheTimingTicks > uint64(m.TimingMaxTicks) {
		res.TimingOK = false
		res.Confidence -= penaltyTiming
		res.FailureReasons = append(res.FailureReasons, "cache timing outside the mutated window")
	}

	switch {
	case resp.ThermalCelsius < 0:
		res.ThermalOK = false
		res.Confidence -= penaltyThermal
		res.FailureReasons = append(res.FailureReasons, "no thermal sensor reading, possible VM")
	case resp.ThermalCelsius < m.ThermalMinC || resp.ThermalCelsius > m.ThermalMaxC:
		res.ThermalOK = false
		res.Confidence -= penaltyThermal
		res.FailureReasons = append(res.FailureReasons, "thermal reading outside expected range")
	}

	if resp.SerialValue == "" || strings.EqualFold(resp.SerialValue, "UNKNOWN") {
		res.SerialOK = false
		res.Confidence -= penaltyNoSerial
		res.FailureReasons = append(res.FailureReasons, "requested serial not provided")
	} else if expected := profile.Serial(m.SerialType); expected != "" && resp.SerialValue != expected {
		res.SerialOK = false
		res.Confidence -= penaltySerial
		res.FailureReasons = append(res.FailureReasons, "serial does not match registered hardware")
	}

	if !bytes.Equal(resp.ProofHash, resp.ComputeProof(m, resp.HardwareEntropy)) {
		res.ProofOK = false
		res.Confidence -= penaltyProof
		res.FailureReasons = append(res.FailureReasons, "proof hash does not match recomputation")
	}

	if res.Confidence < 0 {
		res.Confidence = 0
	}
	res.Valid = res.Confidence >= validThreshold
	return res
}
