/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package challenge

import "errors"

var (
	ErrTooFewValidators   = errors.New("at least two validators are required")
	ErrDuplicateValidator = errors.New("duplicate validator id")
	ErrRoundInProgress    = errors.New("a challenge round is already in progress")
	ErrNoActiveRound      = errors.New("no challenge round is active")
	ErrUnknownChallenge   = errors.New("unknown or already answered challenge")
	ErrChallengeExpired   = errors.New("challenge deadline has passed")
	ErrWrongResponder     = errors.New("response is not from the challenged validator")
)
