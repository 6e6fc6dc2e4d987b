/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package challenge

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cose "github.com/veraison/go-cose"

	"github.com/elyanlabs/rustchain-trust/internal/config"
	"github.com/elyanlabs/rustchain-trust/internal/domain/model"
	"github.com/elyanlabs/rustchain-trust/internal/mutation"
)

type memProfileRepo struct {
	profiles map[string]*model.HardwareProfile
}

func (r *memProfileRepo) Upsert(_ context.Context, p *model.HardwareProfile) error {
	r.profiles[p.Validator] = p
	return nil
}

func (r *memProfileRepo) FindByValidator(_ context.Context, validator string) (*model.HardwareProfile, error) {
	return r.profiles[validator], nil
}

func testSignKey(t *testing.T) *cose.Key {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	key, err := cose.NewKeyFromPrivate(priv)
	require.NoError(t, err)
	return key
}

func testOrchestrator(t *testing.T) (*Orchestrator, *memProfileRepo, *cose.Key) {
	t.Helper()
	seed := sha256.Sum256([]byte("orchestrator-test-genesis"))
	mut, err := mutation.NewMutator(seed[:])
	require.NoError(t, err)

	cfg := config.DefaultProtocolConfig()
	cfg.Logger = log.New(io.Discard, "", 0)

	repo := &memProfileRepo{profiles: map[string]*model.HardwareProfile{}}
	key := testSignKey(t)
	return NewOrchestrator(cfg, mut, NewScheduler(), repo, key), repo, key
}

func blockHash(s string) []byte {
	sum := sha256.Sum256([]byte(s))
	return sum[:]
}

var testValidators = []string{"validator-aa", "validator-bb", "validator-cc", "validator-dd"}

func TestOnNewBlockIgnoresOffBoundaryHeights(t *testing.T) {
	o, _, _ := testOrchestrator(t)

	chs, err := o.OnNewBlock(context.Background(), 101, blockHash("b"), testValidators)
	require.NoError(t, err)
	assert.Nil(t, chs)
	assert.Equal(t, StateIdle, o.State())
}

func TestOnNewBlockIssuesSignedChallenges(t *testing.T) {
	o, _, key := testOrchestrator(t)

	chs, err := o.OnNewBlock(context.Background(), 100, blockHash("b-100"), testValidators)
	require.NoError(t, err)
	require.Len(t, chs, len(testValidators))
	assert.Equal(t, StateChallengesIssued, o.State())

	for _, ch := range chs {
		assert.Equal(t, int64(100), ch.BlockHeight)
		assert.NotEqual(t, ch.Challenger, ch.Target)
		assert.Greater(t, ch.ExpiresAtMS, ch.IssuedAtMS)
		assert.NoError(t, ch.VerifySignature(key))
	}

	_, err = o.OnNewBlock(context.Background(), 110, blockHash("b-110"), testValidators)
	assert.ErrorIs(t, err, ErrRoundInProgress)
}

func TestHandleResponseScoresAndConsumesOnce(t *testing.T) {
	o, repo, _ := testOrchestrator(t)
	ctx := context.Background()

	chs, err := o.OnNewBlock(ctx, 100, blockHash("b-100"), testValidators)
	require.NoError(t, err)

	ch := chs[0]
	repo.profiles[ch.Target] = &model.HardwareProfile{
		Validator: ch.Target,
		Serials:   map[model.SerialType]string{ch.Mutation.SerialType: testSerial},
	}

	res, err := o.HandleResponse(ctx, goodResponse(ch))
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, StateScoring, o.State())
	assert.Equal(t, 0, o.FailureCount(ch.Target))

	_, err = o.HandleResponse(ctx, goodResponse(ch))
	assert.ErrorIs(t, err, ErrUnknownChallenge)
}

func TestHandleResponseRejectsStrangers(t *testing.T) {
	o, _, _ := testOrchestrator(t)
	ctx := context.Background()

	chs, err := o.OnNewBlock(ctx, 100, blockHash("b-100"), testValidators)
	require.NoError(t, err)

	resp := goodResponse(chs[0])
	resp.Responder = "validator-zz"
	_, err = o.HandleResponse(ctx, resp)
	assert.ErrorIs(t, err, ErrWrongResponder)

	resp = goodResponse(chs[0])
	resp.ChallengeID = "999-unknown-unknown"
	_, err = o.HandleResponse(ctx, resp)
	assert.ErrorIs(t, err, ErrUnknownChallenge)
}

func TestHandleResponseAfterDeadlineCountsFailure(t *testing.T) {
	o, _, _ := testOrchestrator(t)
	ctx := context.Background()

	chs, err := o.OnNewBlock(ctx, 100, blockHash("b-100"), testValidators)
	require.NoError(t, err)

	ch := chs[0]
	resp := goodResponse(ch)
	resp.TimestampMS = ch.ExpiresAtMS + 1

	_, err = o.HandleResponse(ctx, resp)
	assert.ErrorIs(t, err, ErrChallengeExpired)
	assert.Equal(t, 1, o.FailureCount(ch.Target))
}

func TestEndRoundResetsAndAdvances(t *testing.T) {
	o, _, _ := testOrchestrator(t)
	ctx := context.Background()

	_, err := o.EndRound()
	assert.ErrorIs(t, err, ErrNoActiveRound)

	chs, err := o.OnNewBlock(ctx, 100, blockHash("b-100"), testValidators)
	require.NoError(t, err)

	res, err := o.HandleResponse(ctx, goodResponse(chs[0]))
	require.NoError(t, err)

	results, err := o.EndRound()
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, res, results[chs[0].ID])
	assert.Equal(t, StateIdle, o.State())

	// the next round derives different parameters for the same target
	chs2, err := o.OnNewBlock(ctx, 110, blockHash("b-100"), testValidators)
	require.NoError(t, err)
	var before, after *model.Challenge
	for _, c := range chs {
		if c.Target == chs[0].Target {
			before = c
		}
	}
	for _, c := range chs2 {
		if c.Target == chs[0].Target {
			after = c
		}
	}
	require.NotNil(t, before)
	require.NotNil(t, after)
	assert.NotEqual(t, before.Mutation.Hash(), after.Mutation.Hash())
}

func TestRepeatedFailuresReachSlashThreshold(t *testing.T) {
	o, _, _ := testOrchestrator(t)
	ctx := context.Background()

	var victim string
	for round := 0; round < 3; round++ {
		height := int64(100 + 10*round)
		chs, err := o.OnNewBlock(ctx, height, blockHash("b"), testValidators)
		require.NoError(t, err)

		if victim == "" {
			victim = chs[0].Target
		}
		for _, ch := range chs {
			if ch.Target != victim {
				continue
			}
			resp := goodResponse(ch)
			resp.JitterVariance = 0 // emulated, fails validation
			resp.ProofHash = resp.ComputeProof(&ch.Mutation, resp.HardwareEntropy)
			res, err := o.HandleResponse(ctx, resp)
			require.NoError(t, err)
			require.False(t, res.Valid)
		}
		_, err = o.EndRound()
		require.NoError(t, err)
	}

	assert.Equal(t, 3, o.FailureCount(victim))
	assert.Equal(t, []string{victim}, o.SlashedValidators())
}
