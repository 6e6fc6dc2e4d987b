/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package challenge

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	cose "github.com/veraison/go-cose"

	"github.com/elyanlabs/rustchain-trust/internal/config"
	"github.com/elyanlabs/rustchain-trust/internal/domain/model"
	"github.com/elyanlabs/rustchain-trust/internal/domain/service"
	"github.com/elyanlabs/rustchain-trust/internal/mutation"
	"github.com/elyanlabs/rustchain-trust/internal/util"
)

// RoundState tracks where the orchestrator is in its round lifecycle.
type RoundState int

const (
	StateIdle RoundState = iota
	StateChallengesIssued
	StateScoring
	StateClosed
)

func (s RoundState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateChallengesIssued:
		return "CHALLENGES_ISSUED"
	case StateScoring:
		return "SCORING"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("RoundState(%d)", int(s))
	}
}

// Orchestrator runs the challenge protocol. Every RoundInterval blocks it
// derives a fresh mutation per target, issues signed challenges, collects
// each response exactly once and keeps monotonic failure counters that feed
// the slashing list.
type Orchestrator struct {
	cfg       *config.ProtocolConfig
	mutator   *mutation.Mutator
	scheduler *Scheduler
	profiles  service.HardwareProfileRepository
	signKey   *cose.Key
	logger    *log.Logger
	nowMS     func() int64

	mu       sync.Mutex
	state    RoundState
	pending  map[string]*model.Challenge
	consumed util.Set[string]
	results  map[string]*model.ValidationResult
	failures map[string]int
}

func NewOrchestrator(
	cfg *config.ProtocolConfig,
	mutator *mutation.Mutator,
	scheduler *Scheduler,
	profiles service.HardwareProfileRepository,
	signKey *cose.Key,
) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		cfg:       cfg,
		mutator:   mutator,
		scheduler: scheduler,
		profiles:  profiles,
		signKey:   signKey,
		logger:    logger,
		nowMS:     func() int64 { return time.Now().UnixMilli() },
		state:     StateIdle,
		pending:   map[string]*model.Challenge{},
		consumed:  util.NewSet[string](),
		results:   map[string]*model.ValidationResult{},
		failures:  map[string]int{},
	}
}

// State returns the current round state.
func (o *Orchestrator) State() RoundState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// OnNewBlock starts a challenge round when the height lands on a round
// boundary. Off-boundary blocks return no challenges. Starting a round
// while another is open is an error, the caller must close it first.
func (o *Orchestrator) OnNewBlock(ctx context.Context, height int64, blockHash []byte, validators []string) ([]*model.Challenge, error) {
	if height%o.cfg.RoundInterval != 0 {
		return nil, nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateIdle {
		return nil, ErrRoundInProgress
	}

	pairs, err := o.scheduler.Assign(validators)
	if err != nil {
		return nil, err
	}

	now := o.nowMS()
	challenges := make([]*model.Challenge, 0, len(pairs))
	for _, p := range pairs {
		m := o.mutator.Derive(blockHash, p.Target)
		ch := &model.Challenge{
			ID:          fmt.Sprintf("%d-%s-%s", height, idPrefix(p.Challenger), idPrefix(p.Target)),
			BlockHeight: height,
			BlockHash:   blockHash,
			Challenger:  p.Challenger,
			Target:      p.Target,
			Mutation:    m,
			IssuedAtMS:  now,
			// ticks are hundredths of a millisecond here
			ExpiresAtMS: now + int64(m.TimingMaxTicks/100),
		}
		if err := ch.Sign(o.signKey); err != nil {
			return nil, fmt.Errorf("signing challenge %s: %w", ch.ID, err)
		}
		o.pending[ch.ID] = ch
		challenges = append(challenges, ch)

		if dump, err := ch.Dump(); err == nil {
			o.logger.Printf("issued challenge %s:\n%s", ch.ID, dump)
		}
	}

	o.state = StateChallengesIssued
	o.logger.Printf("round %d at height %d: %d challenges issued",
		o.scheduler.Round(), height, len(challenges))
	return challenges, nil
}

// HandleResponse scores one response. Each pending challenge accepts exactly
// one response; anything after that, or for an id this round never issued,
// is rejected. A late or invalid response counts against the target's
// failure tally.
func (o *Orchestrator) HandleResponse(ctx context.Context, resp *model.Response) (*model.ValidationResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateChallengesIssued && o.state != StateScoring {
		return nil, ErrNoActiveRound
	}
	if o.consumed.Has(resp.ChallengeID) {
		return nil, ErrUnknownChallenge
	}
	ch, ok := o.pending[resp.ChallengeID]
	if !ok {
		return nil, ErrUnknownChallenge
	}
	if resp.Responder != ch.Target {
		return nil, ErrWrongResponder
	}

	delete(o.pending, ch.ID)
	o.consumed.Add(ch.ID)
	o.state = StateScoring

	if resp.TimestampMS > ch.ExpiresAtMS {
		o.failures[ch.Target]++
		o.logger.Printf("challenge %s: response from %s after deadline", ch.ID, ch.Target)
		return nil, ErrChallengeExpired
	}

	profile, err := o.profiles.FindByValidator(ctx, ch.Target)
	if err != nil {
		return nil, fmt.Errorf("loading hardware profile for %s: %w", ch.Target, err)
	}

	res := Validate(ch, resp, profile)
	o.results[ch.ID] = res
	if !res.Valid {
		o.failures[ch.Target]++
		o.logger.Printf("challenge %s: invalid response from %s (confidence %.0f): %v",
			ch.ID, ch.Target, res.Confidence, res.FailureReasons)
	}
	return res, nil
}

// EndRound closes the current round and returns its results. Unanswered
// challenges expire without counting as failures. The scheduler and the
// mutation epoch both advance so the next round derives fresh parameters.
func (o *Orchestrator) EndRound() (map[string]*model.ValidationResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateIdle {
		return nil, ErrNoActiveRound
	}
	o.state = StateClosed

	results := make(map[string]*model.ValidationResult, len(o.results))
	for id, res := range o.results {
		results[id] = res
	}

	o.logger.Printf("round %d closed: %d consumed, %d scored, %d expired unanswered",
		o.scheduler.Round(), o.consumed.Len(), len(o.results), len(o.pending))

	o.pending = map[string]*model.Challenge{}
	o.consumed = util.NewSet[string]()
	o.results = map[string]*model.ValidationResult{}
	o.scheduler.AdvanceRound()
	o.mutator.AdvanceEpoch()
	o.state = StateIdle
	return results, nil
}

// FailureCount returns the monotonic failure tally for a validator. Tallies
// survive round boundaries, passing later rounds does not erase history.
func (o *Orchestrator) FailureCount(validator string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.failures[validator]
}

// SlashedValidators returns the validators at or past the slash threshold,
// sorted by id.
func (o *Orchestrator) SlashedValidators() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []string
	for v, n := range o.failures {
		if n >= o.cfg.SlashThreshold {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func idPrefix(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
