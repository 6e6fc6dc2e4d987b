/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package attest turns raw attestation submissions into privacy-preserving
// fleet signals. Addresses and fingerprints are reduced to hashes and
// derived statistics at this boundary and the originals are dropped.
package attest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/eat"

	"github.com/elyanlabs/rustchain-trust/internal/domain/model"
	"github.com/elyanlabs/rustchain-trust/internal/domain/service"
	"github.com/elyanlabs/rustchain-trust/internal/util"
)

var (
	ErrEmptyMiner     = errors.New("submission has no miner id")
	ErrBadNonce       = errors.New("submission nonce failed validation")
	ErrNonceReplayed  = errors.New("submission nonce was already used")
	ErrBadFingerprint = errors.New("fingerprint payload failed to decode")
)

// Submission is one attestation as it arrives from the transport. The
// fingerprint bytes are a CBOR-encoded FingerprintPayload.
type Submission struct {
	Miner       string
	RemoteAddr  string
	Timestamp   int64 // unix seconds
	Nonce       eat.Nonce
	Fingerprint []byte
}

// ClockDriftSamples carries repeated clock drift measurements. Real quartz
// drifts unevenly; a fleet of VMs sharing a host clock does not.
type ClockDriftSamples struct {
	Samples []float64 `cbor:"0,keyasint"`
}

// ThermalDrift summarizes how the device's thermal readings wander.
type ThermalDrift struct {
	Entropy        float64 `cbor:"0,keyasint"`
	DriftMagnitude float64 `cbor:"1,keyasint"`
}

// FingerprintPayload is the typed hardware fingerprint a miner submits.
// Every field is optional; absent dimensions yield zero-valued signals.
type FingerprintPayload struct {
	ClockDrift   *ClockDriftSamples `cbor:"0,keyasint,omitempty"`
	CacheTiming  map[string]float64 `cbor:"1,keyasint,omitempty"`
	ThermalDrift *ThermalDrift      `cbor:"2,keyasint,omitempty"`
	SIMDIdentity map[string]float64 `cbor:"3,keyasint,omitempty"`
}

// Ingestor validates submissions and records their derived FleetSignal.
type Ingestor struct {
	signals service.FleetSignalRepository
	logger  *log.Logger

	mu   sync.Mutex
	seen util.Set[string]
}

func NewIngestor(signals service.FleetSignalRepository, logger *log.Logger) *Ingestor {
	if logger == nil {
		logger = log.Default()
	}
	return &Ingestor{
		signals: signals,
		logger:  logger,
		seen:    util.NewSet[string](),
	}
}

// Ingest reduces one submission to a FleetSignal for the given epoch and
// persists it. The nonce must be well formed and fresh.
func (in *Ingestor) Ingest(ctx context.Context, epoch int64, sub *Submission) (*model.FleetSignal, error) {
	if sub.Miner == "" {
		return nil, ErrEmptyMiner
	}
	if err := sub.Nonce.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadNonce, err)
	}
	nonceKey := hex.EncodeToString(sub.Nonce.GetI(0))
	in.mu.Lock()
	if in.seen.Has(nonceKey) {
		in.mu.Unlock()
		return nil, ErrNonceReplayed
	}
	in.seen.Add(nonceKey)
	in.mu.Unlock()

	var payload FingerprintPayload
	if err := cbor.Unmarshal(sub.Fingerprint, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFingerprint, err)
	}

	sig := &model.FleetSignal{
		Miner:      sub.Miner,
		Epoch:      epoch,
		AttestTS:   sub.Timestamp,
		SubnetHash: HashSubnet(sub.RemoteAddr),
	}
	if cd := payload.ClockDrift; cd != nil {
		sig.ClockDriftCV = coefficientOfVariation(cd.Samples)
	}
	if len(payload.CacheTiming) > 0 {
		sig.CacheTimingHash = hashProfile(payload.CacheTiming)
	}
	if td := payload.ThermalDrift; td != nil {
		sig.ThermalSignature = td.Entropy * (1 + td.DriftMagnitude)
	}
	if len(payload.SIMDIdentity) > 0 {
		sig.SIMDTimingHash = hashProfile(payload.SIMDIdentity)
	}

	if err := in.signals.Put(ctx, sig); err != nil {
		return nil, fmt.Errorf("storing fleet signal for %s: %w", sub.Miner, err)
	}
	in.logger.Printf("recorded fleet signal for %s in epoch %d (subnet %s)",
		sub.Miner, epoch, sig.SubnetHash)
	return sig, nil
}

// HashSubnet reduces a remote address to the hash of its /24 prefix, so
// same-subnet detection works without retaining the address itself.
// Non-IPv4 addresses hash whole.
func HashSubnet(remoteAddr string) string {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}

	prefix := host
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			prefix = fmt.Sprintf("%d.%d.%d", v4[0], v4[1], v4[2])
		}
	}

	sum := sha256.Sum256([]byte(prefix))
	return hex.EncodeToString(sum[:])[:16]
}

// hashProfile hashes a timing profile over its sorted entries so the result
// is independent of map iteration order.
func hashProfile(profile map[string]float64) string {
	keys := make([]string, 0, len(profile))
	for k := range profile {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(profile[k], 'g', -1, 64))
		b.WriteByte(';')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:16]
}

func coefficientOfVariation(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	mean := sum / float64(len(samples))
	if mean == 0 {
		return 0
	}

	var sq float64
	for _, s := range samples {
		d := s - mean
		sq += d * d
	}
	stddev := math.Sqrt(sq / float64(len(samples)-1))
	return math.Abs(stddev / mean)
}
