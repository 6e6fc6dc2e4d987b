package config

import (
	"log"
	"time"
)

// BucketMode selects how the reward pot is divided across hardware buckets.
type BucketMode string

const (
	// BucketModeEqualSplit gives every active bucket the same share of the
	// pot regardless of population.
	BucketModeEqualSplit BucketMode = "equal_split"
	// BucketModePressure scales each miner's weight by how crowded their
	// bucket is relative to an even spread.
	BucketModePressure BucketMode = "pressure"
)

// ProtocolConfig holds the challenge protocol settings.
type ProtocolConfig struct {
	// RoundInterval is the number of blocks between challenge rounds.
	RoundInterval int64
	// SlashThreshold is the failure count at which a validator is listed
	// for slashing.
	SlashThreshold int
	Logger         *log.Logger
}

func DefaultProtocolConfig() *ProtocolConfig {
	return &ProtocolConfig{
		RoundInterval:  10,
		SlashThreshold: 3,
		Logger:         log.Default(),
	}
}

// FleetConfig holds the coordination detector and reward settings.
type FleetConfig struct {
	// MinPopulation is the smallest epoch population the detectors run on.
	MinPopulation int
	// SubnetThreshold is the smallest subnet group treated as a cluster.
	SubnetThreshold int
	// TimingWindow is how close two attestation timestamps must be to count
	// as correlated.
	TimingWindow time.Duration
	// TimingThreshold is the fraction of other miners that must fall inside
	// the window before the timing signal fires.
	TimingThreshold float64

	// DecayCoeff scales how strongly the fleet score reduces rewards.
	DecayCoeff float64
	// FloorFraction is the lowest fraction of the base multiplier a decayed
	// miner can be left with.
	FloorFraction float64

	BucketMode BucketMode
	// PressureStrength controls how fast the pressure multiplier falls off
	// for overpopulated buckets.
	PressureStrength float64
	// MinBucketWeight is the floor of the pressure multiplier.
	MinBucketWeight float64

	Logger *log.Logger
}

func DefaultFleetConfig() *FleetConfig {
	return &FleetConfig{
		MinPopulation:    4,
		SubnetThreshold:  3,
		TimingWindow:     30 * time.Second,
		TimingThreshold:  0.6,
		DecayCoeff:       0.4,
		FloorFraction:    0.6,
		BucketMode:       BucketModeEqualSplit,
		PressureStrength: 0.5,
		MinBucketWeight:  0.3,
		Logger:           log.Default(),
	}
}
