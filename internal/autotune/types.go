package autotune

import (
	"context"
	"time"

	"github.com/danielpatrickdp/action-kernel/internal/engine"
	"github.com/danielpatrickdp/action-kernel/internal/state"
)

// #region pattern
// Pattern is the dominant failure shape across recorded snapshots.
type Pattern string

const (
	PatternHighEntropy    Pattern = "high_entropy"
	PatternHighPressure   Pattern = "high_pressure"
	PatternLowGrowth      Pattern = "low_growth"
	PatternLowConsistency Pattern = "low_consistency"
	PatternEnergyDrain    Pattern = "energy_drain"
	PatternBalanced       Pattern = "balanced"
)

// #endregion pattern

// #region failure-snapshot
// FailureSnapshot is recorded by an external reporter when an outcome is
// judged negative. The tuner only reads it.
type FailureSnapshot struct {
	ID            string
	SessionID     string
	GaugeAverages state.GaugeState
	RecordedAt    time.Time
}

// #endregion failure-snapshot

// #region proposal
// Proposal is one tuning run's output. Every proposal is logged, applied or not.
type Proposal struct {
	ID          string              `json:"id"`
	Pattern     Pattern             `json:"pattern"`
	Confidence  float64             `json:"confidence"`
	SampleCount int                 `json:"sample_count"`
	Averages    state.GaugeState    `json:"averages"`
	Current     engine.Coefficients `json:"current"`
	Proposed    engine.Coefficients `json:"proposed"`
	Applied     bool                `json:"applied"`
	Reason      string              `json:"reason"`
	CreatedAt   time.Time           `json:"created_at"`
}

// NoOp reports whether the proposal leaves every coefficient unchanged.
func (p Proposal) NoOp() bool {
	return p.Proposed == p.Current
}

// #endregion proposal

// #region interfaces
// SnapshotSource yields recorded failures one at a time. Implementations stop
// early when fn returns an error.
type SnapshotSource interface {
	ScanFailures(ctx context.Context, fn func(FailureSnapshot) error) error
}

// TuningLog is the append-only record of proposals.
type TuningLog interface {
	AppendProposal(ctx context.Context, p Proposal) error
}

// #endregion interfaces

// #region config
// Thresholds are the averaged-gauge levels that mark each pattern.
type Thresholds struct {
	HighVolatility float64
	HighPressure   float64
	LowMomentum    float64
	LowStability   float64
	LowRecovery    float64
}

// Range is a hard safety range for one coefficient.
type Range struct {
	Min, Max float64
}

// SafetyRanges bound every tunable coefficient.
type SafetyRanges struct {
	Delta    Range
	Decay    Range
	Coupling Range
}

// Config holds tuner parameters.
type Config struct {
	Thresholds Thresholds
	Safety     SafetyRanges
	// StepFraction is the relative size of one adjustment.
	StepFraction float64
	// SaturationSamples is the sample count at which confidence reaches 1.
	SaturationSamples int
}

// DefaultConfig returns production tuner settings.
func DefaultConfig() Config {
	return Config{
		Thresholds: Thresholds{
			HighVolatility: 0.6,
			HighPressure:   0.6,
			LowMomentum:    0.35,
			LowStability:   0.4,
			LowRecovery:    0.3,
		},
		Safety: SafetyRanges{
			Delta:    Range{Min: 0.02, Max: 0.3},
			Decay:    Range{Min: 0.001, Max: 0.02},
			Coupling: Range{Min: 0.01, Max: 0.5},
		},
		StepFraction:      0.1,
		SaturationSamples: 10,
	}
}

// #endregion config
