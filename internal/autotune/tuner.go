package autotune

import (
	"context"
	"fmt"
	"time"

	"github.com/danielpatrickdp/action-kernel/internal/engine"
	"github.com/danielpatrickdp/action-kernel/internal/state"
	"github.com/google/uuid"
)

// #region tuner
// Tuner proposes coefficient adjustments from failure history. It never
// changes a running kernel; applying a proposal is the caller's job.
type Tuner struct {
	source SnapshotSource
	log    TuningLog
	config Config
	now    func() time.Time
}

// NewTuner creates a tuner reading from source and appending to log.
func NewTuner(source SnapshotSource, log TuningLog, config Config) *Tuner {
	return &Tuner{
		source: source,
		log:    log,
		config: config,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Propose averages every recorded failure, classifies the dominant pattern and
// computes a bounded coefficient set. apply only marks the logged proposal as
// applied; the returned Proposed bundle is what the caller installs.
func (t *Tuner) Propose(ctx context.Context, current engine.Coefficients, apply bool) (Proposal, error) {
	var sum [state.NumGauges]float64
	n := 0
	err := t.source.ScanFailures(ctx, func(fs FailureSnapshot) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i, v := range fs.GaugeAverages.Values() {
			sum[i] += v
		}
		n++
		return nil
	})
	if err != nil {
		return Proposal{}, fmt.Errorf("scan failures: %w", err)
	}

	p := Proposal{
		ID:          uuid.New().String(),
		Pattern:     PatternBalanced,
		SampleCount: n,
		Current:     current,
		Proposed:    current,
		CreatedAt:   t.now(),
	}

	if n == 0 {
		p.Reason = "no failure snapshots recorded"
	} else {
		p.Averages = averages(sum, n)
		p.Pattern = Classify(p.Averages, t.config.Thresholds)
		p.Proposed = Adjust(current, p.Pattern, t.config)
		p.Confidence = confidence(n, t.config.SaturationSamples)
		p.Reason = fmt.Sprintf("%d snapshot(s), dominant pattern %s", n, p.Pattern)
	}
	if p.NoOp() {
		p.Confidence = 0
	}
	p.Applied = apply && !p.NoOp()

	if err := t.log.AppendProposal(ctx, p); err != nil {
		return Proposal{}, fmt.Errorf("append proposal: %w", err)
	}
	return p, nil
}

// #endregion tuner

// #region classify
// Classify returns the pattern whose threshold the averages exceed by the
// widest margin, or PatternBalanced when none is exceeded.
func Classify(avg state.GaugeState, th Thresholds) Pattern {
	candidates := []struct {
		pattern Pattern
		margin  float64
	}{
		{PatternHighEntropy, avg.Volatility - th.HighVolatility},
		{PatternHighPressure, avg.Pressure - th.HighPressure},
		{PatternLowGrowth, th.LowMomentum - avg.Momentum},
		{PatternLowConsistency, th.LowStability - avg.Stability},
		{PatternEnergyDrain, th.LowRecovery - avg.Recovery},
	}
	best := PatternBalanced
	bestMargin := 0.0
	for _, c := range candidates {
		// ties keep the earlier pattern
		if c.margin >= 0 && (best == PatternBalanced || c.margin > bestMargin) {
			best, bestMargin = c.pattern, c.margin
		}
	}
	return best
}

// #endregion classify

// #region adjust
// Adjust moves the coefficients tied to p by StepFraction of their current
// value and clamps the result into the safety ranges.
func Adjust(c engine.Coefficients, p Pattern, cfg Config) engine.Coefficients {
	up := func(v float64, r Range) float64 { return engine.Clamp(v*(1+cfg.StepFraction), r.Min, r.Max) }
	down := func(v float64, r Range) float64 { return engine.Clamp(v*(1-cfg.StepFraction), r.Min, r.Max) }
	s := cfg.Safety

	switch p {
	case PatternHighEntropy:
		c.VolatilityDecay = up(c.VolatilityDecay, s.Decay)
		c.PressureBleed = down(c.PressureBleed, s.Coupling)
	case PatternHighPressure:
		c.PressureDecay = up(c.PressureDecay, s.Decay)
	case PatternLowGrowth:
		c.Delta = up(c.Delta, s.Delta)
	case PatternLowConsistency:
		c.RecoveryTransfer = up(c.RecoveryTransfer, s.Coupling)
	case PatternEnergyDrain:
		c.RecoveryDecay = down(c.RecoveryDecay, s.Decay)
	case PatternBalanced:
	}
	return c
}

// #endregion adjust

// #region helpers
func averages(sum [state.NumGauges]float64, n int) state.GaugeState {
	var avg state.GaugeState
	for i, g := range state.Gauges() {
		avg = avg.With(g, sum[i]/float64(n))
	}
	return avg
}

func confidence(n, saturation int) float64 {
	if saturation <= 0 || n >= saturation {
		return 1
	}
	return float64(n) / float64(saturation)
}

// AverageStates builds the gauge averages a reporter records for a failed
// session. StepCount carries the number of states averaged.
func AverageStates(states []state.GaugeState) state.GaugeState {
	if len(states) == 0 {
		return state.GaugeState{}
	}
	var sum [state.NumGauges]float64
	for _, s := range states {
		for i, v := range s.Values() {
			sum[i] += v
		}
	}
	avg := averages(sum, len(states))
	avg.StepCount = uint64(len(states))
	return avg
}

// #endregion helpers
