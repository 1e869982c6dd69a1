package autotune

import (
	"context"
	"errors"
	"testing"

	"github.com/danielpatrickdp/action-kernel/internal/engine"
	"github.com/danielpatrickdp/action-kernel/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSource struct {
	snaps []FailureSnapshot
	err   error
}

func (m *memSource) ScanFailures(ctx context.Context, fn func(FailureSnapshot) error) error {
	if m.err != nil {
		return m.err
	}
	for _, s := range m.snaps {
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}

type memLog struct {
	proposals []Proposal
}

func (m *memLog) AppendProposal(ctx context.Context, p Proposal) error {
	m.proposals = append(m.proposals, p)
	return nil
}

func snaps(n int, g state.GaugeState) []FailureSnapshot {
	out := make([]FailureSnapshot, n)
	for i := range out {
		out[i] = FailureSnapshot{SessionID: "s", GaugeAverages: g}
	}
	return out
}

var neutral = state.GaugeState{Stability: 0.6, Pressure: 0.4, Drag: 0.4, Momentum: 0.5, Volatility: 0.3, Recovery: 0.5}

func TestClassify(t *testing.T) {
	th := DefaultConfig().Thresholds
	tests := []struct {
		name string
		avg  state.GaugeState
		want Pattern
	}{
		{"balanced", neutral, PatternBalanced},
		{"high volatility", neutral.With(state.Volatility, 0.7), PatternHighEntropy},
		{"high pressure", neutral.With(state.Pressure, 0.75), PatternHighPressure},
		{"low momentum", neutral.With(state.Momentum, 0.2), PatternLowGrowth},
		{"low stability", neutral.With(state.Stability, 0.3), PatternLowConsistency},
		{"low recovery", neutral.With(state.Recovery, 0.1), PatternEnergyDrain},
		{"widest margin wins", neutral.With(state.Pressure, 0.65).With(state.Recovery, 0.05), PatternEnergyDrain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.avg, th))
		})
	}
}

func TestProposeNoDataIsNoOp(t *testing.T) {
	log := &memLog{}
	tuner := NewTuner(&memSource{}, log, DefaultConfig())
	cur := engine.DefaultCoefficients()

	p, err := tuner.Propose(context.Background(), cur, true)
	require.NoError(t, err)
	assert.True(t, p.NoOp())
	assert.False(t, p.Applied)
	assert.Equal(t, 0, p.SampleCount)
	assert.Zero(t, p.Confidence)
	assert.Equal(t, PatternBalanced, p.Pattern)
	assert.NotEmpty(t, p.ID)
	require.Len(t, log.proposals, 1, "no-op proposals are still logged")
}

func TestProposeAdjustsPatternCoefficients(t *testing.T) {
	cur := engine.DefaultCoefficients()
	tests := []struct {
		name  string
		avg   state.GaugeState
		check func(t *testing.T, p engine.Coefficients)
	}{
		{"entropy", neutral.With(state.Volatility, 0.8), func(t *testing.T, p engine.Coefficients) {
			assert.Greater(t, p.VolatilityDecay, cur.VolatilityDecay)
			assert.Less(t, p.PressureBleed, cur.PressureBleed)
		}},
		{"pressure", neutral.With(state.Pressure, 0.8), func(t *testing.T, p engine.Coefficients) {
			assert.Greater(t, p.PressureDecay, cur.PressureDecay)
		}},
		{"growth", neutral.With(state.Momentum, 0.1), func(t *testing.T, p engine.Coefficients) {
			assert.InDelta(t, cur.Delta*1.1, p.Delta, 1e-12)
		}},
		{"consistency", neutral.With(state.Stability, 0.2), func(t *testing.T, p engine.Coefficients) {
			assert.Greater(t, p.RecoveryTransfer, cur.RecoveryTransfer)
		}},
		{"drain", neutral.With(state.Recovery, 0.1), func(t *testing.T, p engine.Coefficients) {
			assert.Less(t, p.RecoveryDecay, cur.RecoveryDecay)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tuner := NewTuner(&memSource{snaps: snaps(4, tt.avg)}, &memLog{}, DefaultConfig())
			p, err := tuner.Propose(context.Background(), cur, false)
			require.NoError(t, err)
			assert.False(t, p.NoOp())
			assert.False(t, p.Applied)
			assert.InDelta(t, 0.4, p.Confidence, 1e-12)
			require.NoError(t, p.Proposed.Validate())
			tt.check(t, p.Proposed)
		})
	}
}

func TestProposeRespectsSafetyRanges(t *testing.T) {
	cfg := DefaultConfig()
	cur := engine.DefaultCoefficients()
	cur.Delta = 0.29
	cur.RecoveryDecay = 0.0011

	growth := NewTuner(&memSource{snaps: snaps(20, neutral.With(state.Momentum, 0.1))}, &memLog{}, cfg)
	p, err := growth.Propose(context.Background(), cur, true)
	require.NoError(t, err)
	assert.Equal(t, cfg.Safety.Delta.Max, p.Proposed.Delta)
	assert.Equal(t, 1.0, p.Confidence)
	assert.True(t, p.Applied)

	drain := NewTuner(&memSource{snaps: snaps(20, neutral.With(state.Recovery, 0.1))}, &memLog{}, cfg)
	p, err = drain.Propose(context.Background(), cur, false)
	require.NoError(t, err)
	assert.Equal(t, cfg.Safety.Decay.Min, p.Proposed.RecoveryDecay)
}

func TestProposeSaturatedCoefficientIsNoOp(t *testing.T) {
	cfg := DefaultConfig()
	cur := engine.DefaultCoefficients()
	cur.Delta = cfg.Safety.Delta.Max

	tuner := NewTuner(&memSource{snaps: snaps(3, neutral.With(state.Momentum, 0.1))}, &memLog{}, cfg)
	p, err := tuner.Propose(context.Background(), cur, true)
	require.NoError(t, err)
	assert.Equal(t, PatternLowGrowth, p.Pattern)
	assert.True(t, p.NoOp())
	assert.False(t, p.Applied)
}

func TestProposeSourceError(t *testing.T) {
	log := &memLog{}
	tuner := NewTuner(&memSource{err: errors.New("disk gone")}, log, DefaultConfig())
	_, err := tuner.Propose(context.Background(), engine.DefaultCoefficients(), false)
	require.Error(t, err)
	assert.Empty(t, log.proposals)
}

func TestAverageStates(t *testing.T) {
	a := state.GaugeState{Stability: 0.2, Pressure: 0.4, Drag: 0.6, Momentum: 0.8, Volatility: 0.1, Recovery: 0.3}
	b := state.GaugeState{Stability: 0.4, Pressure: 0.6, Drag: 0.2, Momentum: 0.4, Volatility: 0.3, Recovery: 0.5}
	avg := AverageStates([]state.GaugeState{a, b})
	assert.InDelta(t, 0.3, avg.Stability, 1e-12)
	assert.InDelta(t, 0.5, avg.Pressure, 1e-12)
	assert.InDelta(t, 0.4, avg.Drag, 1e-12)
	assert.InDelta(t, 0.6, avg.Momentum, 1e-12)
	assert.InDelta(t, 0.2, avg.Volatility, 1e-12)
	assert.InDelta(t, 0.4, avg.Recovery, 1e-12)
	assert.Equal(t, uint64(2), avg.StepCount)

	assert.Equal(t, state.GaugeState{}, AverageStates(nil))
}
