package engine

import (
	"github.com/danielpatrickdp/action-kernel/internal/catalog"
	"github.com/danielpatrickdp/action-kernel/internal/state"
)

// Coupling trigger levels. These are part of the model, not the tunable bundle.
const (
	pressureBleedLevel    = 0.5
	recoveryTransferLevel = 0.5
	recoveryStabilityCap  = 0.7
	volatilityHigh        = 0.7
	stabilityHigh         = 0.8
	momentumHigh          = 0.7
	dragEngaged           = 0.3
	dragHigh              = 0.6
	momentumEngaged       = 0.3
	inverseNudge          = 0.01
)

// #region motion-table
// term scales Delta onto one gauge.
type term struct {
	gauge state.Gauge
	scale float64
}

// motionTable is indexed by category; every category has a row.
var motionTable = [catalog.NumCategories][]term{
	catalog.CategoryAccelerate: {
		{state.Momentum, 1},
		{state.Pressure, 0.5},
		{state.Stability, -0.5},
		{state.Drag, -0.3},
	},
	catalog.CategoryStabilize: {
		{state.Stability, 1},
		{state.Pressure, -1},
		{state.Momentum, -0.5},
	},
	catalog.CategoryRecover: {
		{state.Recovery, 1},
		{state.Volatility, -0.5},
		{state.Pressure, -0.5},
		{state.Drag, 1.0 / 3},
	},
	catalog.CategoryAdministrative: nil,
}

// #endregion motion-table

// #region clamp
// Clamp saturates v into [lo, hi]. NaN passes through so the invariant check can catch it.
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (c Coefficients) clamp(v float64) float64 {
	return Clamp(v, c.MinGauge, c.MaxGauge)
}

// #endregion clamp

// #region decay
// ApplyDecay applies one tick of natural decay to pressure, volatility and recovery.
func ApplyDecay(s state.GaugeState, c Coefficients) state.GaugeState {
	s.Pressure = c.clamp(s.Pressure - c.PressureDecay)
	s.Volatility = c.clamp(s.Volatility - c.VolatilityDecay)
	s.Recovery = c.clamp(s.Recovery - c.RecoveryDecay)
	return s
}

// #endregion decay

// #region motion-delta
// ApplyMotion applies the category's deltas. Administrative motions are a no-op.
func ApplyMotion(s state.GaugeState, cat catalog.Category, c Coefficients) state.GaugeState {
	for _, t := range motionTable[cat] {
		// Explicit conversion rounds the product so it is never fused into the add.
		step := float64(c.Delta * t.scale)
		s = s.With(t.gauge, c.clamp(s.Get(t.gauge)+step))
	}
	return s
}

// #endregion motion-delta

// #region coupling
// ApplyCoupling applies the cross-gauge rules in their fixed order.
func ApplyCoupling(s state.GaugeState, c Coefficients) state.GaugeState {
	// pressure bleeds into volatility
	if s.Pressure > pressureBleedLevel {
		bleed := float64((s.Pressure - pressureBleedLevel) * c.PressureBleed)
		s.Volatility = c.clamp(s.Volatility + bleed)
	}

	// recovery feeds stability and is partially consumed
	if s.Recovery > recoveryTransferLevel && s.Stability < recoveryStabilityCap {
		transfer := float64((s.Recovery - recoveryTransferLevel) * c.RecoveryTransfer)
		s.Stability = c.clamp(s.Stability + transfer)
		s.Recovery = c.clamp(s.Recovery - float64(transfer*0.5))
	}

	// stability <-> volatility
	if s.Volatility > volatilityHigh {
		s.Stability = c.clamp(s.Stability - inverseNudge)
	}
	if s.Stability > stabilityHigh {
		s.Volatility = c.clamp(s.Volatility - inverseNudge)
	}

	// momentum <-> drag
	if s.Momentum > momentumHigh && s.Drag > dragEngaged {
		s.Drag = c.clamp(s.Drag - inverseNudge)
	}
	if s.Drag > dragHigh && s.Momentum > momentumEngaged {
		s.Momentum = c.clamp(s.Momentum - inverseNudge)
	}
	return s
}

// #endregion coupling

// #region advance
// Advance runs decay, then the motion delta, then coupling. The order is fixed;
// changing it changes every recorded trace. StepCount is left to the caller.
func Advance(s state.GaugeState, cat catalog.Category, c Coefficients) state.GaugeState {
	s = ApplyDecay(s, c)
	assertInvariants(s, c, "decay")
	s = ApplyMotion(s, cat, c)
	assertInvariants(s, c, "motion")
	s = ApplyCoupling(s, c)
	assertInvariants(s, c, "coupling")
	return s
}

// CanAdvance is the progression predicate. It has no side effects and the
// kernel never calls it.
func CanAdvance(momentum, drag float64, c Coefficients) bool {
	return drag < c.DragBlockThreshold && momentum >= c.MomentumThreshold
}

// #endregion advance

// #region invariants
func assertInvariants(s state.GaugeState, c Coefficients, stage string) {
	if v := CheckInvariants(s, c, stage); v != nil {
		panic(v)
	}
}

// CheckInvariants returns the first gauge outside the clamp range, or nil.
func CheckInvariants(s state.GaugeState, c Coefficients, stage string) *InvariantViolation {
	for _, g := range state.Gauges() {
		v := s.Get(g)
		// written so that NaN fails
		if !(v >= c.MinGauge && v <= c.MaxGauge) {
			return &InvariantViolation{Stage: stage, Gauge: g, Value: v, Min: c.MinGauge, Max: c.MaxGauge}
		}
	}
	return nil
}

// #endregion invariants
