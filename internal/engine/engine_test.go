package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/danielpatrickdp/action-kernel/internal/catalog"
	"github.com/danielpatrickdp/action-kernel/internal/state"
)

const eps = 1e-12

func near(a, b float64) bool { return math.Abs(a-b) < eps }

// quiet has no gauge above any coupling trigger.
func quiet() state.GaugeState {
	return state.GaugeState{
		Stability:  0.5,
		Pressure:   0.4,
		Drag:       0.25,
		Momentum:   0.5,
		Volatility: 0.3,
		Recovery:   0.4,
	}
}

func TestClamp(t *testing.T) {
	if Clamp(1.2, 0.05, 0.95) != 0.95 {
		t.Error("expected saturation at max")
	}
	if Clamp(-3, 0.05, 0.95) != 0.05 {
		t.Error("expected saturation at min")
	}
	if Clamp(0.5, 0.05, 0.95) != 0.5 {
		t.Error("expected passthrough")
	}
	if !math.IsNaN(Clamp(math.NaN(), 0.05, 0.95)) {
		t.Error("expected NaN to pass through")
	}
}

func TestApplyDecay(t *testing.T) {
	c := DefaultCoefficients()
	got := ApplyDecay(state.Default(), c)

	if !near(got.Pressure, 0.445) || !near(got.Volatility, 0.297) || !near(got.Recovery, 0.498) {
		t.Fatalf("unexpected decay result: %+v", got)
	}
	if got.Stability != 0.67 || got.Momentum != 0.55 || got.Drag != 0.62 {
		t.Fatal("decay touched a gauge it does not own")
	}
}

func TestApplyDecaySaturatesAtMin(t *testing.T) {
	c := DefaultCoefficients()
	s := quiet()
	s.Pressure = c.MinGauge
	got := ApplyDecay(s, c)
	if got.Pressure != c.MinGauge {
		t.Fatalf("expected pressure pinned at %v, got %v", c.MinGauge, got.Pressure)
	}
}

func TestApplyMotionDeltas(t *testing.T) {
	c := DefaultCoefficients()
	s := quiet()

	acc := ApplyMotion(s, catalog.CategoryAccelerate, c)
	if !near(acc.Momentum, 0.6) || !near(acc.Pressure, 0.45) || !near(acc.Stability, 0.45) || !near(acc.Drag, 0.22) {
		t.Errorf("accelerate deltas wrong: %+v", acc)
	}

	stab := ApplyMotion(s, catalog.CategoryStabilize, c)
	if !near(stab.Stability, 0.6) || !near(stab.Pressure, 0.3) || !near(stab.Momentum, 0.45) {
		t.Errorf("stabilize deltas wrong: %+v", stab)
	}

	rec := ApplyMotion(s, catalog.CategoryRecover, c)
	if !near(rec.Recovery, 0.5) || !near(rec.Volatility, 0.25) || !near(rec.Pressure, 0.35) || !near(rec.Drag, 0.25+0.1/3) {
		t.Errorf("recover deltas wrong: %+v", rec)
	}

	if admin := ApplyMotion(s, catalog.CategoryAdministrative, c); !state.Equal(admin, s) {
		t.Errorf("administrative motion changed gauges: %+v", admin)
	}
}

func TestEveryCategoryHasTableRow(t *testing.T) {
	for i := 0; i < catalog.NumCategories; i++ {
		cat := catalog.Category(i)
		if cat != catalog.CategoryAdministrative && len(motionTable[cat]) == 0 {
			t.Errorf("category %s has no deltas", cat)
		}
	}
}

func TestCouplingPressureBleed(t *testing.T) {
	c := DefaultCoefficients()
	s := quiet()
	s.Pressure = 0.7
	got := ApplyCoupling(s, c)
	if !near(got.Volatility, 0.32) {
		t.Fatalf("expected volatility 0.32, got %v", got.Volatility)
	}
}

func TestCouplingRecoveryTransfer(t *testing.T) {
	c := DefaultCoefficients()
	s := quiet()
	s.Recovery = 0.8
	got := ApplyCoupling(s, c)
	if !near(got.Stability, 0.56) || !near(got.Recovery, 0.77) {
		t.Fatalf("expected stability 0.56 recovery 0.77, got %+v", got)
	}

	// no transfer once stability is high enough
	s.Stability = 0.75
	if got := ApplyCoupling(s, c); got.Recovery != 0.8 {
		t.Fatalf("expected recovery untouched, got %v", got.Recovery)
	}
}

func TestCouplingInversePairs(t *testing.T) {
	c := DefaultCoefficients()

	s := quiet()
	s.Stability = 0.9
	s.Volatility = 0.8
	got := ApplyCoupling(s, c)
	if !near(got.Stability, 0.89) || !near(got.Volatility, 0.79) {
		t.Errorf("stability/volatility coupling wrong: %+v", got)
	}

	s = quiet()
	s.Momentum = 0.8
	s.Drag = 0.7
	got = ApplyCoupling(s, c)
	if !near(got.Drag, 0.69) || !near(got.Momentum, 0.79) {
		t.Errorf("momentum/drag coupling wrong: %+v", got)
	}
}

func TestAdvanceSaturatesUnderRepetition(t *testing.T) {
	c := DefaultCoefficients()

	s := state.Default()
	for i := 0; i < 10; i++ {
		s = Advance(s, catalog.CategoryAccelerate, c)
	}
	if s.Momentum != c.MaxGauge {
		t.Errorf("expected momentum saturated at %v, got %v", c.MaxGauge, s.Momentum)
	}

	s = state.Default()
	for i := 0; i < 10; i++ {
		s = Advance(s, catalog.CategoryRecover, c)
	}
	if s.Pressure != c.MinGauge || s.Drag != c.MaxGauge || s.Recovery != c.MaxGauge {
		t.Errorf("expected pressure/drag/recovery saturated, got %+v", s)
	}
	if v := CheckInvariants(s, c, "test"); v != nil {
		t.Fatalf("unexpected violation: %v", v)
	}
}

func TestAdvanceLeavesStepCount(t *testing.T) {
	s := state.Default()
	s.StepCount = 7
	got := Advance(s, catalog.CategoryStabilize, DefaultCoefficients())
	if got.StepCount != 7 {
		t.Fatalf("expected step count untouched, got %d", got.StepCount)
	}
}

func TestAdvancePanicsOnInvariantViolation(t *testing.T) {
	c := DefaultCoefficients()
	s := state.Default()
	s.Momentum = math.NaN()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("expected error payload, got %T", r)
		}
		var iv *InvariantViolation
		if !errors.As(err, &iv) {
			t.Fatalf("expected *InvariantViolation, got %T", r)
		}
		if iv.Gauge != state.Momentum || iv.Stage != "decay" {
			t.Fatalf("unexpected violation detail: %+v", iv)
		}
	}()
	Advance(s, catalog.CategoryStabilize, c)
}

func TestCheckInvariants(t *testing.T) {
	c := DefaultCoefficients()
	if v := CheckInvariants(state.Default(), c, "x"); v != nil {
		t.Fatalf("unexpected violation: %v", v)
	}
	bad := state.Default()
	bad.Drag = 0.99
	v := CheckInvariants(bad, c, "x")
	if v == nil || v.Gauge != state.Drag {
		t.Fatalf("expected drag violation, got %v", v)
	}
	if v.Error() == "" {
		t.Fatal("expected error text")
	}
}

func TestCanAdvance(t *testing.T) {
	c := DefaultCoefficients()
	cases := []struct {
		momentum, drag float64
		want           bool
	}{
		{0.5, 0.59, true},
		{0.49, 0.2, false},
		{0.9, 0.6, false},
		{0.9, 0.1, true},
	}
	for _, tc := range cases {
		if got := CanAdvance(tc.momentum, tc.drag, c); got != tc.want {
			t.Errorf("CanAdvance(%v, %v) = %v, want %v", tc.momentum, tc.drag, got, tc.want)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultCoefficients().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	bad := []func(*Coefficients){
		func(c *Coefficients) { c.Delta = 0 },
		func(c *Coefficients) { c.PressureDecay = -0.1 },
		func(c *Coefficients) { c.PressureBleed = math.NaN() },
		func(c *Coefficients) { c.MaxGauge = math.Inf(1) },
		func(c *Coefficients) { c.MinGauge, c.MaxGauge = 0.9, 0.1 },
		func(c *Coefficients) { c.RecoveryTransfer = 1.5 },
	}
	for i, mutate := range bad {
		c := DefaultCoefficients()
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}
