package kernel

import (
	"fmt"

	"github.com/danielpatrickdp/action-kernel/internal/catalog"
	"github.com/danielpatrickdp/action-kernel/internal/engine"
	"github.com/danielpatrickdp/action-kernel/internal/state"
)

// #region errors
// UnknownMotionError is returned by Step for ids missing from the catalog.
// Retrying with the same id will fail the same way.
type UnknownMotionError struct {
	MotionID string
}

func (e *UnknownMotionError) Error() string {
	return fmt.Sprintf("unknown motion %q", e.MotionID)
}

// #endregion errors

// #region step-outcome
// StepOutcome reports the state after one step.
type StepOutcome struct {
	MotionID string
	Category catalog.Category
	Mutated  bool // false for Level-3 motions
	State    state.GaugeState
}

// StepCount is a shortcut for State.StepCount.
func (o StepOutcome) StepCount() uint64 { return o.State.StepCount }

// #endregion step-outcome

// #region kernel
// Kernel owns one live GaugeState. It does no locking: one goroutine (or one
// caller-held lock) per kernel.
type Kernel struct {
	catalog *catalog.Catalog
	coeff   engine.Coefficients
	state   state.GaugeState
}

// New returns a kernel at the default gauge values, clamped into the bundle's bounds.
func New(cat *catalog.Catalog, coeff engine.Coefficients) (*Kernel, error) {
	if cat == nil {
		return nil, fmt.Errorf("kernel: nil catalog")
	}
	if err := coeff.Validate(); err != nil {
		return nil, fmt.Errorf("kernel: %w", err)
	}
	s := state.Default()
	for _, g := range state.Gauges() {
		s = s.With(g, engine.Clamp(s.Get(g), coeff.MinGauge, coeff.MaxGauge))
	}
	return &Kernel{catalog: cat, coeff: coeff, state: s}, nil
}

// Step applies one motion. Level-3 motions only advance the step counter.
func (k *Kernel) Step(motionID string) (StepOutcome, error) {
	m, ok := k.catalog.Lookup(motionID)
	if !ok {
		return StepOutcome{}, &UnknownMotionError{MotionID: motionID}
	}

	next := k.state
	if m.MutatesState {
		next = engine.Advance(next, m.Category, k.coeff)
	}
	next.StepCount++
	k.state = next

	return StepOutcome{
		MotionID: m.ID,
		Category: m.Category,
		Mutated:  m.MutatesState,
		State:    next,
	}, nil
}

// State returns a copy of the current gauges.
func (k *Kernel) State() state.GaugeState { return k.state }

// Coefficients returns the bundle the kernel was built with.
func (k *Kernel) Coefficients() engine.Coefficients { return k.coeff }

// Catalog returns the kernel's motion catalog.
func (k *Kernel) Catalog() *catalog.Catalog { return k.catalog }

// CanAdvance evaluates the progression predicate against the current state.
func (k *Kernel) CanAdvance() bool {
	return engine.CanAdvance(k.state.Momentum, k.state.Drag, k.coeff)
}

// #endregion kernel
