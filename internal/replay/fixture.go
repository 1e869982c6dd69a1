package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/action-kernel/internal/catalog"
	"github.com/danielpatrickdp/action-kernel/internal/engine"
	"github.com/danielpatrickdp/action-kernel/internal/state"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description   string               `json:"description"`
	Coefficients  *engine.Coefficients `json:"coefficients,omitempty"`
	Motions       []string             `json:"motions"`
	ExpectedFinal state.GaugeState     `json:"expected_final"`
}

// FixtureOutcome compares a fixture run against its expectation.
type FixtureOutcome struct {
	Result
	Expected state.GaugeState
	Match    bool
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToCoefficients returns the fixture's bundle, or the defaults when omitted.
func (f *Fixture) ToCoefficients() engine.Coefficients {
	if f.Coefficients == nil {
		return engine.DefaultCoefficients()
	}
	return *f.Coefficients
}

// Run replays the fixture against the built-in catalog.
func (f *Fixture) Run() (FixtureOutcome, error) {
	r, err := New(catalog.Default(), f.ToCoefficients())
	if err != nil {
		return FixtureOutcome{}, err
	}
	res, err := r.ReplaySequence(f.Motions)
	out := FixtureOutcome{Result: res, Expected: f.ExpectedFinal}
	if err != nil {
		return out, err
	}
	out.Match = state.Equal(res.FinalState, f.ExpectedFinal)
	return out, nil
}

// #endregion fixture-loader
