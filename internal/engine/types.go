package engine

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/action-kernel/internal/state"
)

// #region coefficients
// Coefficients is the immutable parameter bundle a kernel is built with.
type Coefficients struct {
	Delta float64 `yaml:"delta" json:"delta"` // per-motion delta magnitude

	PressureDecay   float64 `yaml:"pressure_decay" json:"pressure_decay"`
	VolatilityDecay float64 `yaml:"volatility_decay" json:"volatility_decay"`
	RecoveryDecay   float64 `yaml:"recovery_decay" json:"recovery_decay"`

	PressureBleed    float64 `yaml:"pressure_bleed" json:"pressure_bleed"`       // k_pv
	RecoveryTransfer float64 `yaml:"recovery_transfer" json:"recovery_transfer"` // k_rs

	DragBlockThreshold float64 `yaml:"drag_block_threshold" json:"drag_block_threshold"`
	MomentumThreshold  float64 `yaml:"momentum_threshold" json:"momentum_threshold"`

	MinGauge float64 `yaml:"min_gauge" json:"min_gauge"`
	MaxGauge float64 `yaml:"max_gauge" json:"max_gauge"`
}

// DefaultCoefficients returns the production bundle.
func DefaultCoefficients() Coefficients {
	return Coefficients{
		Delta:              0.1,
		PressureDecay:      0.005,
		VolatilityDecay:    0.003,
		RecoveryDecay:      0.002,
		PressureBleed:      0.1,
		RecoveryTransfer:   0.2,
		DragBlockThreshold: 0.6,
		MomentumThreshold:  0.5,
		MinGauge:           0.05,
		MaxGauge:           0.95,
	}
}

// Validate rejects bundles the engine cannot run with.
func (c Coefficients) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"delta", c.Delta},
		{"pressure_decay", c.PressureDecay},
		{"volatility_decay", c.VolatilityDecay},
		{"recovery_decay", c.RecoveryDecay},
		{"pressure_bleed", c.PressureBleed},
		{"recovery_transfer", c.RecoveryTransfer},
		{"drag_block_threshold", c.DragBlockThreshold},
		{"momentum_threshold", c.MomentumThreshold},
		{"min_gauge", c.MinGauge},
		{"max_gauge", c.MaxGauge},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("coefficient %s: not finite", f.name)
		}
		if f.v < 0 || f.v > 1 {
			return fmt.Errorf("coefficient %s: %v outside [0, 1]", f.name, f.v)
		}
	}
	if c.Delta == 0 {
		return fmt.Errorf("coefficient delta: must be positive")
	}
	if c.MinGauge >= c.MaxGauge {
		return fmt.Errorf("clamp bounds: min %v must be below max %v", c.MinGauge, c.MaxGauge)
	}
	return nil
}

// #endregion coefficients

// #region invariant-violation
// InvariantViolation is the panic payload raised when a gauge leaves its clamp
// range after an engine operation. It marks an engine defect; callers must not
// recover from it and continue with the same state.
type InvariantViolation struct {
	Stage string
	Gauge state.Gauge
	Value float64
	Min   float64
	Max   float64
}

func (v *InvariantViolation) Error() string {
	return fmt.Sprintf("engine invariant violated after %s: %s=%v outside [%v, %v]",
		v.Stage, v.Gauge, v.Value, v.Min, v.Max)
}

// #endregion invariant-violation
