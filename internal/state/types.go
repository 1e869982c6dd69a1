package state

import "fmt"

// #region gauge
// Gauge names one of the six scalar gauges.
type Gauge uint8

const (
	Stability Gauge = iota
	Pressure
	Drag
	Momentum
	Volatility
	Recovery

	NumGauges = int(Recovery) + 1
)

var gaugeNames = [NumGauges]string{
	Stability:  "stability",
	Pressure:   "pressure",
	Drag:       "drag",
	Momentum:   "momentum",
	Volatility: "volatility",
	Recovery:   "recovery",
}

func (g Gauge) String() string {
	if int(g) < NumGauges {
		return gaugeNames[g]
	}
	return fmt.Sprintf("gauge(%d)", uint8(g))
}

// Gauges lists every gauge in canonical order.
func Gauges() [NumGauges]Gauge {
	return [NumGauges]Gauge{Stability, Pressure, Drag, Momentum, Volatility, Recovery}
}

// #endregion gauge

// #region gauge-state
// GaugeState is the six-gauge physical state plus the number of applied steps.
// It is a plain value; copies never alias.
type GaugeState struct {
	Stability  float64 `json:"stability" yaml:"stability"`
	Pressure   float64 `json:"pressure" yaml:"pressure"`
	Drag       float64 `json:"drag" yaml:"drag"`
	Momentum   float64 `json:"momentum" yaml:"momentum"`
	Volatility float64 `json:"volatility" yaml:"volatility"`
	Recovery   float64 `json:"recovery" yaml:"recovery"`
	StepCount  uint64  `json:"step_count" yaml:"step_count"`
}

// Default returns the gauge values a fresh session starts from.
func Default() GaugeState {
	return GaugeState{
		Stability:  0.67,
		Pressure:   0.45,
		Drag:       0.62,
		Momentum:   0.55,
		Volatility: 0.30,
		Recovery:   0.50,
	}
}

// Get returns the value of gauge g.
func (s GaugeState) Get(g Gauge) float64 {
	switch g {
	case Stability:
		return s.Stability
	case Pressure:
		return s.Pressure
	case Drag:
		return s.Drag
	case Momentum:
		return s.Momentum
	case Volatility:
		return s.Volatility
	case Recovery:
		return s.Recovery
	}
	panic(fmt.Sprintf("state: %s out of range", g))
}

// With returns a copy of s with gauge g set to v.
func (s GaugeState) With(g Gauge, v float64) GaugeState {
	switch g {
	case Stability:
		s.Stability = v
	case Pressure:
		s.Pressure = v
	case Drag:
		s.Drag = v
	case Momentum:
		s.Momentum = v
	case Volatility:
		s.Volatility = v
	case Recovery:
		s.Recovery = v
	default:
		panic(fmt.Sprintf("state: %s out of range", g))
	}
	return s
}

// Values returns the gauges in canonical order.
func (s GaugeState) Values() [NumGauges]float64 {
	return [NumGauges]float64{s.Stability, s.Pressure, s.Drag, s.Momentum, s.Volatility, s.Recovery}
}

// #endregion gauge-state
