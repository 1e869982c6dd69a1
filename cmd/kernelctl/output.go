package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/danielpatrickdp/action-kernel/internal/state"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func gaugeHeader(w io.Writer) {
	fmt.Fprintf(w, "%-10s| %8s| %8s| %8s| %8s| %8s| %8s| %s\n",
		"", "Stab", "Press", "Drag", "Mom", "Vol", "Rec", "Steps")
}

func gaugeRow(w io.Writer, label string, s state.GaugeState) {
	fmt.Fprintf(w, "%-10s| %8.4f| %8.4f| %8.4f| %8.4f| %8.4f| %8.4f| %d\n",
		label, s.Stability, s.Pressure, s.Drag, s.Momentum, s.Volatility, s.Recovery, s.StepCount)
}
