package state

import (
	"math"
	"testing"
)

func TestCanonicalRoundTrip(t *testing.T) {
	s := GaugeState{
		Stability:  0.1,
		Pressure:   0.2,
		Drag:       0.3,
		Momentum:   0.4,
		Volatility: 0.5,
		Recovery:   0.6,
		StepCount:  42,
	}
	b := Canonical(s)
	if len(b) != CanonicalSize {
		t.Fatalf("expected %d bytes, got %d", CanonicalSize, len(b))
	}
	if got := DecodeCanonical(b); !Equal(got, s) {
		t.Fatalf("round trip mismatch: %+v != %+v", got, s)
	}
}

func TestHashSensitiveToEveryField(t *testing.T) {
	base := Default()
	h := Hash(base)
	for _, g := range Gauges() {
		changed := base.With(g, math.Nextafter(base.Get(g), 1))
		if Hash(changed) == h {
			t.Errorf("hash unchanged after one-ulp change to %s", g)
		}
	}
	stepped := base
	stepped.StepCount++
	if Hash(stepped) == h {
		t.Error("hash unchanged after step count change")
	}
}

func TestEqualIsBitwise(t *testing.T) {
	a := Default()
	b := a
	if !Equal(a, b) {
		t.Fatal("expected copies to be equal")
	}
	b.Momentum = math.Nextafter(b.Momentum, 0)
	if Equal(a, b) {
		t.Fatal("expected one-ulp difference to be unequal")
	}
	neg := a.With(Drag, math.Copysign(0, -1))
	pos := a.With(Drag, 0)
	if Equal(neg, pos) {
		t.Fatal("expected -0 and +0 to differ bitwise")
	}
}

func TestGetWith(t *testing.T) {
	s := GaugeState{}
	for i, g := range Gauges() {
		s = s.With(g, float64(i+1))
	}
	for i, g := range Gauges() {
		if s.Get(g) != float64(i+1) {
			t.Errorf("%s: expected %d, got %f", g, i+1, s.Get(g))
		}
	}
}

func TestParseDigest(t *testing.T) {
	d := Hash(Default())
	got, err := ParseDigest(d.Hex())
	if err != nil {
		t.Fatalf("ParseDigest: %v", err)
	}
	if got != d {
		t.Fatal("digest round trip mismatch")
	}
	if _, err := ParseDigest("abcd"); err == nil {
		t.Fatal("expected length error")
	}
	if _, err := ParseDigest("zz"); err == nil {
		t.Fatal("expected hex error")
	}
}

func TestDefaultWithinBounds(t *testing.T) {
	for _, v := range Default().Values() {
		if v < 0.05 || v > 0.95 {
			t.Fatalf("default gauge %f outside 0.05..0.95", v)
		}
	}
}
