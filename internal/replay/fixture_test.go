package replay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/action-kernel/internal/engine"
)

func TestFixtures(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.json"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(paths) == 0 {
		t.Fatal("no fixtures found")
	}
	for _, p := range paths {
		t.Run(filepath.Base(p), func(t *testing.T) {
			f, err := LoadFixture(p)
			if err != nil {
				t.Fatalf("LoadFixture: %v", err)
			}
			out, err := f.Run()
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if !out.Match {
				t.Fatalf("final state mismatch:\nwant %+v\ngot  %+v", out.Expected, out.FinalState)
			}
		})
	}
}

func TestFixtureOrderDivergence(t *testing.T) {
	a, err := LoadFixture(filepath.Join("testdata", "order_accelerate_first.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	b, err := LoadFixture(filepath.Join("testdata", "order_stabilize_first.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if a.ExpectedFinal.Momentum == b.ExpectedFinal.Momentum {
		t.Fatal("order fixtures should record different momentum")
	}
}

func TestFixtureDefaultCoefficients(t *testing.T) {
	f := &Fixture{}
	if f.ToCoefficients() != engine.DefaultCoefficients() {
		t.Fatal("expected defaults when coefficients omitted")
	}
}

func TestLoadFixtureErrors(t *testing.T) {
	if _, err := LoadFixture(filepath.Join("testdata", "missing.json")); err == nil {
		t.Fatal("expected read error")
	}
	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFixture(bad); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFixtureUnknownMotion(t *testing.T) {
	f := &Fixture{Motions: []string{"warp"}}
	if _, err := f.Run(); err == nil {
		t.Fatal("expected error")
	}
}
