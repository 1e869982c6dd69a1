package replay

import (
	"context"
	"errors"
	"testing"

	"github.com/danielpatrickdp/action-kernel/internal/catalog"
	"github.com/danielpatrickdp/action-kernel/internal/chain"
	"github.com/danielpatrickdp/action-kernel/internal/engine"
	"github.com/danielpatrickdp/action-kernel/internal/kernel"
	"github.com/danielpatrickdp/action-kernel/internal/state"
)

var mixed = []string{
	"accelerate", "intensify", "log_note", "push_deadline", "recover", "rest",
	"checkpoint", "hold", "drift", "consolidate", "accelerate", "audit_mark",
}

func newReplayer(t *testing.T) *Replayer {
	t.Helper()
	r, err := New(catalog.Default(), engine.DefaultCoefficients())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

// live steps a kernel through ids and records each step on a chain, the way
// a session would.
func live(t *testing.T, ids []string) (*kernel.Kernel, *chain.Chain) {
	t.Helper()
	k, err := kernel.New(catalog.Default(), engine.DefaultCoefficients())
	if err != nil {
		t.Fatalf("kernel.New: %v", err)
	}
	c := chain.New()
	for _, id := range ids {
		out, err := k.Step(id)
		if err != nil {
			t.Fatalf("Step(%s): %v", id, err)
		}
		c.Append(id, out.State)
	}
	return k, c
}

func TestNewRejectsBadCoefficients(t *testing.T) {
	c := engine.DefaultCoefficients()
	c.MinGauge = 2
	if _, err := New(catalog.Default(), c); err == nil {
		t.Fatal("expected error")
	}
}

func TestReplaySequence(t *testing.T) {
	r := newReplayer(t)
	res, err := r.ReplaySequence(mixed)
	if err != nil {
		t.Fatalf("ReplaySequence: %v", err)
	}
	if !res.Success || !res.Deterministic {
		t.Fatalf("expected success and determinism, got %+v", res)
	}
	if res.Steps != len(mixed) || res.FinalState.StepCount != uint64(len(mixed)) {
		t.Fatalf("expected %d steps, got %+v", len(mixed), res)
	}

	k, _ := live(t, mixed)
	if !state.Equal(res.FinalState, k.State()) {
		t.Fatalf("replay diverged from live kernel:\n%+v\n%+v", res.FinalState, k.State())
	}
}

func TestReplaySequenceEmpty(t *testing.T) {
	res, err := newReplayer(t).ReplaySequence(nil)
	if err != nil {
		t.Fatalf("ReplaySequence: %v", err)
	}
	if !res.Success || !state.Equal(res.FinalState, state.Default()) {
		t.Fatalf("empty replay should end at defaults, got %+v", res)
	}
}

func TestReplaySequenceUnknownMotion(t *testing.T) {
	res, err := newReplayer(t).ReplaySequence([]string{"accelerate", "warp", "hold"})
	if res.Success {
		t.Fatal("expected failure")
	}
	var ume *kernel.UnknownMotionError
	if !errors.As(err, &ume) || ume.MotionID != "warp" {
		t.Fatalf("expected unknown motion warp, got %v", err)
	}
	if res.Steps != 1 {
		t.Fatalf("expected replay to stop after 1 step, got %d", res.Steps)
	}
}

func TestVerifyDeterminism(t *testing.T) {
	r := newReplayer(t)
	for i := 0; i < 3; i++ {
		rep, err := r.VerifyDeterminism(context.Background(), mixed, 5)
		if err != nil {
			t.Fatalf("VerifyDeterminism: %v", err)
		}
		if !rep.Deterministic || !rep.AllMatch || rep.Runs != 5 {
			t.Fatalf("expected deterministic report, got %+v", rep)
		}
	}
}

func TestVerifyDeterminismErrors(t *testing.T) {
	r := newReplayer(t)
	if _, err := r.VerifyDeterminism(context.Background(), mixed, 0); err == nil {
		t.Fatal("expected error for zero runs")
	}
	if _, err := r.VerifyDeterminism(context.Background(), []string{"warp"}, 3); err == nil {
		t.Fatal("expected unknown motion error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.VerifyDeterminism(ctx, mixed, 3); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestReplayFromChainMatchesLiveKernel(t *testing.T) {
	k, c := live(t, mixed)

	res, err := newReplayer(t).ReplayFromChain(c)
	if err != nil {
		t.Fatalf("ReplayFromChain: %v", err)
	}
	if !res.MatchesRecord {
		t.Fatalf("expected replay to match record:\nreplayed %+v\nrecorded %+v", res.FinalState, res.Recorded)
	}
	if !state.Equal(res.FinalState, k.State()) {
		t.Fatal("replay from chain diverged from live kernel")
	}
}

func TestReplayFromChainEmpty(t *testing.T) {
	res, err := newReplayer(t).ReplayFromChain(chain.New())
	if err != nil {
		t.Fatalf("ReplayFromChain: %v", err)
	}
	if !res.MatchesRecord {
		t.Fatal("empty chain should match a fresh kernel")
	}
}

func TestReplayFromChainHaltsOnTamper(t *testing.T) {
	_, c := live(t, mixed)
	entries := c.Export()
	entries[4].Snapshot.Momentum = 0.9

	_, err := newReplayer(t).ReplayFromChain(chain.Restore(entries))
	if !errors.Is(err, ErrTampered) {
		t.Fatalf("expected ErrTampered, got %v", err)
	}
	var te *chain.TamperError
	if !errors.As(err, &te) || te.Errors[0] != 4 {
		t.Fatalf("expected tamper at 4, got %v", err)
	}
}

func TestReplayFromChainDetectsDifferentCoefficients(t *testing.T) {
	_, c := live(t, mixed)

	coeff := engine.DefaultCoefficients()
	coeff.Delta = 0.12
	r, err := New(catalog.Default(), coeff)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := r.ReplayFromChain(c)
	if err != nil {
		t.Fatalf("ReplayFromChain: %v", err)
	}
	if res.MatchesRecord {
		t.Fatal("expected mismatch when replaying with a different bundle")
	}
}

func TestResumeContinuesChain(t *testing.T) {
	k, c := live(t, mixed)

	resumed, rc, err := newReplayer(t).Resume(c.Export())
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if !state.Equal(resumed.State(), k.State()) {
		t.Fatal("resumed kernel diverged from live kernel")
	}
	out, err := resumed.Step("accelerate")
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	last, _ := c.Last()
	e := rc.Append("accelerate", out.State)
	if e.PrevHash != last.EntryHash || e.Index != uint64(c.Len()) {
		t.Fatalf("resumed chain does not continue the record: %+v", e)
	}
	if !rc.Verify().Valid {
		t.Fatal("resumed chain failed verification")
	}
}

func TestResumeRejectsDifferentCoefficients(t *testing.T) {
	_, c := live(t, mixed)
	coeff := engine.DefaultCoefficients()
	coeff.Delta = 0.12
	r, err := New(catalog.Default(), coeff)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, _, err := r.Resume(c.Export()); !errors.Is(err, ErrTampered) {
		t.Fatalf("expected ErrTampered, got %v", err)
	}
}
