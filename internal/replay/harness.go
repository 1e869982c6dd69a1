package replay

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/danielpatrickdp/action-kernel/internal/catalog"
	"github.com/danielpatrickdp/action-kernel/internal/chain"
	"github.com/danielpatrickdp/action-kernel/internal/engine"
	"github.com/danielpatrickdp/action-kernel/internal/kernel"
	"github.com/danielpatrickdp/action-kernel/internal/state"
	"golang.org/x/sync/errgroup"
)

// #region types
// Result is the outcome of replaying one sequence.
type Result struct {
	Success       bool
	Deterministic bool
	FinalState    state.GaugeState
	Steps         int
	// TraceDigest chains the state hash of every step.
	TraceDigest state.Digest
}

// DeterminismReport is the outcome of VerifyDeterminism.
type DeterminismReport struct {
	Runs int
	// Deterministic: every run ended in a bit-identical final state.
	Deterministic bool
	// AllMatch: every run also produced the same per-step trace as run 0.
	AllMatch   bool
	FinalState state.GaugeState
}

// ChainResult extends Result with the comparison against the chain's record.
type ChainResult struct {
	Result
	Recorded      state.GaugeState
	MatchesRecord bool
}

// #endregion types

// #region replayer
// Replayer re-executes motion sequences on throwaway kernels. It holds no
// mutable state and is safe for concurrent use.
type Replayer struct {
	catalog *catalog.Catalog
	coeff   engine.Coefficients
}

// New creates a replayer that builds kernels with the given catalog and bundle.
func New(cat *catalog.Catalog, coeff engine.Coefficients) (*Replayer, error) {
	// build one kernel up front so bad input fails here, not per replay
	if _, err := kernel.New(cat, coeff); err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	return &Replayer{catalog: cat, coeff: coeff}, nil
}

// run steps a fresh kernel through ids.
func (r *Replayer) run(ids []string) (Result, error) {
	k, err := kernel.New(r.catalog, r.coeff)
	if err != nil {
		return Result{}, err
	}
	var trace state.Digest
	for i, id := range ids {
		out, err := k.Step(id)
		if err != nil {
			return Result{FinalState: k.State(), Steps: i, TraceDigest: trace}, fmt.Errorf("step %d: %w", i, err)
		}
		h := state.Hash(out.State)
		trace = sha256.Sum256(append(trace[:], h[:]...))
	}
	return Result{Success: true, FinalState: k.State(), Steps: len(ids), TraceDigest: trace}, nil
}

// #endregion replayer

// #region replay-sequence
// ReplaySequence runs ids on a fresh kernel and, as a self-check, on a second
// one. Deterministic reports whether both agreed bit for bit. An unknown id
// aborts the replay with Success=false and a *kernel.UnknownMotionError.
func (r *Replayer) ReplaySequence(ids []string) (Result, error) {
	first, err := r.run(ids)
	if err != nil {
		return first, err
	}
	second, err := r.run(ids)
	if err != nil {
		return first, err
	}
	first.Deterministic = state.Equal(first.FinalState, second.FinalState) && first.TraceDigest == second.TraceDigest
	return first, nil
}

// #endregion replay-sequence

// #region verify-determinism
// VerifyDeterminism replays ids on runs independent kernels in parallel and
// compares them exactly. No tolerance is applied.
func (r *Replayer) VerifyDeterminism(ctx context.Context, ids []string, runs int) (DeterminismReport, error) {
	if runs < 1 {
		return DeterminismReport{}, fmt.Errorf("replay: runs must be at least 1, got %d", runs)
	}

	results := make([]Result, runs)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < runs; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := r.run(ids)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return DeterminismReport{Runs: runs}, err
	}

	rep := DeterminismReport{
		Runs:          runs,
		Deterministic: true,
		AllMatch:      true,
		FinalState:    results[0].FinalState,
	}
	for _, res := range results[1:] {
		if !state.Equal(res.FinalState, results[0].FinalState) {
			rep.Deterministic = false
		}
		if res.TraceDigest != results[0].TraceDigest {
			rep.AllMatch = false
		}
	}
	rep.AllMatch = rep.AllMatch && rep.Deterministic
	return rep, nil
}

// #endregion verify-determinism

// #region replay-from-chain
// ErrTampered wraps the chain's *chain.TamperError when ReplayFromChain refuses
// to run.
var ErrTampered = errors.New("replay: chain failed verification")

// ReplayFromChain verifies c, replays its motions and compares the final state
// with the last recorded snapshot. A tampered chain halts the replay.
func (r *Replayer) ReplayFromChain(c *chain.Chain) (ChainResult, error) {
	entries := c.Export()
	if err := chain.VerifyEntries(entries).Err(); err != nil {
		return ChainResult{}, fmt.Errorf("%w: %w", ErrTampered, err)
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.MotionID
	}
	res, err := r.ReplaySequence(ids)
	out := ChainResult{Result: res}
	if err != nil {
		return out, err
	}

	if len(entries) > 0 {
		out.Recorded = entries[len(entries)-1].Snapshot
	} else {
		// nothing recorded: the reference is a fresh kernel
		k, err := kernel.New(r.catalog, r.coeff)
		if err != nil {
			return out, err
		}
		out.Recorded = k.State()
	}
	out.MatchesRecord = state.Equal(res.FinalState, out.Recorded)
	return out, nil
}

// #endregion replay-from-chain

// #region resume
// Resume rebuilds a live kernel from persisted entries. The entries must
// verify, and re-stepping their motions must land on the last recorded
// snapshot. The returned chain continues after the last entry.
func (r *Replayer) Resume(entries []chain.Entry, opts ...chain.Option) (*kernel.Kernel, *chain.Chain, error) {
	if err := chain.VerifyEntries(entries).Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrTampered, err)
	}
	k, err := kernel.New(r.catalog, r.coeff)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range entries {
		if _, err := k.Step(e.MotionID); err != nil {
			return nil, nil, fmt.Errorf("resume at %d: %w", e.Index, err)
		}
	}
	if n := len(entries); n > 0 && !state.Equal(k.State(), entries[n-1].Snapshot) {
		return nil, nil, fmt.Errorf("%w: final state diverges from record", ErrTampered)
	}
	return k, chain.Restore(entries, opts...), nil
}

// #endregion resume
