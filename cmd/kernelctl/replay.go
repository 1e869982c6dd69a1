package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/danielpatrickdp/action-kernel/internal/chain"
	"github.com/danielpatrickdp/action-kernel/internal/kernel"
	"github.com/danielpatrickdp/action-kernel/internal/replay"
	"github.com/danielpatrickdp/action-kernel/internal/state"
	"github.com/spf13/cobra"
)

var (
	replaySession string
	replayFixture string
	replayRuns    int
)

// replayCmd re-executes a recorded session or a fixture
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a ledger session or a JSON fixture and compare bit for bit",
	Long: `Ledger mode (--session) verifies the stored chain, replays its motions on a
fresh kernel and compares every step's state hash with the record.

Fixture mode (--fixture) replays the fixture's motions and compares the final
gauges with its expectation.

Exits 1 on any divergence.`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replaySession, "session", "", "ledger session id (ledger mode)")
	replayCmd.Flags().StringVar(&replayFixture, "fixture", "", "fixture JSON path (fixture mode)")
	replayCmd.Flags().IntVar(&replayRuns, "runs", 1, "additional parallel runs that must agree exactly")
	replayCmd.MarkFlagsMutuallyExclusive("session", "fixture")
	replayCmd.MarkFlagsOneRequired("session", "fixture")
}

func runReplay(cmd *cobra.Command, args []string) error {
	if replayFixture != "" {
		return runFixtureMode(cmd, replayFixture)
	}
	return runLedgerMode(cmd, replaySession)
}

// #region ledger-mode
func runLedgerMode(cmd *cobra.Command, sessionID string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	info, err := store.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	entries, err := store.LoadChain(ctx, sessionID)
	if err != nil {
		return err
	}
	if rep := chain.VerifyEntries(entries); !rep.Valid {
		fmt.Fprintf(out, "chain failed verification at index %d; replay halted\n", rep.FirstInvalid)
		return errFailed
	}

	// the session's own bundle, not the current one
	k, err := kernel.New(defaultCatalog(), info.Coefficients)
	if err != nil {
		return err
	}
	replayed := make([]state.Digest, len(entries))
	for i, e := range entries {
		res, err := k.Step(e.MotionID)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		replayed[i] = state.Hash(res.State)
	}
	if code := printComparison(out, entries, replayed); code != 0 {
		return errFailed
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.MotionID
	}
	r, err := replay.New(defaultCatalog(), info.Coefficients)
	if err != nil {
		return err
	}
	return checkDeterminism(cmd, r, ids)
}

// printComparison outputs a per-step hash comparison and returns an exit code.
func printComparison(w io.Writer, entries []chain.Entry, replayed []state.Digest) int {
	fmt.Fprintf(w, "%-6s| %-15s| %-13s| %-13s| %s\n", "Index", "Motion", "Recorded", "Replayed", "Match")
	fmt.Fprintf(w, "%-6s+%-16s+%-14s+%-14s+%s\n",
		"------", "----------------", "--------------", "--------------", "------")

	matches := 0
	for i, e := range entries {
		match := "DIFF"
		if replayed[i] == e.StateHash {
			match = "OK"
			matches++
		}
		fmt.Fprintf(w, "%-6d| %-15s| %-13s| %-13s| %s\n", e.Index, e.MotionID, e.StateHash, replayed[i], match)
	}

	diverge := len(entries) - matches
	fmt.Fprintf(w, "\nSummary: %d total, %d match, %d diverge\n", len(entries), matches, diverge)
	if diverge > 0 {
		return 1
	}
	return 0
}
// #endregion ledger-mode

// #region fixture-mode
func runFixtureMode(cmd *cobra.Command, path string) error {
	out := cmd.OutOrStdout()
	f, err := replay.LoadFixture(path)
	if err != nil {
		return err
	}
	res, err := f.Run()
	var unknown *kernel.UnknownMotionError
	if errors.As(err, &unknown) {
		fmt.Fprintf(out, "fixture references %v after %d step(s)\n", err, res.Steps)
		return errFailed
	}
	if err != nil {
		return err
	}

	if f.Description != "" {
		fmt.Fprintln(out, f.Description)
	}
	gaugeHeader(out)
	gaugeRow(out, "expected", res.Expected)
	gaugeRow(out, "replayed", res.FinalState)
	fmt.Fprintf(out, "\nSummary: %d motions, match=%v, deterministic=%v\n", len(f.Motions), res.Match, res.Deterministic)
	if !res.Match || !res.Deterministic {
		return errFailed
	}

	r, err := replay.New(defaultCatalog(), f.ToCoefficients())
	if err != nil {
		return err
	}
	return checkDeterminism(cmd, r, f.Motions)
}
// #endregion fixture-mode

func checkDeterminism(cmd *cobra.Command, r *replay.Replayer, ids []string) error {
	if replayRuns <= 1 {
		return nil
	}
	rep, err := r.VerifyDeterminism(cmd.Context(), ids, replayRuns)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Determinism: %d runs, deterministic=%v, all_match=%v\n", rep.Runs, rep.Deterministic, rep.AllMatch)
	if !rep.AllMatch {
		return errFailed
	}
	return nil
}
