package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/action-kernel/internal/autotune"
	"github.com/danielpatrickdp/action-kernel/internal/chain"
	"github.com/danielpatrickdp/action-kernel/internal/config"
	"github.com/danielpatrickdp/action-kernel/internal/logging"
	"github.com/danielpatrickdp/action-kernel/internal/state"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	failureSession string

	tuneApply bool
	tuneOut   string
	tuneJSON  bool
)

// reportFailureCmd records a failed session for the tuner
var reportFailureCmd = &cobra.Command{
	Use:   "report-failure",
	Short: "Record a session's averaged gauges as a failure snapshot",
	Long: `Averages the snapshots of a verified ledger session and stores the result as
a failure snapshot. The tuner reads these; nothing else does.`,
	RunE: runReportFailure,
}

// tuneCmd proposes a coefficient bundle from recorded failures
var tuneCmd = &cobra.Command{
	Use:   "tune",
	Short: "Propose coefficient adjustments from recorded failures",
	Long: `Classifies the dominant failure pattern, proposes a bounded coefficient
bundle and appends the proposal to the tuning log.

Nothing changes unless --apply is given, in which case the proposed bundle is
written to --out (default: the --coefficients path). Running kernels never
change; restart them with the new bundle.`,
	RunE: runTune,
}

func init() {
	reportFailureCmd.Flags().StringVar(&failureSession, "session", "", "ledger session id")
	_ = reportFailureCmd.MarkFlagRequired("session")

	tuneCmd.Flags().BoolVar(&tuneApply, "apply", false, "write the proposed bundle")
	tuneCmd.Flags().StringVar(&tuneOut, "out", "", "bundle path to write (default: --coefficients)")
	tuneCmd.Flags().BoolVar(&tuneJSON, "json", false, "output as JSON")
}

// #region report-failure
func runReportFailure(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.LoadChain(ctx, failureSession)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("session %s has no entries", failureSession)
	}
	if err := chain.VerifyEntries(entries).Err(); err != nil {
		return fmt.Errorf("session %s: %w", failureSession, err)
	}

	snaps := make([]state.GaugeState, len(entries))
	for i, e := range entries {
		snaps[i] = e.Snapshot
	}
	fs, err := store.RecordFailure(ctx, autotune.FailureSnapshot{
		SessionID:     failureSession,
		GaugeAverages: autotune.AverageStates(snaps),
		RecordedAt:    time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	logger.Info("failure recorded", zap.String("snapshot", fs.ID), zap.String("session", fs.SessionID))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "recorded failure %s for session %s (%d snapshots)\n", fs.ID, fs.SessionID, len(snaps))
	gaugeHeader(out)
	gaugeRow(out, "average", fs.GaugeAverages)
	return nil
}
// #endregion report-failure

// #region tune
func runTune(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	target := tuneOut
	if target == "" {
		target = coeffPath
	}
	if tuneApply && target == "" {
		return errors.New("--apply needs --out or --coefficients")
	}

	current, err := loadCoefficients()
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	tuner := autotune.NewTuner(store, store, autotune.DefaultConfig())
	p, err := tuner.Propose(ctx, current, tuneApply)
	if err != nil {
		return err
	}
	logger.Info("tuning proposal", logging.ProposalFields(p)...)

	if p.Applied {
		if err := config.SaveCoefficients(target, p.ID, p.Proposed); err != nil {
			return err
		}
	}

	if tuneJSON {
		return printJSON(out, p)
	}
	fmt.Fprintf(out, "Proposal %s\n", p.ID)
	fmt.Fprintf(out, "  pattern=%s confidence=%.2f samples=%d\n", p.Pattern, p.Confidence, p.SampleCount)
	fmt.Fprintf(out, "  %s\n", p.Reason)
	printCoefficientDiff(cmd, p)
	switch {
	case p.NoOp():
		fmt.Fprintln(out, "No change proposed.")
	case p.Applied:
		fmt.Fprintf(out, "Applied: wrote %s\n", target)
	default:
		fmt.Fprintln(out, "Not applied (use --apply).")
	}
	return nil
}

func printCoefficientDiff(cmd *cobra.Command, p autotune.Proposal) {
	out := cmd.OutOrStdout()
	rows := []struct {
		name     string
		cur, next float64
	}{
		{"delta", p.Current.Delta, p.Proposed.Delta},
		{"pressure_decay", p.Current.PressureDecay, p.Proposed.PressureDecay},
		{"volatility_decay", p.Current.VolatilityDecay, p.Proposed.VolatilityDecay},
		{"recovery_decay", p.Current.RecoveryDecay, p.Proposed.RecoveryDecay},
		{"pressure_bleed", p.Current.PressureBleed, p.Proposed.PressureBleed},
		{"recovery_transfer", p.Current.RecoveryTransfer, p.Proposed.RecoveryTransfer},
	}
	for _, r := range rows {
		if r.cur != r.next {
			fmt.Fprintf(out, "  %-18s %.5f -> %.5f\n", r.name, r.cur, r.next)
		}
	}
}
// #endregion tune
