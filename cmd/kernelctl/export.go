package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/action-kernel/internal/chain"
	"github.com/danielpatrickdp/action-kernel/internal/replay"
	"github.com/spf13/cobra"
)

var (
	exportSession string
	exportOut     string
)

// exportFixtureCmd turns a verified ledger session into a replay fixture
var exportFixtureCmd = &cobra.Command{
	Use:   "export-fixture",
	Short: "Export a ledger session as a replay fixture",
	Long: `Writes the session's motions, coefficient bundle and last recorded snapshot
as a JSON fixture for 'kernelctl replay --fixture'. The chain must verify.`,
	RunE: runExportFixture,
}

func init() {
	exportFixtureCmd.Flags().StringVar(&exportSession, "session", "", "ledger session id")
	exportFixtureCmd.Flags().StringVar(&exportOut, "out", "", "output fixture JSON path")
	_ = exportFixtureCmd.MarkFlagRequired("session")
	_ = exportFixtureCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportFixtureCmd)
}

func runExportFixture(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	info, err := store.Session(ctx, exportSession)
	if err != nil {
		return err
	}
	entries, err := store.LoadChain(ctx, exportSession)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("session %s has no entries", exportSession)
	}
	if err := chain.VerifyEntries(entries).Err(); err != nil {
		return fmt.Errorf("session %s: %w", exportSession, err)
	}

	coeff := info.Coefficients
	f := replay.Fixture{
		Description:   fmt.Sprintf("exported from session %s (%s)", info.ID, info.CatalogVersion),
		Coefficients:  &coeff,
		Motions:       make([]string, len(entries)),
		ExpectedFinal: entries[len(entries)-1].Snapshot,
	}
	for i, e := range entries {
		f.Motions[i] = e.MotionID
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(exportOut, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d motions to %s\n", len(f.Motions), exportOut)
	return nil
}
