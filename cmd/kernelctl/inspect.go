package main

import (
	"fmt"
	"io"

	"github.com/danielpatrickdp/action-kernel/internal/chain"
	"github.com/danielpatrickdp/action-kernel/internal/ledger"
	"github.com/danielpatrickdp/action-kernel/internal/state"
	"github.com/spf13/cobra"
)

var (
	inspectSession string
	inspectLast    int
	inspectJSON    bool
)

// inspectCmd lists sessions or shows one session's chain
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "List ledger sessions, or show one session's entries",
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectSession, "session", "", "show entries for one session")
	inspectCmd.Flags().IntVar(&inspectLast, "last", 20, "show N most recent sessions")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "output as JSON instead of table")
}

func runInspect(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if inspectSession != "" {
		return runDetailMode(cmd, store, inspectSession)
	}
	return runListMode(cmd, store)
}

// #region list-mode
type listRow struct {
	SessionID string `json:"session_id"`
	Catalog   string `json:"catalog_version"`
	Entries   int    `json:"entries"`
	CreatedAt string `json:"created_at"`
}

func runListMode(cmd *cobra.Command, store *ledger.Store) error {
	out := cmd.OutOrStdout()
	sessions, err := store.Sessions(cmd.Context(), inspectLast)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "no sessions found")
		return nil
	}

	rows := make([]listRow, len(sessions))
	for i, s := range sessions {
		rows[i] = listRow{
			SessionID: s.ID,
			Catalog:   s.CatalogVersion,
			Entries:   s.Entries,
			CreatedAt: s.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}
	if inspectJSON {
		return printJSON(out, rows)
	}

	fmt.Fprintf(out, "%-10s  %-12s  %7s  %s\n", "Session", "Catalog", "Entries", "Created")
	fmt.Fprintf(out, "%-10s+-%-12s+-%7s+-%s\n", "----------", "------------", "-------", "--------------------")
	for _, r := range rows {
		fmt.Fprintf(out, "%-10s  %-12s  %7d  %s\n", shortID(r.SessionID), r.Catalog, r.Entries, r.CreatedAt)
	}
	return nil
}
// #endregion list-mode

// #region detail-mode
type detailRow struct {
	Index     uint64           `json:"index"`
	Motion    string           `json:"motion_id"`
	StateHash string           `json:"state_hash"`
	EntryHash string           `json:"entry_hash"`
	Timestamp string           `json:"timestamp"`
	Snapshot  state.GaugeState `json:"snapshot"`
}

func runDetailMode(cmd *cobra.Command, store *ledger.Store, sessionID string) error {
	out := cmd.OutOrStdout()
	info, err := store.Session(cmd.Context(), sessionID)
	if err != nil {
		return err
	}
	entries, err := store.LoadChain(cmd.Context(), sessionID)
	if err != nil {
		return err
	}
	rep := chain.VerifyEntries(entries)

	if inspectJSON {
		rows := make([]detailRow, len(entries))
		for i, e := range entries {
			rows[i] = detailRow{
				Index:     e.Index,
				Motion:    e.MotionID,
				StateHash: e.StateHash.Hex(),
				EntryHash: e.EntryHash.Hex(),
				Timestamp: e.Timestamp.Format("2006-01-02T15:04:05.000000000Z"),
				Snapshot:  e.Snapshot,
			}
		}
		return printJSON(out, map[string]any{
			"session_id":   info.ID,
			"catalog":      info.CatalogVersion,
			"coefficients": info.Coefficients,
			"valid":        rep.Valid,
			"entries":      rows,
		})
	}

	fmt.Fprintf(out, "Session:  %s\n", info.ID)
	fmt.Fprintf(out, "Catalog:  %s\n", info.CatalogVersion)
	fmt.Fprintf(out, "Created:  %s\n", info.CreatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(out, "Entries:  %d (valid=%v)\n\n", len(entries), rep.Valid)
	printEntries(out, entries)
	return nil
}

func printEntries(w io.Writer, entries []chain.Entry) {
	fmt.Fprintf(w, "%-6s| %-14s| %6s| %6s| %6s| %6s| %6s| %6s| %5s| %s\n",
		"Index", "Motion", "Stab", "Press", "Drag", "Mom", "Vol", "Rec", "Step", "Hash")
	for _, e := range entries {
		s := e.Snapshot
		fmt.Fprintf(w, "%-6d| %-14s| %6.3f| %6.3f| %6.3f| %6.3f| %6.3f| %6.3f| %5d| %s\n",
			e.Index, e.MotionID, s.Stability, s.Pressure, s.Drag, s.Momentum, s.Volatility, s.Recovery, s.StepCount, e.StateHash)
	}
}
// #endregion detail-mode
