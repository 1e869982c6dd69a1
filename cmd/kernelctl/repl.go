package main

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/danielpatrickdp/action-kernel/internal/chain"
	"github.com/danielpatrickdp/action-kernel/internal/kernel"
	"github.com/danielpatrickdp/action-kernel/internal/logging"
	"github.com/danielpatrickdp/action-kernel/internal/replay"
	"github.com/danielpatrickdp/action-kernel/internal/validator"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var replSession string

// replCmd steps motions interactively
var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Step motions interactively and persist the chain",
	Long: `Reads one command per line:
  <motion_id>     apply a motion (see 'motions')
  motions         list the catalog
  state           print the current gauges
  verify          verify the chain so far
  check <text>    validate narrative text
  quit            exit

With --session an existing ledger session is verified, rebuilt and continued.`,
	RunE: runREPL,
}

func init() {
	replCmd.Flags().StringVar(&replSession, "session", "", "resume this ledger session")
}

// #region repl
func runREPL(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	coeff, err := loadCoefficients()
	if err != nil {
		return err
	}
	cat := defaultCatalog()

	var (
		k  *kernel.Kernel
		c  *chain.Chain
		id = replSession
	)
	if id != "" {
		// the session continues under its own bundle
		info, err := store.Session(ctx, id)
		if err != nil {
			return err
		}
		replayer, err := replay.New(cat, info.Coefficients)
		if err != nil {
			return err
		}
		entries, err := store.LoadChain(ctx, id)
		if err != nil {
			return err
		}
		if k, c, err = replayer.Resume(entries); err != nil {
			return fmt.Errorf("resume %s: %w", id, err)
		}
		logger.Info("session resumed", zap.String("session", id), zap.Int("length", c.Len()))
	} else {
		id = uuid.New().String()
		if k, err = kernel.New(cat, coeff); err != nil {
			return err
		}
		c = chain.New()
		if err := store.CreateSession(ctx, id, cat.Version(), coeff, time.Now().UTC()); err != nil {
			return err
		}
		logger.Info("session opened", zap.String("session", id))
	}
	v := validator.Default()

	fmt.Fprintln(out, "Action kernel ready.")
	fmt.Fprintf(out, "  DB: %s | Session: %s | Catalog: %s\n", dbPath, id, cat.Version())
	fmt.Fprintln(out, "Type a motion id (or 'quit' to exit):")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		verb, rest, _ := strings.Cut(line, " ")

		switch verb {
		case "quit", "exit":
			return nil
		case "motions":
			for _, m := range cat.Motions() {
				fmt.Fprintf(out, "  %-14s %-15s %s\n", m.ID, m.Category, m.Description)
			}
		case "state":
			gaugeHeader(out)
			gaugeRow(out, "current", k.State())
			fmt.Fprintf(out, "can advance: %v\n", k.CanAdvance())
		case "verify":
			rep := c.Verify()
			fmt.Fprintf(out, "valid=%v length=%d\n", rep.Valid, rep.Length)
		case "check":
			res := v.Validate(rest)
			fmt.Fprintf(out, "valid=%v policy=%s\n", res.IsValid, res.PolicyVersion)
			for _, viol := range res.Violations {
				fmt.Fprintf(out, "  %s %s %q\n", viol.Type, viol.Rule, viol.Excerpt)
			}
		default:
			res, err := k.Step(verb)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			e := c.Append(verb, res.State)
			if err := store.AppendEntries(ctx, id, e); err != nil {
				return fmt.Errorf("persist entry %d: %w", e.Index, err)
			}
			logger.Debug("step", logging.EntryFields(id, e)...)
			fmt.Fprintf(out, "[%d] %s (%s) step=%d hash=%s can_advance=%v\n",
				e.Index, verb, res.Category, res.StepCount(), e.StateHash, k.CanAdvance())
		}
	}
	return scanner.Err()
}
// #endregion repl
