package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danielpatrickdp/action-kernel/internal/catalog"
	"github.com/danielpatrickdp/action-kernel/internal/config"
	"github.com/danielpatrickdp/action-kernel/internal/engine"
	"github.com/danielpatrickdp/action-kernel/internal/ledger"
	"github.com/danielpatrickdp/action-kernel/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	dbPath    string
	coeffPath string
	logLevel  string
	logDev    bool

	cfg, envErr = config.Load()

	// Logger
	logger *zap.Logger
)

// errFailed marks a command that ran to completion but whose result should
// exit non-zero (divergence, tampering, rejection). It has already been
// reported.
var errFailed = errors.New("check failed")

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "kernelctl",
	Short: "Deterministic action kernel: step, audit, replay and tune sessions",
	Long: `kernelctl drives the action kernel: a six-gauge state machine advanced by
catalogued motions, recorded in a hash-linked audit chain.

Sessions are persisted in a SQLite ledger (--db). Replays are bit-exact.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envErr != nil {
			return envErr
		}
		var err error
		logger, err = logging.New(logLevel, logDev)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", cfg.DBPath, "ledger database path (env KERNEL_DB)")
	rootCmd.PersistentFlags().StringVar(&coeffPath, "coefficients", cfg.CoefficientsPath, "coefficient bundle YAML (env KERNEL_COEFFICIENTS)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", cfg.LogLevel, "debug, info, warn or error (env KERNEL_LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVar(&logDev, "log-dev", cfg.LogDevelopment, "human-readable console logs (env KERNEL_LOG_DEV)")

	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(reportFailureCmd)
	rootCmd.AddCommand(tuneCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// #region helpers
func openStore() (*ledger.Store, error) {
	store, err := ledger.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", dbPath, err)
	}
	return store, nil
}

func loadCoefficients() (engine.Coefficients, error) {
	return config.LoadCoefficients(coeffPath)
}

func defaultCatalog() *catalog.Catalog {
	return catalog.Default()
}
// #endregion helpers
