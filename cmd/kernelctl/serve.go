package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/danielpatrickdp/action-kernel/internal/rpc"
	"github.com/danielpatrickdp/action-kernel/internal/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serveAddr     string
	serveEndpoint string
)

// serveCmd hosts KernelService over gRPC
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve KernelService over gRPC",
	Long: `Hosts sessions over gRPC (actionkernel.v1.KernelService) with the standard
health service. Every step is written through to the ledger; sessions can be
resumed after a restart. Stops gracefully on SIGINT/SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", cfg.Addr, "listen address (env KERNEL_ADDR)")
	serveCmd.Flags().StringVar(&serveEndpoint, "otel-endpoint", cfg.OTelEndpoint, "OTLP/HTTP trace endpoint (env KERNEL_OTEL_ENDPOINT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	shutdown, err := telemetry.Setup(ctx, "action-kernel", serveEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	coeff, err := loadCoefficients()
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := rpc.NewServer(defaultCatalog(), coeff, rpc.WithStore(store), rpc.WithLogger(logger))
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", serveAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", serveAddr, err)
	}
	return rpc.NewHost(svc, logger).Serve(ctx, lis)
}
