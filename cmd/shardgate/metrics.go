package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nsrs/shardgate/router/metrics"
)

const defaultMetricsAddr = ":9090"

var metricsAddr string

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "serve Prometheus metrics until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := metricsAddr
		if addr == "" {
			addr = cfg.MetricsAddr
		}
		if addr == "" {
			addr = defaultMetricsAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return metrics.Serve(ctx, addr)
	},
}

func init() {
	metricsCmd.Flags().StringVar(&metricsAddr, "addr", "", "listen address, defaults to metrics_addr from config")
}
