package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bimakw/tokendata/internal/config"
	"github.com/bimakw/tokendata/internal/logger"
	"github.com/bimakw/tokendata/internal/metrics"
)

// app carries what every subcommand shares
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Pipeline
	verbose  bool
}

func newApp(cfg *config.Config) *app {
	registry := prometheus.NewRegistry()
	return &app{
		cfg:      cfg,
		logger:   zap.NewNop(),
		registry: registry,
		metrics:  metrics.NewPipeline(registry),
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "tokendata",
		Short: "Maintain per-chain ERC-20 token metadata tables",
		Long: `tokendata builds and maintains the per-chain token lookup tables
(address_to_metadata.json, names_to_address.json, tickers_to_address.json).

Flags default to the values loaded from the environment.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfg.Log.Level, "log-level", a.cfg.Log.Level, "log level (debug, info, warn, error)")
	pf.StringVar(&a.cfg.Log.Format, "log-format", a.cfg.Log.Format, "log format (json, console)")
	pf.BoolVar(&a.verbose, "verbose", false, "log every token query and result (same as --log-level debug)")
	pf.StringVar(&a.cfg.Metrics.PushgatewayURL, "pushgateway", a.cfg.Metrics.PushgatewayURL, "Prometheus Pushgateway URL; empty disables pushing")

	root.AddCommand(
		newNormalizeCmd(a),
		newFetchCmd(a),
		newTopPoolsCmd(a),
		newPublishCmd(a),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	level := a.cfg.Log.Level
	if a.verbose {
		level = "debug"
	}

	l, err := logger.New(level, a.cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	a.logger = l

	logFlags(cmd, l)

	return nil
}

// finish pushes the run's metrics and flushes the logger
func (a *app) finish() {
	if url := a.cfg.Metrics.PushgatewayURL; url != "" {
		if err := metrics.Push(url, a.cfg.Metrics.Job, a.registry); err != nil {
			a.logger.Warn("Failed to push metrics", zap.String("url", url), zap.Error(err))
		} else {
			a.logger.Debug("Pushed metrics", zap.String("url", url), zap.String("job", a.cfg.Metrics.Job))
		}
	}
	_ = a.logger.Sync()
}
