// This file implements the serve command running the metricsd daemon.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anstrom/metricsd/internal/api"
	"github.com/anstrom/metricsd/internal/api/handlers"
	"github.com/anstrom/metricsd/internal/config"
	"github.com/anstrom/metricsd/internal/logging"
	"github.com/anstrom/metricsd/internal/metrics"
)

// PID file permissions.
const pidFilePerm = 0600

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the metricsd daemon",
	Long: `Start the metrics manager and serve its HTTP API until interrupted.
The daemon answers dump, enable/disable and self-test requests, exposes a
Prometheus endpoint and streams snapshots to WebSocket watchers.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logging.SetDefault(logger)
	handlers.SetBuildInfo(version, commit, buildTime)

	if cfg.Daemon.PIDFile != "" {
		if err := writePIDFile(cfg.Daemon.PIDFile); err != nil {
			return err
		}
		defer func() { _ = os.Remove(cfg.Daemon.PIDFile) }()
	}

	manager := metrics.NewManager()

	server, err := api.New(cfg, manager)
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Metrics.RuntimeSampling {
		sampler := metrics.NewRuntimeSampler(manager, cfg.Metrics.SampleInterval)
		go sampler.Run(ctx)
	}

	logger.Info("metricsd starting",
		"version", version,
		"address", server.Addr(),
		"runtime_sampling", cfg.Metrics.RuntimeSampling)

	if err := server.Start(ctx); err != nil {
		return err
	}

	logger.Info("metricsd stopped")
	return nil
}

func writePIDFile(path string) error {
	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(path, []byte(pid+"\n"), pidFilePerm); err != nil {
		return fmt.Errorf("failed to write PID file %s: %w", path, err)
	}
	return nil
}
