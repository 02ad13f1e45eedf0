package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/cwbudde/hypersmac/internal/benchmark"
	"github.com/cwbudde/hypersmac/internal/config"
	"github.com/cwbudde/hypersmac/internal/opt"
	"github.com/cwbudde/hypersmac/internal/smbo"
	"github.com/cwbudde/hypersmac/internal/space"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	spacePath   string
	nTrials     int
	metricsAddr string
	finishPath  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Optimize the Branin benchmark",
	Long: `Builds an optimizer from a configuration tree and runs the Branin
benchmark through it. The search space defaults to the Branin domain.`,
	RunE: runOptimization,
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Configuration tree (YAML, required)")
	runCmd.Flags().StringVar(&spacePath, "space", "", "Search space definition (YAML)")
	runCmd.Flags().IntVar(&nTrials, "trials", 0, "Number of trials (0 = scenario n_trials)")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	runCmd.Flags().StringVar(&finishPath, "output", "", "Path handed to the optimizer when the run finishes")

	runCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(runCmd)
}

// buildOptimizer loads, resolves and instantiates the tree, then builds an adapter.
func buildOptimizer(cs *space.Space, path string, metrics *prometheus.Registry) (*opt.SMACAdapter, error) {
	tree, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	reg := opt.NewRegistry(metrics)
	resolvers := config.NewResolvers()
	opt.RegisterResolvers(resolvers, reg, cs)

	resolved, err := resolvers.Resolve(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config: %w", err)
	}
	instantiated, err := config.Instantiate(resolved, reg)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate config: %w", err)
	}

	factory := opt.NewFactory(reg)
	factory.Logger = slog.Default()
	return factory.Build(cs, instantiated)
}

func runOptimization(cmd *cobra.Command, args []string) error {
	cs := benchmark.BraninSpace()
	if spacePath != "" {
		loaded, err := space.Load(spacePath)
		if err != nil {
			return fmt.Errorf("failed to load space: %w", err)
		}
		cs = loaded
	}

	metrics := prometheus.NewRegistry()
	adapter, err := buildOptimizer(cs, configPath, metrics)
	if err != nil {
		return err
	}

	trials := nTrials
	var sweepOpts []benchmark.SweepOption
	if engine, ok := adapter.Engine().(*smbo.Engine); ok {
		if trials <= 0 {
			trials = engine.Scenario().NTrials
		}
		sweepOpts = append(sweepOpts, benchmark.WithStopCheck(engine.Stopped))
	}

	if metricsAddr != "" {
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           promhttp.HandlerFor(metrics, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			slog.Info("Serving metrics", "addr", metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	result, err := benchmark.Sweep(ctx, adapter, benchmark.BraninObjective, trials, finishPath, sweepOpts...)
	if err != nil {
		return err
	}

	slog.Info("Run complete", "elapsed", time.Since(start), "trials", result.Trials)
	fmt.Fprintf(cmd.OutOrStdout(), "Best performance %.6f at %v (%d trials, total cost %.2f)\n",
		result.BestPerformance, result.BestConfig, result.Trials, result.TotalCost)
	return nil
}
