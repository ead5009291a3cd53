package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"

	"duoalloc/pkg/metrics"
	"duoalloc/pkg/report"
	"duoalloc/pkg/simulation"
)

var runCmd = &cobra.Command{
	Use:     "run",
	Aliases: []string{"r"},
	Short:   "run a simulation and write per-minute results",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSimulation(); err != nil {
			klog.Fatalf("Simulation failed: %v", err)
		}
	},
}

// configMapLoader overlays a policy ConfigMap; replaced in tests.
var configMapLoader = loadConfigMap

// buildConfig layers defaults, policy file, ConfigMap, environment and flags.
func buildConfig(ctx context.Context) (*simulation.Config, error) {
	cfg := simulation.DefaultConfig()

	if path := viper.GetString(flagPolicy); path != "" {
		if err := cfg.LoadFromFile(path); err != nil {
			return nil, err
		}
		klog.InfoS("Loaded policy file", "path", path)
	}

	if ref := viper.GetString(flagConfigMap); ref != "" {
		if err := configMapLoader(ctx, cfg, ref, viper.GetString(flagKubeconfig)); err != nil {
			return nil, err
		}
	}

	cfg.LoadFromEnvironment()

	if viper.IsSet(flagMinutes) {
		cfg.Minutes = viper.GetInt(flagMinutes)
	}
	if viper.IsSet(flagSeed) {
		cfg.Seed = viper.GetInt64(flagSeed)
	}
	if viper.IsSet(flagCSV) {
		cfg.CSVPath = viper.GetString(flagCSV)
	}
	if viper.IsSet(flagTickInterval) {
		cfg.TickInterval = viper.GetDuration(flagTickInterval)
	}
	if viper.IsSet(flagMetricsAddr) {
		cfg.MetricsAddr = viper.GetString(flagMetricsAddr)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.Log()
	return cfg, nil
}

func runSimulation() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := buildConfig(ctx)
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, recorder.Registry())
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var sinks []simulation.RowSink
	var csvWriter *report.CSVWriter
	if cfg.CSVPath != "" {
		f, err := os.Create(cfg.CSVPath)
		if err != nil {
			return fmt.Errorf("create csv: %w", err)
		}
		defer f.Close()
		csvWriter = report.NewCSVWriter(f)
		sinks = append(sinks, csvWriter)
	}

	summary, runErr := simulation.NewDefaultRunner(cfg, recorder, sinks...).Run(ctx)

	if csvWriter != nil {
		if err := csvWriter.Flush(); err != nil {
			return fmt.Errorf("flush csv: %w", err)
		}
		klog.InfoS("Wrote CSV", "path", cfg.CSVPath, "rows", csvWriter.Rows())
	}

	if viper.GetBool(flagSummary) {
		summary.Render(os.Stdout)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		klog.InfoS("Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			klog.ErrorS(err, "Metrics server stopped")
		}
	}()
	return srv
}
