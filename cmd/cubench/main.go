// Compute-unit benchmark harness. Runs a fixed vector set against a
// sandboxed program, prints the cost report and persists the run.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gateway-fm/cubench/internal/bench"
	"github.com/gateway-fm/cubench/internal/config"
	"github.com/gateway-fm/cubench/internal/metrics"
	"github.com/gateway-fm/cubench/internal/report"
	"github.com/gateway-fm/cubench/internal/storage"
	"github.com/gateway-fm/cubench/internal/transport"
	"github.com/gateway-fm/cubench/pkg/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "cubench: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	programID, err := cfg.ResolveProgramID()
	if err != nil {
		return err
	}

	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer store.Close()
	logger.Info("initialized storage", "path", cfg.DatabasePath)

	registry := prometheus.NewRegistry()
	prom := metrics.NewPrometheusMetrics(registry)

	ws := transport.NewWebSocketServer(logger)
	srv := transport.NewServer(cfg.ListenAddr, store, ws, registry, logger)
	if cfg.Serve {
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error("HTTP server failed", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	benchRun := &types.BenchRun{
		ID:           fmt.Sprintf("run-%d", time.Now().UnixNano()),
		StartedAt:    time.Now().UTC(),
		ArtifactPath: cfg.ArtifactPath,
		ProgramID:    programID.String(),
		Status:       types.StatusBooting,
	}
	if err := store.CreateBenchRun(ctx, benchRun); err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	prom.SetRunStatus(types.StatusBooting)

	runner, err := bench.Initialize(ctx, bench.Options{
		ArtifactPath:     cfg.ArtifactPath,
		ProgramID:        programID,
		FundingLamports:  cfg.FundingLamports,
		ComputeBudget:    cfg.ComputeBudget,
		Delay:            cfg.Delay,
		ZeroFillAverages: cfg.ZeroFillAvg,
		Logger:           logger,
		Prom:             prom,
		OnOutcome: func(index int, outcome types.ExecutionOutcome) {
			ws.BroadcastOutcome(types.OutcomeEvent{RunID: benchRun.ID, Index: index, Outcome: outcome})
		},
	})
	if err != nil {
		// Bootstrap failures are fatal for the run; mark it and stop.
		benchRun.Status = types.StatusError
		benchRun.ErrorMessage = err.Error()
		prom.SetRunStatus(types.StatusError)
		if serr := store.CompleteBenchRun(ctx, benchRun); serr != nil {
			logger.Error("failed to record run error", "error", serr)
		}
		return fmt.Errorf("bootstrapping sandbox: %w", err)
	}
	defer runner.Close(ctx)

	benchRun.Status = types.StatusRunning
	prom.SetRunStatus(types.StatusRunning)

	vectors := bench.DefaultVectors(cfg.Iterations)
	logger.Info("starting benchmark",
		"runId", benchRun.ID,
		"vectors", len(vectors),
		"iterations", cfg.Iterations)

	result, err := runner.Run(ctx, vectors)
	if err != nil {
		benchRun.Status = types.StatusError
		benchRun.ErrorMessage = err.Error()
		prom.SetRunStatus(types.StatusError)
		if serr := store.CompleteBenchRun(ctx, benchRun); serr != nil {
			logger.Error("failed to record run error", "error", serr)
		}
		return fmt.Errorf("running benchmark: %w", err)
	}

	if err := report.Render(os.Stdout, result); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}

	benchRun.Status = types.StatusCompleted
	benchRun.Report = result
	for _, o := range result.Outcomes {
		benchRun.Submitted++
		if o.Success {
			benchRun.Succeeded++
		} else {
			benchRun.Failed++
		}
	}
	prom.SetRunStatus(types.StatusCompleted)

	if err := store.CompleteBenchRun(ctx, benchRun); err != nil {
		logger.Error("failed to persist run", "error", err)
	}
	if err := store.BulkInsertOutcomes(ctx, benchRun.ID, result.Outcomes); err != nil {
		logger.Error("failed to persist outcomes", "error", err)
	}
	logger.Info("run persisted",
		"runId", benchRun.ID,
		"submitted", benchRun.Submitted,
		"succeeded", benchRun.Succeeded,
		"failed", benchRun.Failed)

	if cfg.Serve {
		logger.Info("serving run history", "addr", cfg.ListenAddr)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown failed", "error", err)
		}
	}

	return nil
}
