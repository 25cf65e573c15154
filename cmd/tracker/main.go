// Encounter tracker daemon: polls the screen, recognizes encounter text,
// debounces it into discrete events, and keeps a crash-safe count.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GriffinCanCode/encounter-tracker/internal/command"
	"github.com/GriffinCanCode/encounter-tracker/internal/config"
	"github.com/GriffinCanCode/encounter-tracker/internal/controller"
	"github.com/GriffinCanCode/encounter-tracker/internal/counter"
	"github.com/GriffinCanCode/encounter-tracker/internal/detect"
	apperrors "github.com/GriffinCanCode/encounter-tracker/internal/errors"
	"github.com/GriffinCanCode/encounter-tracker/internal/frame"
	"github.com/GriffinCanCode/encounter-tracker/internal/metrics"
	"github.com/GriffinCanCode/encounter-tracker/internal/pidfile"
	"github.com/GriffinCanCode/encounter-tracker/internal/recognize"
	"github.com/GriffinCanCode/encounter-tracker/internal/server"
	"github.com/GriffinCanCode/encounter-tracker/internal/store"
)

func main() {
	level := slog.LevelInfo
	if os.Getenv("TRACKER_DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	pid, err := pidfile.Acquire(cfg.PIDPath)
	if err != nil {
		slog.Error("startup refused", "error", err)
		os.Exit(1)
	}
	defer func() { _ = pid.Release() }()

	st := store.New(cfg.StatePath)
	initial := loadState(st)

	mtr := metrics.New()
	mtr.EncounterCount.Store(uint64(initial.Count))

	cached := recognize.NewCached(recognize.NewRemote(recognize.RemoteConfig{
		Endpoint: cfg.OCREndpoint,
		Model:    cfg.OCRModel,
		APIKey:   cfg.OCRAPIKey,
	}), cfg.MaxHashDistance)
	cached.WithHook(func() { mtr.CacheHits.Add(1) })

	source := frame.NewScreenSource(cfg.DisplayIndex, frame.Region{
		X:      cfg.RegionX,
		Y:      cfg.RegionY,
		Width:  cfg.RegionWidth,
		Height: cfg.RegionHeight,
	})
	defer source.Close()

	ctrl := controller.New(cfg, controller.Deps{
		Source:     source,
		Recognizer: cached,
		Detector: detect.New(detect.Config{
			Threshold: cfg.ConfidenceThreshold,
			Confirm:   cfg.ConfirmCount,
			Cooldown:  cfg.Cooldown,
		}),
		Counter: counter.New(initial),
		Store:   st,
		Metrics: mtr,
	})

	srv := server.New(ctrl, mtr.Handler())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl.Start(ctx)

	watcher := command.NewWatcher(cfg.CommandPath)
	go watcher.Run(ctx)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("tracker starting",
			"http", cfg.HTTPAddr,
			"poll_interval", cfg.PollInterval,
			"count", initial.Count,
			"running", initial.Running)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

loop:
	for {
		select {
		case <-sigCh:
			break loop
		case cmd := <-watcher.Commands():
			slog.Info("file command received", "command", string(cmd))
			switch cmd {
			case command.Start:
				ctrl.Resume()
			case command.Pause:
				ctrl.Pause()
			case command.Reset:
				ctrl.Reset()
			case command.Quit:
				break loop
			}
		}
	}

	slog.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	ctrl.Stop()
	ctrl.Flush()
	slog.Info("shutdown complete")
}

// loadState reads the saved record. Missing state starts fresh and paused;
// corrupt state is preserved aside for inspection before starting fresh.
func loadState(st *store.Store) counter.State {
	rec, err := st.Load()
	switch {
	case err == nil:
		slog.Info("state restored", "count", rec.Count, "running", rec.Running)
		return counter.State{Count: rec.Count, Running: rec.Running, LastSavedCount: rec.Count}
	case apperrors.IsCode(err, apperrors.CodeStateNotFound):
		slog.Info("no saved state, starting fresh")
	case apperrors.IsCode(err, apperrors.CodeStateCorrupt):
		backup := st.Path() + ".corrupt"
		if renameErr := os.Rename(st.Path(), backup); renameErr == nil {
			slog.Error("state file corrupt, preserved and starting fresh",
				"error", err, "backup", backup)
		} else {
			slog.Error("state file corrupt, starting fresh", "error", err)
		}
	default:
		slog.Error("state load failed, starting fresh", "error", err)
	}
	return counter.State{}
}
