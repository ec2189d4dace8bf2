package main

import (
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/VladMinzatu/objlocate/internal/collector"
	"github.com/VladMinzatu/objlocate/internal/config"
	"github.com/VladMinzatu/objlocate/internal/exporter"
	"github.com/VladMinzatu/objlocate/internal/imagebase"
	"github.com/VladMinzatu/objlocate/internal/locator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	strategy, err := locator.NewStrategy(cfg.Strategy, locator.WithRefreshInterval(cfg.RefreshInterval))
	if err != nil {
		slog.Error("Failed to initialise lookup strategy", "error", err)
		os.Exit(1)
	}
	images, err := imagebase.NewCachingProvider(imagebase.NewFileProvider(imagebase.WithRoot(cfg.Root)), cfg.ImageCacheSize)
	if err != nil {
		slog.Error("Failed to initialise image base cache", "error", err)
		os.Exit(1)
	}
	loc := locator.New(strategy, images)

	c, err := collector.NewCollector(cfg.Interval, collector.GoroutineSource{}, loc)
	if err != nil {
		slog.Error("Failed to initialise collector", "error", err)
		os.Exit(1)
	}
	if err := c.Start(); err != nil {
		slog.Error("Failed to start collector", "error", err)
		os.Exit(1)
	}
	slog.Info("Collecting", "duration", cfg.Duration, "interval", cfg.Interval, "strategy", cfg.Strategy)

	done := make(chan struct{})
	go func() {
		deadline := time.Now().Add(cfg.Duration)
		for time.Now().Before(deadline) {
			select {
			case <-done:
				return
			default:
			}
			hotCaller()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case <-time.After(cfg.Duration):
	}
	close(done)

	if err := c.Stop(); err != nil {
		slog.Warn("Failed to stop collector", "error", err)
	}
	samples := c.Flush()
	slog.Info("Collected stacks", "count", len(samples))

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		slog.Error("Failed to create output directory", "dir", cfg.OutputDir, "error", err)
		os.Exit(1)
	}

	prof, err := exporter.BuildPprofProfile(samples, "samples", "count")
	if err != nil {
		slog.Error("Failed to build pprof Profile from the collected samples", "error", err)
	} else if err := exporter.WriteProfile(prof, filepath.Join(cfg.OutputDir, "objlocate.pb.gz")); err != nil {
		slog.Error("Failed to write pprof profile", "error", err)
	}

	otlp := exporter.BuildOtlpProfile(samples, func() uint64 { return uint64(time.Now().UnixNano()) })
	if err := exporter.WriteOtlpProfile(otlp, filepath.Join(cfg.OutputDir, "objlocate.otlp.pb")); err != nil {
		slog.Error("Failed to write OTLP profile", "error", err)
	}

	if err := exporter.WriteFoldedStacksToFile(exporter.BuildFoldedStacks(samples), filepath.Join(cfg.OutputDir, "objlocate.folded")); err != nil {
		slog.Error("Failed to write folded stacks", "error", err)
	}
}

//go:noinline
func hotFunc() {
	for i := 0; i < 1000; i++ {
		_ = i * i
	}
}

//go:noinline
func hotCaller() {
	hotFunc()
}
