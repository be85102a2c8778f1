package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BAQ01/run-coach/internal/audio"
	"github.com/BAQ01/run-coach/internal/builder"
	"github.com/BAQ01/run-coach/internal/buildstore"
	"github.com/BAQ01/run-coach/internal/bus"
	"github.com/BAQ01/run-coach/internal/catalog"
	"github.com/BAQ01/run-coach/internal/config"
	"github.com/BAQ01/run-coach/internal/synth"
	"github.com/BAQ01/run-coach/internal/telemetry"
	"github.com/BAQ01/run-coach/internal/timeline"
)

var version = "0.1.0-dev"

func main() {
	var (
		configPath  string
		catalogPath string
		force       bool
		historySlug string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Path to configuration file (optional)")
	flag.StringVar(&catalogPath, "catalog", "", "Path to session catalog, overrides config")
	flag.BoolVar(&force, "force", false, "Rebuild all sessions regardless of freshness")
	flag.StringVar(&historySlug, "history", "", "Print recent build records for a session slug and exit")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if catalogPath != "" {
		cfg.Catalog.Path = catalogPath
	}
	if force {
		cfg.Build.Force = true
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: telemetry.ParseLevel(cfg.Telemetry.LogLevel),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if historySlug != "" {
		if err := runHistory(ctx, cfg, historySlug, logger); err != nil {
			logger.Error("history lookup failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("build failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func runHistory(ctx context.Context, cfg config.Config, slug string, logger *slog.Logger) error {
	store, err := buildstore.Open(ctx, cfg.Store.Path, logger)
	if err != nil {
		return fmt.Errorf("open build store: %w", err)
	}
	defer store.Close()

	records, err := store.History(ctx, slug, 20)
	if err != nil {
		return fmt.Errorf("load build history: %w", err)
	}
	if len(records) == 0 {
		logger.Info("no recorded builds", slog.String("session", slug))
		return nil
	}
	for _, rec := range records {
		attrs := []any{
			slog.String("session", rec.Slug),
			slog.String("run_id", rec.RunID),
			slog.String("status", rec.Status),
			slog.Time("built_at", rec.BuiltAt),
			slog.Float64("duration_sec", rec.DurationSec),
			slog.Int("segments", rec.Segments),
		}
		if rec.Error != "" {
			attrs = append(attrs, slog.String("error", rec.Error))
		}
		logger.Info("build record", attrs...)
	}
	return nil
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	shutdownTelemetry, err := telemetry.Setup(cfg.Telemetry, cfg.BuildName, logger)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}()

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	logger.Info("catalog loaded",
		slog.String("source", cat.Source),
		slog.Int("sessions", len(cat.Sessions)))

	store, err := buildstore.Open(ctx, cfg.Store.Path, logger)
	if err != nil {
		return fmt.Errorf("open build store: %w", err)
	}
	defer store.Close()

	var busClient *bus.Client
	if cfg.Bus.Enabled {
		busClient, err = bus.Connect(ctx, cfg.Bus, logger)
		if err != nil {
			return fmt.Errorf("connect bus: %w", err)
		}
		defer busClient.Close()
	}

	var voice timeline.Synthesizer
	switch cfg.Synth.Mode {
	case "exec":
		voice, err = synth.NewExecSynth(cfg.Synth, logger)
		if err != nil {
			return fmt.Errorf("create synthesizer: %w", err)
		}
	case "mock":
		format := audio.Format{SampleRate: cfg.Synth.SampleRate, Channels: cfg.Synth.Channels, BitDepth: 16}
		voice = synth.NewMockSynth(format, cfg.Synth.Rate)
	}

	b := builder.New(cfg, voice, store, busClient, logger)
	results, runErr := b.Run(ctx, cat)

	for _, res := range results {
		attrs := []any{
			slog.String("session", res.Slug),
			slog.String("status", string(res.Status)),
		}
		switch res.Status {
		case builder.StatusBuilt:
			attrs = append(attrs,
				slog.Float64("duration_sec", res.DurationSec),
				slog.Int("segments", res.Segments),
				slog.Any("artifacts", res.Artifacts))
			logger.Info("session result", attrs...)
		case builder.StatusSkipped:
			logger.Info("session result", attrs...)
		default:
			if res.CueIndex >= 0 {
				attrs = append(attrs,
					slog.Int("cue_index", res.CueIndex),
					slog.String("cue_text", res.CueText))
			}
			if res.Err != nil {
				attrs = append(attrs, slog.String("error", res.Err.Error()))
			}
			logger.Error("session result", attrs...)
		}
	}
	return runErr
}
