package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"newsreel/internal/config"
	"newsreel/internal/feeds"
	"newsreel/internal/media"
	"newsreel/internal/notify"
	"newsreel/internal/objectstore"
	"newsreel/internal/pipeline"
	"newsreel/internal/render"
	"newsreel/internal/retention"
	"newsreel/internal/script"
	"newsreel/internal/selection"
	"newsreel/internal/state"
	"newsreel/internal/synth"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "no render/upload/email side effects")
	maxItems := flag.Int("max-items", 0, "maximum new items to process this run (0 means unlimited)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Secrets may come from a local .env file; a missing file is fine.
	if err := godotenv.Load(); err == nil {
		logger.Debug("loaded .env file")
	}

	// Load configuration (auto-creates default if missing).
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	summary, err := run(context.Background(), cfg, logger, *dryRun, *maxItems)
	if err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("run complete",
		"dry_run", summary.DryRun,
		"processed", summary.Stats.Processed,
		"errors", summary.Stats.Errors,
		"created", summary.CreatedCount,
	)
	if summary.StateSaveErr != "" {
		logger.Error("state save failed during run", "error", summary.StateSaveErr)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, dryRun bool, maxItems int) (*pipeline.Summary, error) {
	deps := pipeline.Deps{
		Fetcher:  feeds.NewFetcher(cfg.FetchTimeout(), cfg.Run.UserAgent),
		Selector: selection.NewSelector(cfg.Feeds.PerFeedCap, 0),
		Dedup:    selection.NewFilter(cfg.Selection.SimilarityThreshold),
		Captions: render.GenerateSRT,
		Logger:   logger,
	}

	if dryRun {
		logger.Info("dry run enabled, no render/upload/email side effects will occur")
		deps.Store = state.NewStore(state.NewFileBlob(os.TempDir()), logger)
	} else {
		secrets := cfg.Secrets
		for name, value := range map[string]string{
			"OPENAI_API_KEY":       secrets.OpenAIAPIKey,
			"ELEVENLABS_API_KEY":   secrets.ElevenLabsAPIKey,
			"R2_ACCESS_KEY_ID":     secrets.R2AccessKeyID,
			"R2_SECRET_ACCESS_KEY": secrets.R2SecretKey,
			"SMTP_USER":            secrets.SMTPUser,
			"SMTP_PASS":            secrets.SMTPPass,
		} {
			if value == "" {
				return nil, fmt.Errorf("missing required environment variable: %s", name)
			}
		}

		store, err := objectstore.New(ctx, objectstore.Options{
			Bucket:          cfg.Storage.Bucket,
			Endpoint:        cfg.Storage.Endpoint,
			AccessKeyID:     secrets.R2AccessKeyID,
			SecretAccessKey: secrets.R2SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("creating object store: %w", err)
		}
		deps.Objects = store

		deps.Store = state.NewStore(store, logger)
		deps.Store.Load(ctx)

		deps.Script = script.NewGenerator(
			script.NewOpenAIClient(secrets.OpenAIAPIKey),
			script.Config{
				PrimaryModel:        cfg.Script.PrimaryModel,
				FallbackModel:       cfg.Script.FallbackModel,
				PrimaryTimeout:      time.Duration(cfg.Script.PrimaryTimeoutSeconds) * time.Second,
				FallbackTimeout:     time.Duration(cfg.Script.FallbackTimeoutSeconds) * time.Second,
				SimilarityThreshold: cfg.Script.SimilarityThreshold,
				MaxRewrites:         cfg.Script.MaxRewrites,
			},
			logger,
		)

		deps.Synth = synth.NewElevenLabs(synth.Options{
			APIKey:          secrets.ElevenLabsAPIKey,
			VoiceID:         cfg.Synthesis.VoiceID,
			Model:           cfg.Synthesis.Model,
			Stability:       cfg.Synthesis.Stability,
			SimilarityBoost: cfg.Synthesis.SimilarityBoost,
		}, logger)

		deps.Downloader = media.NewDownloader(cfg.Render.MaxImagesPerVideo, cfg.FetchTimeout(), logger)

		deps.Renderer = render.NewRenderer(cfg.Render.FFmpegBin, cfg.Render.FFprobeBin, render.Style{
			MinDuration:     time.Duration(cfg.Render.MinDurationSeconds) * time.Second,
			MaxDuration:     time.Duration(cfg.Render.MaxDurationSeconds) * time.Second,
			FPS:             cfg.Render.FPS,
			Bitrate:         cfg.Render.Bitrate,
			CaptionFontSize: cfg.Render.CaptionFontSize,
			CaptionMarginV:  cfg.Render.CaptionMarginV,
		}, logger)

		deps.Pruner = retention.NewPruner(store, retention.Days(cfg.Retention.Days), logger)

		deps.Notifier = notify.NewMailer(notify.Options{
			Host:       cfg.Email.SMTPHost,
			Port:       cfg.Email.SMTPPort,
			Username:   secrets.SMTPUser,
			Password:   secrets.SMTPPass,
			To:         cfg.Email.To,
			Mode:       cfg.Email.Mode,
			AlwaysSend: cfg.Email.AlwaysSend,
		}, logger)
	}

	p := pipeline.New(deps)
	return p.Run(ctx, pipeline.Options{
		Sources:       cfg.Feeds.Sources,
		DryRun:        dryRun,
		MaxItems:      maxItems,
		PresignExpiry: cfg.PresignExpiry(),
		MinDuration:   time.Duration(cfg.Render.MinDurationSeconds) * time.Second,
		MaxDuration:   time.Duration(cfg.Render.MaxDurationSeconds) * time.Second,
		SummaryPath:   cfg.Run.SummaryPath,
	})
}
