// Package config loads the newsreel TOML configuration and applies
// environment overrides. Secrets are never read from the config file; they
// come from the environment only.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"newsreel/internal/models"
)

// HardFeedCap is the ceiling on per-feed candidates for a single run. The
// configured cap is clamped to this value regardless of configuration.
const HardFeedCap = 5

// Config holds all application configuration for one run. It is loaded once
// and treated as immutable for the run's duration.
type Config struct {
	Feeds     FeedsConfig     `toml:"feeds"`
	Selection SelectionConfig `toml:"selection"`
	Script    ScriptConfig    `toml:"script"`
	Synthesis SynthesisConfig `toml:"synthesis"`
	Storage   StorageConfig   `toml:"storage"`
	Retention RetentionConfig `toml:"retention"`
	Render    RenderConfig    `toml:"render"`
	Email     EmailConfig     `toml:"email"`
	Run       RunConfig       `toml:"run"`

	// Secrets are environment-only and never written to disk.
	Secrets Secrets `toml:"-"`
}

// FeedsConfig lists the content sources and fetch behavior.
type FeedsConfig struct {
	Sources             []models.FeedSource `toml:"sources"`
	PerFeedCap          int                 `toml:"per_feed_cap"`
	FetchTimeoutSeconds int                 `toml:"fetch_timeout_seconds"`
}

// SelectionConfig tunes the cross-feed duplicate filter.
type SelectionConfig struct {
	SimilarityThreshold float64 `toml:"similarity_threshold"`
}

// ScriptConfig tunes the narration generation protocol.
type ScriptConfig struct {
	PrimaryModel           string  `toml:"primary_model"`
	FallbackModel          string  `toml:"fallback_model"`
	PrimaryTimeoutSeconds  int     `toml:"primary_timeout_seconds"`
	FallbackTimeoutSeconds int     `toml:"fallback_timeout_seconds"`
	SimilarityThreshold    float64 `toml:"similarity_threshold"`
	MaxRewrites            int     `toml:"max_rewrites"`
}

// SynthesisConfig holds text-to-speech voice settings.
type SynthesisConfig struct {
	VoiceID         string  `toml:"voice_id"`
	Model           string  `toml:"model"`
	Stability       float64 `toml:"stability"`
	SimilarityBoost float64 `toml:"similarity_boost"`
}

// StorageConfig holds the S3-compatible object store settings.
type StorageConfig struct {
	Bucket               string `toml:"bucket"`
	Endpoint             string `toml:"endpoint"`
	AccountID            string `toml:"account_id"`
	PresignExpirySeconds int    `toml:"presign_expiry_seconds"`
}

// RetentionConfig controls pruning of old state entries and artifacts.
// Days == 0 disables pruning.
type RetentionConfig struct {
	Days int `toml:"days"`
}

// RenderConfig holds video rendering settings.
type RenderConfig struct {
	FFmpegBin          string `toml:"ffmpeg_bin"`
	FFprobeBin         string `toml:"ffprobe_bin"`
	MinDurationSeconds int    `toml:"min_duration_seconds"`
	MaxDurationSeconds int    `toml:"max_duration_seconds"`
	FPS                int    `toml:"fps"`
	Bitrate            string `toml:"bitrate"`
	CaptionFontSize    int    `toml:"caption_font_size"`
	CaptionMarginV     int    `toml:"caption_margin_v"`
	MaxImagesPerVideo  int    `toml:"max_images_per_video"`
}

// EmailConfig holds digest notification settings.
type EmailConfig struct {
	SMTPHost   string `toml:"smtp_host"`
	SMTPPort   int    `toml:"smtp_port"`
	To         string `toml:"to"`
	Mode       string `toml:"mode"` // "digest" or "per_clip"
	AlwaysSend bool   `toml:"always_send"`
}

// RunConfig holds run-level settings.
type RunConfig struct {
	SummaryPath string `toml:"summary_path"`
	UserAgent   string `toml:"user_agent"`
}

// Secrets holds credentials sourced from environment variables only.
type Secrets struct {
	OpenAIAPIKey     string
	ElevenLabsAPIKey string
	R2AccessKeyID    string
	R2SecretKey      string
	SMTPUser         string
	SMTPPass         string
}

const defaultConfigContent = `[feeds]
per_feed_cap = 5              # hard ceiling of 5 is enforced regardless
fetch_timeout_seconds = 20

# [[feeds.sources]]
# name = "Example"
# url = "https://example.com/rss"

[selection]
similarity_threshold = 0.84   # near-duplicate collapse threshold

[script]
primary_model = "gpt-5-mini"
fallback_model = "gpt-4.1-nano"
primary_timeout_seconds = 20
fallback_timeout_seconds = 15
similarity_threshold = 0.72   # max allowed narration-vs-source similarity
max_rewrites = 2

[synthesis]
voice_id = ""                 # required unless running with --dry-run
model = "eleven_multilingual_v2"
stability = 0.5
similarity_boost = 0.8

[storage]
bucket = "videoshorts"
endpoint = ""                 # e.g. https://<account>.r2.cloudflarestorage.com
account_id = ""
presign_expiry_seconds = 604800

[retention]
days = 30                     # 0 disables pruning

[render]
ffmpeg_bin = "ffmpeg"
ffprobe_bin = "ffprobe"
min_duration_seconds = 10
max_duration_seconds = 45
fps = 30
bitrate = "4M"
caption_font_size = 46
caption_margin_v = 96
max_images_per_video = 3

[email]
smtp_host = "smtp.gmail.com"
smtp_port = 587
to = ""
mode = "digest"               # "digest" or "per_clip"
always_send = false

[run]
summary_path = "run_summary.json"
user_agent = "newsreel/1.0 (+https://github.com/newsreel)"
`

// Load reads and parses the TOML config from the given path. If the file
// does not exist, a default config file is created there. Environment
// variables override values from the file with highest priority.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return nil, fmt.Errorf("creating default config: %w", err)
		}
		slog.Info("created default config file", "path", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Validate explicitly-set values before applying defaults, so an
	// explicit "per_feed_cap = 0" is an error rather than being silently
	// replaced with the default.
	if err := validateExplicit(&cfg, md); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	loadSecrets(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// FetchTimeout returns the per-feed fetch timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Feeds.FetchTimeoutSeconds) * time.Second
}

// PresignExpiry returns the presigned-link lifetime as a duration.
func (c *Config) PresignExpiry() time.Duration {
	return time.Duration(c.Storage.PresignExpirySeconds) * time.Second
}

// createDefault writes the default config content to the given path,
// creating parent directories as needed.
func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigContent), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// validateExplicit checks values that were explicitly set in the TOML file.
func validateExplicit(cfg *Config, md toml.MetaData) error {
	if md.IsDefined("feeds", "per_feed_cap") && cfg.Feeds.PerFeedCap < 1 {
		return fmt.Errorf("invalid feeds.per_feed_cap %d: must be >= 1", cfg.Feeds.PerFeedCap)
	}
	if md.IsDefined("retention", "days") && cfg.Retention.Days < 0 {
		return fmt.Errorf("invalid retention.days %d: must be >= 0", cfg.Retention.Days)
	}
	if md.IsDefined("selection", "similarity_threshold") {
		if v := cfg.Selection.SimilarityThreshold; v <= 0 || v > 1 {
			return fmt.Errorf("invalid selection.similarity_threshold %f: must be in (0, 1]", v)
		}
	}
	if md.IsDefined("script", "similarity_threshold") {
		if v := cfg.Script.SimilarityThreshold; v <= 0 || v > 1 {
			return fmt.Errorf("invalid script.similarity_threshold %f: must be in (0, 1]", v)
		}
	}
	return nil
}

// applyDefaults sets default values for any zero-valued fields.
func applyDefaults(cfg *Config) {
	if cfg.Feeds.PerFeedCap == 0 {
		cfg.Feeds.PerFeedCap = HardFeedCap
	}
	if cfg.Feeds.FetchTimeoutSeconds == 0 {
		cfg.Feeds.FetchTimeoutSeconds = 20
	}
	if cfg.Selection.SimilarityThreshold == 0 {
		cfg.Selection.SimilarityThreshold = 0.84
	}
	if cfg.Script.PrimaryModel == "" {
		cfg.Script.PrimaryModel = "gpt-5-mini"
	}
	if cfg.Script.FallbackModel == "" {
		cfg.Script.FallbackModel = "gpt-4.1-nano"
	}
	if cfg.Script.PrimaryTimeoutSeconds == 0 {
		cfg.Script.PrimaryTimeoutSeconds = 20
	}
	if cfg.Script.FallbackTimeoutSeconds == 0 {
		cfg.Script.FallbackTimeoutSeconds = 15
	}
	if cfg.Script.SimilarityThreshold == 0 {
		cfg.Script.SimilarityThreshold = 0.72
	}
	if cfg.Script.MaxRewrites == 0 {
		cfg.Script.MaxRewrites = 2
	}
	if cfg.Synthesis.Model == "" {
		cfg.Synthesis.Model = "eleven_multilingual_v2"
	}
	if cfg.Synthesis.Stability == 0 {
		cfg.Synthesis.Stability = 0.5
	}
	if cfg.Synthesis.SimilarityBoost == 0 {
		cfg.Synthesis.SimilarityBoost = 0.8
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "videoshorts"
	}
	if cfg.Storage.Endpoint == "" && cfg.Storage.AccountID != "" {
		cfg.Storage.Endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.Storage.AccountID)
	}
	if cfg.Storage.PresignExpirySeconds == 0 {
		cfg.Storage.PresignExpirySeconds = 604800
	}
	if cfg.Render.FFmpegBin == "" {
		cfg.Render.FFmpegBin = "ffmpeg"
	}
	if cfg.Render.FFprobeBin == "" {
		cfg.Render.FFprobeBin = "ffprobe"
	}
	if cfg.Render.MinDurationSeconds == 0 {
		cfg.Render.MinDurationSeconds = 10
	}
	if cfg.Render.MaxDurationSeconds == 0 {
		cfg.Render.MaxDurationSeconds = 45
	}
	if cfg.Render.FPS == 0 {
		cfg.Render.FPS = 30
	}
	if cfg.Render.Bitrate == "" {
		cfg.Render.Bitrate = "4M"
	}
	if cfg.Render.CaptionFontSize == 0 {
		cfg.Render.CaptionFontSize = 46
	}
	if cfg.Render.CaptionMarginV == 0 {
		cfg.Render.CaptionMarginV = 96
	}
	if cfg.Render.MaxImagesPerVideo == 0 {
		cfg.Render.MaxImagesPerVideo = 3
	}
	if cfg.Email.SMTPHost == "" {
		cfg.Email.SMTPHost = "smtp.gmail.com"
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = 587
	}
	if cfg.Email.Mode == "" {
		cfg.Email.Mode = "digest"
	}
	if cfg.Run.SummaryPath == "" {
		cfg.Run.SummaryPath = "run_summary.json"
	}
	if cfg.Run.UserAgent == "" {
		cfg.Run.UserAgent = "newsreel/1.0"
	}
}

// applyEnvOverrides applies environment variable overrides for the tunables
// the operator is expected to adjust per deployment. Environment variables
// take highest priority over config file values.
func applyEnvOverrides(cfg *Config) {
	if v, ok := envInt("PER_FEED_CAP"); ok && v >= 1 {
		cfg.Feeds.PerFeedCap = v
	}
	if v, ok := envInt("RETENTION_DAYS"); ok && v >= 0 {
		cfg.Retention.Days = v
	}
	if v, ok := envInt("PRESIGN_EXPIRES_SECONDS"); ok && v > 0 {
		cfg.Storage.PresignExpirySeconds = v
	}
	if v := os.Getenv("PRIMARY_MODEL"); v != "" {
		cfg.Script.PrimaryModel = v
	}
	if v := os.Getenv("FALLBACK_MODEL"); v != "" {
		cfg.Script.FallbackModel = v
	}
	if v, ok := envInt("PRIMARY_TIMEOUT_SECONDS"); ok && v > 0 {
		cfg.Script.PrimaryTimeoutSeconds = v
	}
	if v, ok := envInt("FALLBACK_TIMEOUT_SECONDS"); ok && v > 0 {
		cfg.Script.FallbackTimeoutSeconds = v
	}
	if v, ok := envFloat("SCRIPT_SIMILARITY_THRESHOLD"); ok && v > 0 && v <= 1 {
		cfg.Script.SimilarityThreshold = v
	}
	if v, ok := envInt("SCRIPT_MAX_REWRITES"); ok && v >= 0 {
		cfg.Script.MaxRewrites = v
	}
	if v := os.Getenv("R2_BUCKET"); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := os.Getenv("R2_ENDPOINT"); v != "" {
		cfg.Storage.Endpoint = v
	}
	if v := os.Getenv("EMAIL_TO"); v != "" {
		cfg.Email.To = v
	}

	// The per-feed cap is hard-ceilinged no matter where it came from.
	if cfg.Feeds.PerFeedCap > HardFeedCap {
		slog.Warn("per-feed cap exceeds hard ceiling, clamping",
			"configured", cfg.Feeds.PerFeedCap,
			"ceiling", HardFeedCap,
		)
		cfg.Feeds.PerFeedCap = HardFeedCap
	}
}

// loadSecrets reads credentials from the environment.
func loadSecrets(cfg *Config) {
	cfg.Secrets = Secrets{
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		ElevenLabsAPIKey: os.Getenv("ELEVENLABS_API_KEY"),
		R2AccessKeyID:    os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretKey:      os.Getenv("R2_SECRET_ACCESS_KEY"),
		SMTPUser:         os.Getenv("SMTP_USER"),
		SMTPPass:         os.Getenv("SMTP_PASS"),
	}
}

// validate checks that configuration values are within acceptable ranges.
// Credential presence is checked at wiring time, not here, because a dry run
// needs none of them.
func validate(cfg *Config) error {
	switch cfg.Email.Mode {
	case "digest", "per_clip":
		// valid
	default:
		return fmt.Errorf("invalid email.mode %q: must be \"digest\" or \"per_clip\"", cfg.Email.Mode)
	}

	if cfg.Feeds.PerFeedCap < 1 || cfg.Feeds.PerFeedCap > HardFeedCap {
		return fmt.Errorf("invalid feeds.per_feed_cap %d after clamping", cfg.Feeds.PerFeedCap)
	}

	if cfg.Render.MinDurationSeconds > cfg.Render.MaxDurationSeconds {
		return fmt.Errorf("render.min_duration_seconds %d exceeds max_duration_seconds %d",
			cfg.Render.MinDurationSeconds, cfg.Render.MaxDurationSeconds)
	}

	if len(cfg.Feeds.Sources) == 0 {
		slog.Warn("no feed sources configured, the run will produce nothing")
	}

	return nil
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring non-integer environment override", "key", key, "value", v)
		return 0, false
	}
	return n, true
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("ignoring non-numeric environment override", "key", key, "value", v)
		return 0, false
	}
	return f, true
}
