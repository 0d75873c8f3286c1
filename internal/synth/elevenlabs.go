package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"newsreel/internal/retry"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io/v1/text-to-speech"

// Options configures the ElevenLabs voice.
type Options struct {
	APIKey          string
	VoiceID         string
	Model           string
	Stability       float64
	SimilarityBoost float64
	MaxRetries      int
}

// ElevenLabs synthesizes narration audio via the ElevenLabs API.
type ElevenLabs struct {
	opts       Options
	client     *http.Client
	baseURL    string
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewElevenLabs creates a synthesizer. Zero option fields get the service
// defaults.
func NewElevenLabs(opts Options, logger *slog.Logger) *ElevenLabs {
	if opts.Model == "" {
		opts.Model = "eleven_multilingual_v2"
	}
	if opts.Stability == 0 {
		opts.Stability = 0.5
	}
	if opts.SimilarityBoost == 0 {
		opts.SimilarityBoost = 0.8
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	return &ElevenLabs{
		opts:       opts,
		client:     &http.Client{Timeout: 45 * time.Second},
		baseURL:    elevenLabsBaseURL,
		retryDelay: time.Second,
		logger:     logger,
	}
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize renders text to an MP3 at outputPath, retrying transient API
// failures with backoff.
func (e *ElevenLabs) Synthesize(ctx context.Context, text, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	err := retry.WithRetry(ctx, retry.Config{
		MaxAttempts: e.opts.MaxRetries,
		Delay:       e.retryDelay,
		Backoff:     true,
		Retryable:   isTransient,
	}, func() error {
		return e.synthesizeOnce(ctx, text, outputPath)
	})
	if err != nil {
		return fmt.Errorf("elevenlabs tts: %w", err)
	}
	return nil
}

func (e *ElevenLabs) synthesizeOnce(ctx context.Context, text, outputPath string) error {
	body, err := json.Marshal(ttsRequest{
		Text:    text,
		ModelID: e.opts.Model,
		VoiceSettings: voiceSettings{
			Stability:       e.opts.Stability,
			SimilarityBoost: e.opts.SimilarityBoost,
		},
	})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	url := e.baseURL + "/" + e.opts.VoiceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.opts.APIKey)

	e.logger.Debug("calling ElevenLabs API", "voice", e.opts.VoiceID, "model", e.opts.Model)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return &statusError{code: resp.StatusCode, detail: string(detail)}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outputPath, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(outputPath)
		return fmt.Errorf("writing audio: %w", err)
	}
	return f.Close()
}

type statusError struct {
	code   int
	detail string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.detail)
}

func isTransient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		switch se.code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	// Network-level failures are worth another attempt.
	return true
}
