package script

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"newsreel/internal/models"
	"newsreel/internal/retry"
	"newsreel/internal/text"
)

// Config tunes the generation protocol.
type Config struct {
	PrimaryModel        string
	FallbackModel       string
	PrimaryTimeout  time.Duration
	FallbackTimeout time.Duration

	// SimilarityThreshold is the maximum similarity a narration may have
	// to the source text before it counts as verbatim reproduction.
	SimilarityThreshold float64
	MaxRewrites         int
	MaxAttempts         int
}

// Result is a narration that passed normalization and the paraphrase gate.
type Result struct {
	Narration    string
	OnScreenHook string
	ModelUsed    string
	Rewrites     int
}

// Generator produces clip narrations through a primary/fallback model
// protocol with a paraphrase similarity gate.
type Generator struct {
	client ModelClient
	cfg    Config
	logger *slog.Logger
}

// NewGenerator creates a Generator over client.
func NewGenerator(client ModelClient, cfg Config, logger *slog.Logger) *Generator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Generator{client: client, cfg: cfg, logger: logger}
}

// CreateScript generates a narration for item. The primary model is tried
// first; on a timeout, rate limit or server error the fallback model gets
// exactly one run of the same protocol. A draft that survives normalization
// must also stay at or below the similarity threshold against the item's own
// text. Drafts that repeat the source too closely get up to MaxRewrites
// paraphrase rewrites by the model that produced them.
func (g *Generator) CreateScript(ctx context.Context, item models.CandidateItem) (*Result, error) {
	result, err := g.runModel(ctx, g.cfg.PrimaryModel, g.cfg.PrimaryTimeout, item)
	if err == nil {
		return result, nil
	}
	if !isFallbackWorthy(err) {
		return nil, fmt.Errorf("primary model %s: %w", g.cfg.PrimaryModel, err)
	}

	g.logger.Warn("primary model failed, falling back",
		"item_id", item.ItemID,
		"primary", g.cfg.PrimaryModel,
		"fallback", g.cfg.FallbackModel,
		"error", err)

	result, err = g.runModel(ctx, g.cfg.FallbackModel, g.cfg.FallbackTimeout, item)
	if err != nil {
		return nil, fmt.Errorf("fallback model %s: %w", g.cfg.FallbackModel, err)
	}
	return result, nil
}

// runModel executes the full draft-gate-rewrite protocol against one model,
// retrying transient failures of each call.
func (g *Generator) runModel(ctx context.Context, model string, timeout time.Duration, item models.CandidateItem) (*Result, error) {
	systemPrompt, userPrompt := NarrationPrompt(item)
	draft, err := g.callWithRetry(ctx, model, timeout, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	source := item.SourceText()
	rewrites := 0
	for {
		narration, ok := normalizeNarration(draft.NarrationText)
		// The threshold is the maximum allowed similarity: anything above
		// it is too close to verbatim feed content.
		if ok && text.Similarity(narration, source) <= g.cfg.SimilarityThreshold {
			g.logger.Info("script generated", "model", model, "rewrites", rewrites)
			return &Result{
				Narration:    narration,
				OnScreenHook: draft.OnScreenHook,
				ModelUsed:    model,
				Rewrites:     rewrites,
			}, nil
		}

		if rewrites >= g.cfg.MaxRewrites {
			if !ok {
				return nil, fmt.Errorf("narration too short after %d rewrites", rewrites)
			}
			return nil, fmt.Errorf("narration still too close to source after %d rewrites", rewrites)
		}
		rewrites++

		g.logger.Debug("draft rejected, requesting paraphrase rewrite",
			"model", model, "rewrite", rewrites, "too_short", !ok)

		rewriteSystem, rewriteUser := RewritePrompt(item, draft.NarrationText)
		draft, err = g.callWithRetry(ctx, model, timeout, rewriteSystem, rewriteUser)
		if err != nil {
			return nil, err
		}
	}
}

func (g *Generator) callWithRetry(ctx context.Context, model string, timeout time.Duration, systemPrompt, userPrompt string) (*narrationPayload, error) {
	var payload *narrationPayload
	err := retry.WithRetry(ctx, retry.Config{
		MaxAttempts: g.cfg.MaxAttempts,
		Delay:       time.Second,
		Backoff:     true,
		Retryable:   isFallbackWorthy,
	}, func() error {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		raw, err := g.client.Generate(callCtx, model, systemPrompt, userPrompt)
		if err != nil {
			return err
		}
		parsed, err := parsePayload(raw)
		if err != nil {
			return err
		}
		payload = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// parsePayload decodes a model response into a narrationPayload, tolerating
// code fences and surrounding prose.
func parsePayload(raw string) (*narrationPayload, error) {
	cleaned := extractJSON(raw)

	var payload narrationPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		// Fall back to the outermost JSON object when the model wrapped
		// it in commentary.
		start := strings.Index(cleaned, "{")
		end := strings.LastIndex(cleaned, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("parsing model response: %w", err)
		}
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &payload); err != nil {
			return nil, fmt.Errorf("parsing model response: %w", err)
		}
	}

	if strings.TrimSpace(payload.NarrationText) == "" {
		return nil, fmt.Errorf("model response has no narration text")
	}
	return &payload, nil
}
