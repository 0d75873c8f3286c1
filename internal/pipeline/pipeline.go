package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"newsreel/internal/feeds"
	"newsreel/internal/models"
	"newsreel/internal/retention"
	"newsreel/internal/script"
	"newsreel/internal/selection"
	"newsreel/internal/state"
)

// FeedFetcher retrieves raw items from all configured feeds.
type FeedFetcher interface {
	FetchAll(ctx context.Context, sources []models.FeedSource) (*feeds.FetchResult, error)
}

// CandidateSelector applies per-feed caps and global newest-first ordering.
type CandidateSelector interface {
	Select(byFeed map[string][]models.CandidateItem) []models.CandidateItem
}

// DuplicateFilter collapses near-duplicate stories across feeds.
type DuplicateFilter interface {
	Collapse(items []models.CandidateItem) ([]models.CandidateItem, []selection.DroppedDuplicate)
}

// ScriptGenerator produces a narration for a candidate.
type ScriptGenerator interface {
	CreateScript(ctx context.Context, item models.CandidateItem) (*script.Result, error)
}

// ImageDownloader fetches a candidate's images to local files.
type ImageDownloader interface {
	DownloadImages(ctx context.Context, imageURLs []string, dir string) ([]string, error)
}

// Synthesizer renders narration text to an audio file.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, outputPath string) error
}

// VideoRenderer probes audio and composes the final clip.
type VideoRenderer interface {
	ProbeAudioDuration(ctx context.Context, audioPath string) (time.Duration, error)
	RenderVideo(ctx context.Context, imagePaths []string, audioPath, srtPath, outputPath string) error
}

// CaptionWriter emits an SRT file for the narration.
type CaptionWriter func(narration string, duration time.Duration, outputPath string) error

// ObjectStore uploads artifacts and issues download links.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	UploadFile(ctx context.Context, key, path, contentType string) error
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Pruner sweeps aged artifacts and state entries.
type Pruner interface {
	Prune(ctx context.Context, st *state.Store, now time.Time) (retention.Stats, error)
}

// Notifier reports the run's clips to the configured recipient.
type Notifier interface {
	Send(ctx context.Context, clips []models.ClipResult) (int, error)
}

// Deps wires the pipeline's collaborators. In dry runs the side-effecting
// dependencies (Store, Objects, Script, Synth, Render, Pruner, Notifier)
// may be nil.
type Deps struct {
	Fetcher    FeedFetcher
	Selector   CandidateSelector
	Dedup      DuplicateFilter
	Script     ScriptGenerator
	Downloader ImageDownloader
	Synth      Synthesizer
	Renderer   VideoRenderer
	Captions   CaptionWriter
	Objects    ObjectStore
	Store      *state.Store
	Pruner     Pruner
	Notifier   Notifier
	Logger     *slog.Logger
}

// Options tunes one run.
type Options struct {
	Sources       []models.FeedSource
	DryRun        bool
	MaxItems      int
	PresignExpiry time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
	SummaryPath   string
	WorkDir       string
}

// Pipeline executes one sequential end-to-end run. It is the sole writer of
// the processed-state store.
type Pipeline struct {
	deps Deps
}

// New constructs a Pipeline.
func New(deps Deps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Pipeline{deps: deps}
}

// Run executes the full pipeline: fetch, select, dedup, per-item processing,
// retention, state save, notification and summary. Per-item failures are
// recorded and never abort the run.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Summary, error) {
	summary := &Summary{
		DryRun:       opts.DryRun,
		TimestampUTC: time.Now().UTC(),
	}
	summary.Stats.Feeds = len(opts.Sources)

	items, err := p.gatherCandidates(ctx, opts, summary)
	if err != nil {
		return nil, err
	}

	var created []models.ClipResult
	processed := 0
	seen := make(map[string]bool)

	for _, item := range items {
		if opts.MaxItems > 0 && processed >= opts.MaxItems {
			p.deps.Logger.Info("reached max items, stopping early", "max_items", opts.MaxItems)
			break
		}
		if seen[item.ItemID] {
			continue
		}
		seen[item.ItemID] = true

		outcome := p.processItem(ctx, item, opts, &created)
		summary.Outcomes = append(summary.Outcomes, outcome)
		p.tally(summary, outcome)
		if outcome.Status == StatusSucceeded || outcome.Status == StatusDryRun {
			processed++
		}
	}

	if !opts.DryRun {
		p.finishRun(ctx, summary, created)
	}

	summary.Created = created
	summary.CreatedCount = len(created)

	if opts.SummaryPath != "" {
		if err := writeSummary(opts.SummaryPath, summary); err != nil {
			p.deps.Logger.Warn("writing run summary failed", "path", opts.SummaryPath, "error", err)
		}
	}
	return summary, nil
}

// gatherCandidates fetches all feeds, applies selection and collapses
// cross-feed duplicates, recording dropped items in the summary.
func (p *Pipeline) gatherCandidates(ctx context.Context, opts Options, summary *Summary) ([]models.CandidateItem, error) {
	result, err := p.deps.Fetcher.FetchAll(ctx, opts.Sources)
	if err != nil {
		return nil, fmt.Errorf("fetching feeds: %w", err)
	}
	summary.Stats.FailedFeeds = len(result.Failed)
	summary.Stats.Errors += len(result.Failed)

	byFeed := make(map[string][]models.CandidateItem, len(result.ItemsByFeed))
	for feedName, rawItems := range result.ItemsByFeed {
		summary.Stats.EntriesSeen += len(rawItems)
		candidates := make([]models.CandidateItem, 0, len(rawItems))
		for _, raw := range rawItems {
			candidates = append(candidates, raw.Candidate())
		}
		byFeed[feedName] = candidates
	}

	selected := p.deps.Selector.Select(byFeed)
	kept, dropped := p.deps.Dedup.Collapse(selected)

	for _, dup := range dropped {
		summary.Outcomes = append(summary.Outcomes, ItemOutcome{
			ItemID:     dup.ItemID,
			FeedName:   dup.FeedName,
			Status:     StatusCrossFeedDuplicate,
			KeptItemID: dup.KeptItemID,
		})
		summary.Stats.CrossFeedDuplicates++
		p.deps.Logger.Info("cross-feed duplicate collapsed",
			"item_id", dup.ItemID, "kept", dup.KeptItemID)
	}

	p.deps.Logger.Info("candidates selected",
		"selected", len(selected), "kept", len(kept), "duplicates", len(dropped))
	return kept, nil
}

// processItem runs the full per-item path. Every exit is a classified
// outcome; failures leave the item unrecorded so a later run retries it.
func (p *Pipeline) processItem(ctx context.Context, item models.CandidateItem, opts Options, created *[]models.ClipResult) ItemOutcome {
	outcome := ItemOutcome{
		ItemID:   item.ItemID,
		FeedName: item.FeedName,
		Title:    item.Title,
	}

	if len(item.ImageURLs) == 0 {
		outcome.Status = StatusSkippedNoImage
		p.deps.Logger.Info("skipping item with no image", "item_id", item.ItemID, "title", item.Title)
		return outcome
	}

	if p.deps.Store != nil && p.deps.Store.Contains(item.ItemID) {
		outcome.Status = StatusAlreadyProcessed
		return outcome
	}

	key := ArtifactKey(item)

	if !opts.DryRun {
		exists, err := p.deps.Objects.Exists(ctx, key)
		if err != nil {
			outcome.Status = StatusUploadFailed
			outcome.Detail = fmt.Sprintf("checking artifact: %v", err)
			return outcome
		}
		if exists {
			// The artifact is already in the bucket from an earlier
			// interrupted run; adopt it instead of re-rendering.
			p.deps.Store.Record(state.Entry{
				ItemID:      item.ItemID,
				ProcessedAt: time.Now().UTC(),
				ArtifactKey: key,
			})
			outcome.Status = StatusAlreadyProcessed
			outcome.Detail = "existing artifact adopted"
			p.deps.Logger.Info("artifact already exists", "item_id", item.ItemID, "key", key)
			return outcome
		}
	}

	if opts.DryRun {
		outcome.Status = StatusDryRun
		outcome.Detail = key
		p.deps.Logger.Info("dry run, would process",
			"item_id", item.ItemID, "feed", item.FeedName,
			"images", len(item.ImageURLs), "key", key, "title", item.Title)
		return outcome
	}

	workDir, err := os.MkdirTemp(opts.WorkDir, "newsreel-")
	if err != nil {
		outcome.Status = StatusRenderFailed
		outcome.Detail = fmt.Sprintf("creating work dir: %v", err)
		return outcome
	}
	defer os.RemoveAll(workDir)

	images, err := p.deps.Downloader.DownloadImages(ctx, item.ImageURLs, filepath.Join(workDir, "images"))
	if err != nil || len(images) == 0 {
		outcome.Status = StatusNoDownloadableImage
		if err != nil {
			outcome.Detail = err.Error()
		}
		p.deps.Logger.Info("no downloadable image", "item_id", item.ItemID, "title", item.Title)
		return outcome
	}

	result, err := p.deps.Script.CreateScript(ctx, item)
	if err != nil {
		outcome.Status = StatusScriptFailed
		outcome.Detail = err.Error()
		p.deps.Logger.Warn("script generation failed", "item_id", item.ItemID, "error", err)
		return outcome
	}

	audioPath := filepath.Join(workDir, "voiceover.mp3")
	if err := p.deps.Synth.Synthesize(ctx, result.Narration, audioPath); err != nil {
		outcome.Status = StatusSynthesisFailed
		outcome.Detail = err.Error()
		p.deps.Logger.Warn("synthesis failed", "item_id", item.ItemID, "error", err)
		return outcome
	}

	audioDuration, err := p.deps.Renderer.ProbeAudioDuration(ctx, audioPath)
	if err != nil {
		outcome.Status = StatusRenderFailed
		outcome.Detail = err.Error()
		return outcome
	}
	clipDuration := clamp(audioDuration, opts.MinDuration, opts.MaxDuration)

	srtPath := filepath.Join(workDir, "captions.srt")
	if p.deps.Captions != nil {
		if err := p.deps.Captions(result.Narration, clipDuration, srtPath); err != nil {
			p.deps.Logger.Warn("caption generation failed, rendering without captions",
				"item_id", item.ItemID, "error", err)
			srtPath = ""
		}
	} else {
		srtPath = ""
	}

	videoPath := filepath.Join(workDir, "clip.mp4")
	if err := p.deps.Renderer.RenderVideo(ctx, images, audioPath, srtPath, videoPath); err != nil {
		outcome.Status = StatusRenderFailed
		outcome.Detail = err.Error()
		p.deps.Logger.Warn("render failed", "item_id", item.ItemID, "error", err)
		return outcome
	}

	if err := p.deps.Objects.UploadFile(ctx, key, videoPath, "video/mp4"); err != nil {
		outcome.Status = StatusUploadFailed
		outcome.Detail = err.Error()
		p.deps.Logger.Warn("upload failed", "item_id", item.ItemID, "key", key, "error", err)
		return outcome
	}

	url, err := p.deps.Objects.PresignGet(ctx, key, opts.PresignExpiry)
	if err != nil {
		// The artifact is uploaded; record it even though the link is
		// missing, so the next run does not redo the work.
		p.deps.Logger.Warn("presign failed", "item_id", item.ItemID, "key", key, "error", err)
	}

	now := time.Now().UTC()
	*created = append(*created, models.ClipResult{
		ItemID:       item.ItemID,
		FeedName:     item.FeedName,
		Title:        item.Title,
		PublishedAt:  item.PublishedAt,
		SourceLink:   item.Link,
		ArtifactKey:  key,
		PresignedURL: url,
		ModelUsed:    result.ModelUsed,
		CreatedAt:    now,
	})
	p.deps.Store.Record(state.Entry{
		ItemID:      item.ItemID,
		ProcessedAt: now,
		ArtifactKey: key,
		LinkExpiry:  now.Add(opts.PresignExpiry),
	})

	outcome.Status = StatusSucceeded
	p.deps.Logger.Info("processed item", "item_id", item.ItemID, "key", key)
	return outcome
}

// finishRun performs the post-loop side effects: retention, state save and
// notification. A failed state save is surfaced in the summary because the
// next run will redo this run's work.
func (p *Pipeline) finishRun(ctx context.Context, summary *Summary, created []models.ClipResult) {
	if p.deps.Pruner != nil {
		stats, err := p.deps.Pruner.Prune(ctx, p.deps.Store, time.Now().UTC())
		if err != nil {
			p.deps.Logger.Warn("retention sweep failed", "error", err)
		}
		summary.Stats.RetentionDeleted = stats.DeletedObjects
		summary.Stats.RetentionPruned = stats.PrunedEntries
	}

	if err := p.deps.Store.Save(ctx); err != nil {
		summary.StateSaveErr = err.Error()
		summary.Stats.Errors++
		p.deps.Logger.Error("saving state failed, completed items will be reprocessed next run", "error", err)
	}

	if p.deps.Notifier != nil {
		sent, err := p.deps.Notifier.Send(ctx, created)
		if err != nil {
			summary.Stats.Errors++
			p.deps.Logger.Warn("notification failed", "error", err)
		}
		summary.Stats.EmailsSent = sent
	}
}

func (p *Pipeline) tally(summary *Summary, outcome ItemOutcome) {
	switch outcome.Status {
	case StatusSucceeded, StatusDryRun:
		summary.Stats.Processed++
	case StatusSkippedNoImage:
		summary.Stats.SkippedNoImage++
	case StatusAlreadyProcessed:
		summary.Stats.AlreadyProcessed++
	case StatusNoDownloadableImage:
		summary.Stats.NoDownloadableImage++
	case StatusScriptFailed, StatusSynthesisFailed, StatusRenderFailed, StatusUploadFailed:
		summary.Stats.Errors++
	}
}

func writeSummary(path string, summary *Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating summary dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

func clamp(d, lo, hi time.Duration) time.Duration {
	if lo > 0 && d < lo {
		return lo
	}
	if hi > 0 && d > hi {
		return hi
	}
	return d
}
