package pipeline

import (
	"fmt"
	"time"

	"newsreel/internal/models"
	"newsreel/internal/text"
)

// Status classifies the outcome of one candidate item within a run.
type Status string

const (
	StatusSucceeded           Status = "succeeded"
	StatusDryRun              Status = "dry_run"
	StatusSkippedNoImage      Status = "skipped_no_image"
	StatusCrossFeedDuplicate  Status = "cross_feed_duplicate"
	StatusAlreadyProcessed    Status = "already_processed"
	StatusNoDownloadableImage Status = "no_downloadable_image"
	StatusScriptFailed        Status = "script_generation_failed"
	StatusSynthesisFailed     Status = "synthesis_failed"
	StatusRenderFailed        Status = "render_failed"
	StatusUploadFailed        Status = "upload_failed"
)

// ItemOutcome records what happened to one candidate.
type ItemOutcome struct {
	ItemID     string `json:"item_id"`
	FeedName   string `json:"feed_name"`
	Title      string `json:"title"`
	Status     Status `json:"status"`
	Detail     string `json:"detail,omitempty"`
	KeptItemID string `json:"kept_item_id,omitempty"`
}

// Stats aggregates run counters for the summary.
type Stats struct {
	Feeds               int `json:"feeds"`
	FailedFeeds         int `json:"failed_feeds"`
	EntriesSeen         int `json:"entries_seen"`
	CrossFeedDuplicates int `json:"cross_feed_duplicates"`
	SkippedNoImage      int `json:"skipped_no_image"`
	AlreadyProcessed    int `json:"already_processed"`
	NoDownloadableImage int `json:"no_downloadable_image"`
	Processed           int `json:"processed"`
	Errors              int `json:"errors"`
	RetentionDeleted    int `json:"retention_deleted_videos"`
	RetentionPruned     int `json:"retention_pruned_state"`
	EmailsSent          int `json:"emails_sent"`
}

// Summary is the run's machine-readable report.
type Summary struct {
	DryRun       bool                `json:"dry_run"`
	TimestampUTC time.Time           `json:"timestamp_utc"`
	Stats        Stats               `json:"stats"`
	Outcomes     []ItemOutcome       `json:"outcomes"`
	CreatedCount int                 `json:"created_count"`
	Created      []models.ClipResult `json:"created"`
	StateSaveErr string              `json:"state_save_error,omitempty"`
}

const artifactSlugMax = 70

// ArtifactKey builds the deterministic object key for an item's rendered
// clip. Items with no publish date land under the epoch date, keeping the
// key stable across runs.
func ArtifactKey(item models.CandidateItem) string {
	keyDate := item.PublishedAt.UTC()
	if item.PublishedAt.IsZero() {
		keyDate = time.Unix(0, 0).UTC()
	}
	slug := text.Slugify(item.Title, artifactSlugMax)
	suffix := text.Hash(item.ItemID)[:10]
	return fmt.Sprintf("videos/%s/%s-%s.mp4", keyDate.Format("2006/01/02"), slug, suffix)
}
