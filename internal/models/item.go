package models

import "time"

// FeedSource represents one configured content feed.
type FeedSource struct {
	Name string `json:"name" toml:"name"`
	URL  string `json:"url" toml:"url"`
}

// ImageSourceKind identifies where an extracted image URL came from.
// The extractor prefers kinds in the declared order.
type ImageSourceKind string

const (
	ImageFromEnclosure      ImageSourceKind = "enclosure"
	ImageFromMediaContent   ImageSourceKind = "media_content"
	ImageFromMediaThumbnail ImageSourceKind = "media_thumbnail"
	ImageFromInlineImg      ImageSourceKind = "inline_img"
	ImageFromItemImage      ImageSourceKind = "item_image"
)

// ExtractedImage is the single qualifying image retained for an item.
type ExtractedImage struct {
	URL        string          `json:"url"`
	SourceKind ImageSourceKind `json:"source_kind"`
}

// RawItem is one entry parsed from a feed, before selection.
type RawItem struct {
	FeedName    string
	FeedURL     string
	ItemID      string
	Title       string
	Summary     string
	Content     string
	Link        string
	PublishedAt time.Time
	// HasPublished distinguishes a feed entry that carried no usable
	// publish date from one published at the zero time.
	HasPublished bool
	Image        *ExtractedImage
	ImageURLs    []string
}

// CandidateItem is a feed item that passed image extraction and is eligible
// for selection in the current run. It is never persisted beyond the run.
type CandidateItem struct {
	ItemID      string
	FeedName    string
	Title       string
	Summary     string
	Content     string
	Link        string
	PublishedAt time.Time
	Image       *ExtractedImage
	ImageURLs   []string
}

// Candidate converts a parsed item into a run candidate.
func (r RawItem) Candidate() CandidateItem {
	return CandidateItem{
		ItemID:      r.ItemID,
		FeedName:    r.FeedName,
		Title:       r.Title,
		Summary:     r.Summary,
		Content:     r.Content,
		Link:        r.Link,
		PublishedAt: r.PublishedAt,
		Image:       r.Image,
		ImageURLs:   r.ImageURLs,
	}
}

// SourceText returns the grounding text used for narration generation and
// the paraphrase similarity gate.
func (c CandidateItem) SourceText() string {
	text := c.Title
	if c.Summary != "" {
		text += " " + c.Summary
	}
	if c.Content != "" && c.Content != c.Summary {
		text += " " + c.Content
	}
	return text
}

// ClipResult records one successfully produced artifact.
type ClipResult struct {
	ItemID       string    `json:"item_id"`
	FeedName     string    `json:"feed_name"`
	Title        string    `json:"title"`
	PublishedAt  time.Time `json:"published_at"`
	SourceLink   string    `json:"source_link"`
	ArtifactKey  string    `json:"artifact_key"`
	PresignedURL string    `json:"presigned_url"`
	ModelUsed    string    `json:"model_used"`
	CreatedAt    time.Time `json:"created_at"`
}
