package feeds

import (
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"newsreel/internal/models"
)

func TestComputeItemID(t *testing.T) {
	tests := []struct {
		name string
		item *gofeed.Item
		want string
	}{
		{
			name: "guid preferred over link",
			item: &gofeed.Item{GUID: "abc-123", Link: "https://example.com/a"},
			want: "guid:abc-123",
		},
		{
			name: "link used when guid missing",
			item: &gofeed.Item{Link: "https://example.com/a"},
			want: "link:https://example.com/a",
		},
		{
			name: "whitespace-only guid falls through to link",
			item: &gofeed.Item{GUID: "   ", Link: "https://example.com/a"},
			want: "link:https://example.com/a",
		},
		{
			name: "no identity at all yields empty id",
			item: &gofeed.Item{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeItemID(tt.item); got != tt.want {
				t.Errorf("computeItemID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestComputeItemIDIsDeterministic(t *testing.T) {
	item := &gofeed.Item{Title: "Big Win", Published: "Tue, 09 Jan 2024 22:00:00 GMT"}

	first := computeItemID(item)
	second := computeItemID(&gofeed.Item{Title: "Big Win", Published: "Tue, 09 Jan 2024 22:00:00 GMT"})

	if first == "" || first != second {
		t.Errorf("hash-based item IDs differ: %q vs %q", first, second)
	}
	if got := computeItemID(&gofeed.Item{Title: "Other", Published: "Tue, 09 Jan 2024 22:00:00 GMT"}); got == first {
		t.Error("different titles produced the same item ID")
	}
}

func TestParseFeedItems(t *testing.T) {
	source := models.FeedSource{Name: "Test Feed", URL: "https://example.com/rss"}
	pubTime := time.Date(2024, 1, 9, 22, 0, 0, 0, time.UTC)
	updTime := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)

	feed := &gofeed.Feed{Items: []*gofeed.Item{
		{
			GUID:            "one",
			Title:           "  First Item  ",
			Description:     "<p>Summary &amp; more</p>",
			Link:            "https://example.com/1",
			PublishedParsed: &pubTime,
		},
		{
			GUID:          "two",
			Title:         "",
			UpdatedParsed: &updTime,
		},
		{
			// No GUID, link, title, or date: skipped.
		},
	}}

	items := parseFeedItems(source, feed)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}

	first := items[0]
	if first.ItemID != "guid:one" {
		t.Errorf("ItemID = %q, want guid:one", first.ItemID)
	}
	if first.Title != "First Item" {
		t.Errorf("Title = %q, want trimmed", first.Title)
	}
	if first.Summary != "Summary & more" {
		t.Errorf("Summary = %q, want HTML stripped and unescaped", first.Summary)
	}
	if !first.HasPublished || !first.PublishedAt.Equal(pubTime) {
		t.Errorf("PublishedAt = %v (has=%v), want %v", first.PublishedAt, first.HasPublished, pubTime)
	}
	if first.FeedName != "Test Feed" {
		t.Errorf("FeedName = %q, want Test Feed", first.FeedName)
	}

	second := items[1]
	if second.Title != "Untitled" {
		t.Errorf("empty title should map to Untitled, got %q", second.Title)
	}
	if !second.HasPublished || !second.PublishedAt.Equal(updTime) {
		t.Errorf("updated date should back-fill PublishedAt, got %v", second.PublishedAt)
	}
}
