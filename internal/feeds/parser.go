package feeds

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"newsreel/internal/models"
	"newsreel/internal/text"
)

var htmlTagPattern = regexp.MustCompile("<[^>]*>")

// parseFeedItems converts gofeed items into RawItem models. Items with an
// empty title are kept under "Untitled" so the deterministic item ID still
// has a stable basis; items with neither GUID, link, title, nor date cannot
// be identified and are skipped.
func parseFeedItems(source models.FeedSource, feed *gofeed.Feed) []models.RawItem {
	var items []models.RawItem
	for _, item := range feed.Items {
		id := computeItemID(item)
		if id == "" {
			continue
		}

		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = "Untitled"
		}

		raw := models.RawItem{
			FeedName: source.Name,
			FeedURL:  source.URL,
			ItemID:   id,
			Title:    title,
			Summary:  stripHTML(item.Description),
			Content:  stripHTML(item.Content),
			Link:     strings.TrimSpace(item.Link),
		}

		if t := publishedTime(item); t != nil {
			raw.PublishedAt = t.UTC()
			raw.HasPublished = true
		}

		raw.ImageURLs, raw.Image = ExtractImages(item, source.URL)
		items = append(items, raw)
	}

	return items
}

// computeItemID derives the deterministic identity of a feed entry. The same
// (feed entry GUID or link) always yields the same ID across runs. Entries
// with neither fall back to a hash of title and publish date.
func computeItemID(item *gofeed.Item) string {
	if guid := strings.TrimSpace(item.GUID); guid != "" {
		return "guid:" + guid
	}
	if link := strings.TrimSpace(item.Link); link != "" {
		return "link:" + link
	}

	title := strings.TrimSpace(item.Title)
	published := strings.TrimSpace(item.Published)
	if published == "" {
		published = strings.TrimSpace(item.Updated)
	}
	if title == "" && published == "" {
		return ""
	}
	return "hash:" + text.Hash(fmt.Sprintf("%s|%s", title, published))
}

// publishedTime prefers the published date, falling back to the updated
// date when the feed only carries the latter.
func publishedTime(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}

// stripHTML removes HTML tags from s, unescapes entities, and collapses
// whitespace.
func stripHTML(s string) string {
	clean := htmlTagPattern.ReplaceAllString(s, " ")
	clean = html.UnescapeString(clean)
	return strings.Join(strings.Fields(clean), " ")
}
