package feeds

import (
	"html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"newsreel/internal/models"
)

var acceptedImageSuffixes = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

// ExtractImages derives the qualifying image URLs for a feed item, in
// priority order: enclosure, media:content, media:thumbnail, inline <img>
// tags in the summary or content markup, then the item-level image some
// feeds set directly. Linked article pages are
// never fetched. The returned ExtractedImage is the first match (nil when
// the item has no qualifying image); the slice holds every distinct
// candidate URL for download fallback.
func ExtractImages(item *gofeed.Item, baseURL string) ([]string, *models.ExtractedImage) {
	seen := make(map[string]struct{})
	var urls []string
	var first *models.ExtractedImage

	add := func(raw string, kind models.ImageSourceKind) {
		normalized := normalizeImageURL(raw, baseURL)
		if normalized == "" {
			return
		}
		if _, dup := seen[normalized]; dup {
			return
		}
		if !acceptedImageExtension(normalized) {
			return
		}
		seen[normalized] = struct{}{}
		urls = append(urls, normalized)
		if first == nil {
			first = &models.ExtractedImage{URL: normalized, SourceKind: kind}
		}
	}

	for _, enc := range item.Enclosures {
		if enc == nil {
			continue
		}
		if strings.HasPrefix(strings.ToLower(enc.Type), "image/") {
			add(enc.URL, models.ImageFromEnclosure)
		}
	}

	for _, media := range mediaExtensions(item, "content") {
		u := media.Attrs["url"]
		typ := strings.ToLower(media.Attrs["type"])
		if u != "" && (strings.HasPrefix(typ, "image/") || acceptedImageExtension(u)) {
			add(u, models.ImageFromMediaContent)
		}
	}

	for _, media := range mediaExtensions(item, "thumbnail") {
		if u := media.Attrs["url"]; u != "" {
			add(u, models.ImageFromMediaThumbnail)
		}
	}

	for _, blob := range []string{item.Description, item.Content} {
		for _, src := range inlineImageSources(blob) {
			add(src, models.ImageFromInlineImg)
		}
	}

	// Some feeds expose one image directly on the item.
	if item.Image != nil && item.Image.URL != "" {
		add(item.Image.URL, models.ImageFromItemImage)
	}

	return urls, first
}

// mediaExtensions returns the media-namespace extension elements of the
// given name, e.g. media:content or media:thumbnail.
func mediaExtensions(item *gofeed.Item, name string) []extElement {
	exts, ok := item.Extensions["media"]
	if !ok {
		return nil
	}
	elems := make([]extElement, 0, len(exts[name]))
	for _, e := range exts[name] {
		elems = append(elems, extElement{Attrs: e.Attrs})
	}
	return elems
}

// extElement is the subset of a feed extension element the extractor needs.
type extElement struct {
	Attrs map[string]string
}

// inlineImageSources parses an HTML fragment and returns the src attribute
// of every <img> tag, in document order.
func inlineImageSources(fragment string) []string {
	if strings.TrimSpace(fragment) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil
	}

	var sources []string
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok && strings.TrimSpace(src) != "" {
			sources = append(sources, strings.TrimSpace(src))
		}
	})
	return sources
}

// normalizeImageURL unescapes the raw URL and resolves it against the feed
// URL so relative image paths become absolute.
func normalizeImageURL(raw, baseURL string) string {
	raw = html.UnescapeString(strings.TrimSpace(raw))
	if raw == "" {
		return ""
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// acceptedImageExtension reports whether the URL path ends in a renderable
// still-image extension.
func acceptedImageExtension(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, suffix := range acceptedImageSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}
