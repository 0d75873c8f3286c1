package feeds

import (
	"testing"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"newsreel/internal/models"
)

func mediaExt(name string, attrs map[string]string) map[string]map[string][]ext.Extension {
	return map[string]map[string][]ext.Extension{
		"media": {name: []ext.Extension{{Name: name, Attrs: attrs}}},
	}
}

func TestExtractImagesPriority(t *testing.T) {
	tests := []struct {
		name     string
		item     *gofeed.Item
		wantURL  string
		wantKind models.ImageSourceKind
	}{
		{
			name: "enclosure wins over inline img",
			item: &gofeed.Item{
				Enclosures:  []*gofeed.Enclosure{{URL: "https://cdn.example.com/enc.jpg", Type: "image/jpeg"}},
				Description: `<img src="https://cdn.example.com/inline.png">`,
			},
			wantURL:  "https://cdn.example.com/enc.jpg",
			wantKind: models.ImageFromEnclosure,
		},
		{
			name: "media content wins over thumbnail",
			item: &gofeed.Item{
				Extensions: map[string]map[string][]ext.Extension{
					"media": {
						"content":   []ext.Extension{{Name: "content", Attrs: map[string]string{"url": "https://cdn.example.com/full.jpg", "type": "image/jpeg"}}},
						"thumbnail": []ext.Extension{{Name: "thumbnail", Attrs: map[string]string{"url": "https://cdn.example.com/thumb.jpg"}}},
					},
				},
			},
			wantURL:  "https://cdn.example.com/full.jpg",
			wantKind: models.ImageFromMediaContent,
		},
		{
			name: "media thumbnail when nothing better",
			item: &gofeed.Item{
				Extensions: mediaExt("thumbnail", map[string]string{"url": "https://cdn.example.com/thumb.webp"}),
			},
			wantURL:  "https://cdn.example.com/thumb.webp",
			wantKind: models.ImageFromMediaThumbnail,
		},
		{
			name: "inline img as last resort",
			item: &gofeed.Item{
				Description: `<p>Story</p><img src="https://cdn.example.com/inline.gif" alt="">`,
			},
			wantURL:  "https://cdn.example.com/inline.gif",
			wantKind: models.ImageFromInlineImg,
		},
		{
			name: "item-level image tagged with its own kind",
			item: &gofeed.Item{
				Image: &gofeed.Image{URL: "https://cdn.example.com/item.jpg"},
			},
			wantURL:  "https://cdn.example.com/item.jpg",
			wantKind: models.ImageFromItemImage,
		},
		{
			name: "non-image enclosure is ignored",
			item: &gofeed.Item{
				Enclosures:  []*gofeed.Enclosure{{URL: "https://cdn.example.com/audio.mp3", Type: "audio/mpeg"}},
				Description: `<img src="https://cdn.example.com/inline.jpg">`,
			},
			wantURL:  "https://cdn.example.com/inline.jpg",
			wantKind: models.ImageFromInlineImg,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, img := ExtractImages(tt.item, "https://example.com/rss")
			if img == nil {
				t.Fatal("expected an extracted image, got nil")
			}
			if img.URL != tt.wantURL {
				t.Errorf("URL = %q, want %q", img.URL, tt.wantURL)
			}
			if img.SourceKind != tt.wantKind {
				t.Errorf("SourceKind = %q, want %q", img.SourceKind, tt.wantKind)
			}
		})
	}
}

func TestExtractImagesNoQualifyingImage(t *testing.T) {
	tests := []struct {
		name string
		item *gofeed.Item
	}{
		{name: "empty item", item: &gofeed.Item{}},
		{
			name: "inline img with unsupported extension",
			item: &gofeed.Item{Description: `<img src="https://cdn.example.com/vector.svg">`},
		},
		{
			name: "enclosure without image type",
			item: &gofeed.Item{Enclosures: []*gofeed.Enclosure{{URL: "https://cdn.example.com/doc.pdf", Type: "application/pdf"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			urls, img := ExtractImages(tt.item, "https://example.com/rss")
			if img != nil {
				t.Errorf("expected nil image, got %+v", img)
			}
			if len(urls) != 0 {
				t.Errorf("expected no URLs, got %v", urls)
			}
		})
	}
}

func TestExtractImagesResolvesRelativeURLs(t *testing.T) {
	item := &gofeed.Item{
		Description: `<img src="/images/photo.jpg">`,
	}

	urls, img := ExtractImages(item, "https://example.com/feeds/rss.xml")
	if img == nil {
		t.Fatal("expected an extracted image")
	}
	want := "https://example.com/images/photo.jpg"
	if img.URL != want {
		t.Errorf("URL = %q, want %q", img.URL, want)
	}
	if len(urls) != 1 {
		t.Errorf("got %d urls, want 1", len(urls))
	}
}

func TestExtractImagesDeduplicates(t *testing.T) {
	item := &gofeed.Item{
		Enclosures: []*gofeed.Enclosure{{URL: "https://cdn.example.com/a.jpg", Type: "image/jpeg"}},
		Description: `<img src="https://cdn.example.com/a.jpg">` +
			`<img src="https://cdn.example.com/b.png">`,
	}

	urls, img := ExtractImages(item, "https://example.com/rss")
	if len(urls) != 2 {
		t.Fatalf("got %d urls, want 2: %v", len(urls), urls)
	}
	if img.SourceKind != models.ImageFromEnclosure {
		t.Errorf("first match should keep enclosure kind, got %q", img.SourceKind)
	}
}
