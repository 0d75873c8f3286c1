package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const downloadUserAgent = "newsreel/1.0"

var extensionByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Downloader fetches candidate images to local files.
type Downloader struct {
	client    *http.Client
	maxImages int
	logger    *slog.Logger
}

// NewDownloader creates a Downloader that keeps at most maxImages per item.
func NewDownloader(maxImages int, timeout time.Duration, logger *slog.Logger) *Downloader {
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &Downloader{
		client:    &http.Client{Timeout: timeout},
		maxImages: maxImages,
		logger:    logger,
	}
}

// DownloadImages fetches image URLs into dir, tolerating individual
// failures. It returns the paths that downloaded successfully, in input
// order; the caller decides whether an empty result is fatal.
func (d *Downloader) DownloadImages(ctx context.Context, imageURLs []string, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	var downloaded []string
	for i, imageURL := range imageURLs {
		if len(downloaded) >= d.maxImages {
			break
		}
		path, err := d.downloadOne(ctx, imageURL, dir, i)
		if err != nil {
			d.logger.Warn("image download failed", "url", imageURL, "error", err)
			continue
		}
		downloaded = append(downloaded, path)
	}
	return downloaded, nil
}

func (d *Downloader) downloadOne(ctx context.Context, imageURL, dir string, index int) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", downloadUserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	ext, ok := extensionByContentType[contentType]
	if !ok {
		ext = extensionFromURL(imageURL)
	}

	path := filepath.Join(dir, fmt.Sprintf("image_%02d%s", index, ext))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("closing file: %w", err)
	}
	return path, nil
}

func extensionFromURL(imageURL string) string {
	parsed, err := url.Parse(imageURL)
	if err != nil {
		return ".jpg"
	}
	path := strings.ToLower(parsed.Path)
	for _, suffix := range []string{".jpg", ".jpeg", ".png", ".webp", ".gif"} {
		if strings.HasSuffix(path, suffix) {
			if suffix == ".jpeg" {
				return ".jpg"
			}
			return suffix
		}
	}
	return ".jpg"
}
