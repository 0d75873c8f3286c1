package media

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDownloadImagesToleratesFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/good.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte("png-bytes"))
		case "/missing.jpg":
			http.NotFound(w, r)
		default:
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte("jpeg-bytes"))
		}
	}))
	defer server.Close()

	d := NewDownloader(5, 5*time.Second, discardLogger())
	got, err := d.DownloadImages(context.Background(), []string{
		server.URL + "/good.png",
		server.URL + "/missing.jpg",
		server.URL + "/cover",
	}, t.TempDir())
	if err != nil {
		t.Fatalf("DownloadImages() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d downloads, want 2", len(got))
	}
	if filepath.Ext(got[0]) != ".png" {
		t.Errorf("first download ext = %s, want .png", filepath.Ext(got[0]))
	}
	if filepath.Ext(got[1]) != ".jpg" {
		t.Errorf("content-type fallback ext = %s, want .jpg", filepath.Ext(got[1]))
	}
}

func TestDownloadImagesRespectsMax(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()

	urls := []string{
		server.URL + "/a.jpg",
		server.URL + "/b.jpg",
		server.URL + "/c.jpg",
	}
	d := NewDownloader(2, 5*time.Second, discardLogger())
	got, err := d.DownloadImages(context.Background(), urls, t.TempDir())
	if err != nil {
		t.Fatalf("DownloadImages() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d downloads, want 2", len(got))
	}
	if hits != 2 {
		t.Errorf("server saw %d requests, want 2", hits)
	}
}

func TestExtensionFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{url: "https://cdn.example.com/pic.jpeg?w=600", want: ".jpg"},
		{url: "https://cdn.example.com/pic.webp", want: ".webp"},
		{url: "https://cdn.example.com/pic", want: ".jpg"},
		{url: "https://cdn.example.com/PIC.PNG", want: ".png"},
	}
	for _, tt := range tests {
		if got := extensionFromURL(tt.url); got != tt.want {
			t.Errorf("extensionFromURL(%q) = %s, want %s", tt.url, got, tt.want)
		}
	}
}
