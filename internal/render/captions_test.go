package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGenerateSRT(t *testing.T) {
	narration := strings.TrimSpace(strings.Repeat("play by play coverage ", 10))
	path := filepath.Join(t.TempDir(), "captions", "clip.srt")

	if err := GenerateSRT(narration, 20*time.Second, path); err != nil {
		t.Fatalf("GenerateSRT() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)

	if !strings.HasPrefix(content, "1\n00:00:00,000 --> ") {
		t.Errorf("first cue malformed:\n%s", content)
	}
	if !strings.Contains(content, " --> ") {
		t.Error("no cue timings present")
	}

	// Every word of the narration must survive chunking.
	for _, word := range strings.Fields(narration) {
		if !strings.Contains(content, word) {
			t.Errorf("word %q missing from captions", word)
			break
		}
	}
}

func TestChunkWords(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		targetChunks int
		wantChunks   int
	}{
		{name: "empty text", text: "   ", targetChunks: 5, wantChunks: 0},
		{name: "single short phrase", text: "goal scored late", targetChunks: 10, wantChunks: 1},
		{name: "even split", text: strings.Repeat("word ", 12), targetChunks: 4, wantChunks: 4},
		{name: "minimum chunk size of three", text: strings.Repeat("word ", 6), targetChunks: 6, wantChunks: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chunkWords(tt.text, tt.targetChunks)
			if len(got) != tt.wantChunks {
				t.Errorf("got %d chunks, want %d: %v", len(got), tt.wantChunks, got)
			}
		})
	}
}

func TestSRTTimestamp(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{d: 0, want: "00:00:00,000"},
		{d: 1500 * time.Millisecond, want: "00:00:01,500"},
		{d: 61 * time.Second, want: "00:01:01,000"},
		{d: time.Hour + 2*time.Minute + 3*time.Second + 45*time.Millisecond, want: "01:02:03,045"},
	}
	for _, tt := range tests {
		if got := srtTimestamp(tt.d); got != tt.want {
			t.Errorf("srtTimestamp(%v) = %s, want %s", tt.d, got, tt.want)
		}
	}
}

func TestClampDuration(t *testing.T) {
	lo, hi := 8*time.Second, 60*time.Second
	tests := []struct {
		name string
		d    time.Duration
		want time.Duration
	}{
		{name: "below floor", d: 3 * time.Second, want: lo},
		{name: "within range", d: 20 * time.Second, want: 20 * time.Second},
		{name: "above ceiling", d: 90 * time.Second, want: hi},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampDuration(tt.d, lo, hi); got != tt.want {
				t.Errorf("clampDuration(%v) = %v, want %v", tt.d, got, tt.want)
			}
		})
	}
}
