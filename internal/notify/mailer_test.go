package notify

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"newsreel/internal/models"
)

func sampleClip() models.ClipResult {
	return models.ClipResult{
		ItemID:       "guid:final-123",
		FeedName:     "scores",
		Title:        "Underdogs stun champions",
		PublishedAt:  time.Date(2024, 3, 1, 18, 30, 0, 0, time.UTC),
		SourceLink:   "https://example.com/final",
		ArtifactKey:  "videos/2024/03/01/underdogs-stun-champions-deadbeef00.mp4",
		PresignedURL: "https://bucket.example.com/signed",
	}
}

func TestDigestMessage(t *testing.T) {
	now := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	subject, body := digestMessage([]models.ClipResult{sampleClip()}, now)

	if !strings.Contains(subject, "1 new clip(s)") {
		t.Errorf("subject = %q", subject)
	}
	for _, want := range []string{
		"1. Underdogs stun champions",
		"Feed: scores",
		"Published: 2024-03-01T18:30:00Z",
		"Source: https://example.com/final",
		"Download: https://bucket.example.com/signed",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestDigestMessageEmptyRun(t *testing.T) {
	_, body := digestMessage(nil, time.Now().UTC())
	if !strings.Contains(body, "No new clips were created in this run.") {
		t.Errorf("body = %q", body)
	}
}

func TestClipMessageHandlesMissingFields(t *testing.T) {
	clip := sampleClip()
	clip.PublishedAt = time.Time{}
	clip.SourceLink = ""

	body := clipMessage(clip)
	if !strings.Contains(body, "Published: unknown") {
		t.Errorf("missing published fallback:\n%s", body)
	}
	if !strings.Contains(body, "Source: N/A") {
		t.Errorf("missing source fallback:\n%s", body)
	}
}

func TestSendSuppressedOnEmptyRun(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	// Host is unreachable on purpose: Send must return before dialing.
	m := NewMailer(Options{Host: "smtp.invalid", Port: 587, To: "ops@example.com"}, logger)

	sent, err := m.Send(context.Background(), nil)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if sent != 0 {
		t.Errorf("sent = %d, want 0", sent)
	}
}
