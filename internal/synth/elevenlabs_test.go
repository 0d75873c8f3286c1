package synth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSynth(t *testing.T, handler http.HandlerFunc) *ElevenLabs {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	e := NewElevenLabs(Options{
		APIKey:     "test-key",
		VoiceID:    "voice-1",
		MaxRetries: 3,
	}, discardLogger())
	e.client = server.Client()
	e.baseURL = server.URL
	e.retryDelay = time.Millisecond
	return e
}

func TestSynthesizeWritesAudio(t *testing.T) {
	e := newTestSynth(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("xi-api-key"); got != "test-key" {
			t.Errorf("xi-api-key = %q", got)
		}
		w.Write([]byte("mp3-bytes"))
	})

	out := filepath.Join(t.TempDir(), "audio", "narration.mp3")
	if err := e.Synthesize(context.Background(), "match report", out); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "mp3-bytes" {
		t.Errorf("audio content = %q", data)
	}
}

func TestSynthesizeRetriesTransientStatus(t *testing.T) {
	var attempts int
	e := newTestSynth(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("mp3-bytes"))
	})

	out := filepath.Join(t.TempDir(), "narration.mp3")
	if err := e.Synthesize(context.Background(), "match report", out); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestSynthesizeDoesNotRetryClientErrors(t *testing.T) {
	var attempts int
	e := newTestSynth(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	})

	out := filepath.Join(t.TempDir(), "narration.mp3")
	if err := e.Synthesize(context.Background(), "match report", out); err == nil {
		t.Fatal("expected error, got nil")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}
