package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// GenerateSRT writes narration as evenly spaced SRT captions spanning
// duration, one cue roughly every two seconds.
func GenerateSRT(narration string, duration time.Duration, outputPath string) error {
	chunks := chunkWords(narration, max(3, int(duration.Seconds()/2)))
	if len(chunks) == 0 {
		chunks = []string{strings.TrimSpace(narration)}
	}
	step := duration / time.Duration(len(chunks))

	var b strings.Builder
	for i, chunk := range chunks {
		start := time.Duration(i) * step
		end := time.Duration(i+1) * step
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", srtTimestamp(start), srtTimestamp(end))
		b.WriteString(chunk)
		b.WriteString("\n\n")
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("creating captions dir: %w", err)
	}
	if err := os.WriteFile(outputPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing captions: %w", err)
	}
	return nil
}

// chunkWords splits text into up to targetChunks groups of at least three
// words each.
func chunkWords(text string, targetChunks int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if targetChunks < 1 {
		targetChunks = 1
	}
	chunkSize := max(3, (len(words)+targetChunks-1)/targetChunks)

	var chunks []string
	for i := 0; i < len(words); i += chunkSize {
		end := min(i+chunkSize, len(words))
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}

func srtTimestamp(d time.Duration) string {
	ms := d.Milliseconds()
	hours := ms / 3_600_000
	ms -= hours * 3_600_000
	minutes := ms / 60_000
	ms -= minutes * 60_000
	secs := ms / 1000
	ms -= secs * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, ms)
}
