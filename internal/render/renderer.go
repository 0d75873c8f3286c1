package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Style controls the look of rendered clips.
type Style struct {
	MinDuration     time.Duration
	MaxDuration     time.Duration
	FPS             int
	Bitrate         string
	CaptionFontSize int
	CaptionMarginV  int
}

// Renderer builds vertical slideshow videos with ffmpeg.
type Renderer struct {
	ffmpegBin  string
	ffprobeBin string
	style      Style
	logger     *slog.Logger
}

// NewRenderer creates a Renderer using the given ffmpeg/ffprobe binaries.
func NewRenderer(ffmpegBin, ffprobeBin string, style Style, logger *slog.Logger) *Renderer {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}
	return &Renderer{
		ffmpegBin:  ffmpegBin,
		ffprobeBin: ffprobeBin,
		style:      style,
		logger:     logger,
	}
}

// ProbeAudioDuration returns the duration of an audio file, with a small
// floor so a zero-length probe cannot produce a zero-length video.
func (r *Renderer) ProbeAudioDuration(ctx context.Context, audioPath string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, r.ffprobeBin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioPath,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w: %s", audioPath, err, tail(stderr.String()))
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing ffprobe output: %w", err)
	}
	if seconds < 0.1 {
		seconds = 0.1
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// RenderVideo composes imagePaths and audioPath into a 1080x1920 clip at
// outputPath. When srtPath is non-empty the captions are burned in; if that
// pass fails, the render is retried once without captions so a malformed
// subtitle file cannot sink the whole clip.
func (r *Renderer) RenderVideo(ctx context.Context, imagePaths []string, audioPath, srtPath, outputPath string) error {
	if len(imagePaths) == 0 {
		return errors.New("at least one image is required for rendering")
	}

	audioDuration, err := r.ProbeAudioDuration(ctx, audioPath)
	if err != nil {
		return err
	}
	target := clampDuration(audioDuration, r.style.MinDuration, r.style.MaxDuration)
	segment := target / time.Duration(len(imagePaths))

	err = r.renderOnce(ctx, imagePaths, audioPath, srtPath, outputPath, target, segment)
	if err != nil && srtPath != "" {
		r.logger.Warn("render with captions failed, retrying without", "error", err)
		err = r.renderOnce(ctx, imagePaths, audioPath, "", outputPath, target, segment)
	}
	if err != nil {
		return fmt.Errorf("ffmpeg render: %w", err)
	}
	return nil
}

func (r *Renderer) renderOnce(ctx context.Context, imagePaths []string, audioPath, srtPath, outputPath string, target, segment time.Duration) error {
	filter, mapped := r.buildFilter(len(imagePaths), segment, srtPath)

	args := []string{"-y"}
	segmentArg := formatSeconds(segment)
	for _, image := range imagePaths {
		args = append(args, "-loop", "1", "-t", segmentArg, "-i", image)
	}
	args = append(args, "-i", audioPath)
	args = append(args,
		"-filter_complex", filter,
		"-map", "["+mapped+"]",
		"-map", fmt.Sprintf("%d:a", len(imagePaths)),
		"-t", formatSeconds(target),
		"-r", strconv.Itoa(r.style.FPS),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-b:v", r.style.Bitrate,
		"-c:a", "aac",
		"-b:a", "128k",
		"-af", "loudnorm=I=-16:TP=-1.5:LRA=11",
		"-movflags", "+faststart",
		"-shortest",
		outputPath,
	)

	r.logger.Debug("running ffmpeg", "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, r.ffmpegBin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s", err, tail(stderr.String()))
	}
	return nil
}

// buildFilter assembles the filter_complex graph: per-image scale, crop and
// slow zoom, concat, then optional caption burn-in.
func (r *Renderer) buildFilter(imageCount int, segment time.Duration, srtPath string) (string, string) {
	var parts []string
	framesPerSegment := max(1, int(math.Ceil(segment.Seconds()*float64(r.style.FPS))))

	for i := 0; i < imageCount; i++ {
		parts = append(parts, fmt.Sprintf(
			"[%d:v]scale=1080:1920:force_original_aspect_ratio=increase,crop=1080:1920,"+
				"zoompan=z='min(zoom+0.0008,1.15)':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=%d:s=1080x1920:fps=%d,"+
				"trim=duration=%s,setpts=PTS-STARTPTS,format=yuv420p[v%d]",
			i, framesPerSegment, r.style.FPS, formatSeconds(segment), i,
		))
	}

	var concat strings.Builder
	for i := 0; i < imageCount; i++ {
		fmt.Fprintf(&concat, "[v%d]", i)
	}
	parts = append(parts, fmt.Sprintf("%sconcat=n=%d:v=1:a=0[vcat]", concat.String(), imageCount))
	mapped := "vcat"

	if srtPath != "" {
		parts = append(parts, fmt.Sprintf(
			"[%s]subtitles='%s':force_style='Fontsize=%d,MarginV=%d'[vout]",
			mapped, escapeSubtitlesPath(srtPath), r.style.CaptionFontSize, r.style.CaptionMarginV,
		))
		mapped = "vout"
	}
	return strings.Join(parts, ";"), mapped
}

// escapeSubtitlesPath quotes a path for the ffmpeg subtitles filter, which
// has its own escaping rules for colons and quotes.
func escapeSubtitlesPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	s := strings.ReplaceAll(abs, "\\", "/")
	s = strings.ReplaceAll(s, ":", "\\:")
	s = strings.ReplaceAll(s, "'", "\\'")
	return s
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if hi > 0 && d > hi {
		return hi
	}
	return d
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func tail(s string) string {
	if len(s) > 2000 {
		return s[len(s)-2000:]
	}
	return s
}
