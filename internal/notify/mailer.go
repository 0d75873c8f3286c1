package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"newsreel/internal/models"
)

// Mode selects how clip notifications are batched.
const (
	ModeDigest  = "digest"
	ModePerClip = "per_clip"
)

// Options configures the SMTP mailer.
type Options struct {
	Host       string
	Port       int
	Username   string
	Password   string
	To         string
	Mode       string
	AlwaysSend bool
}

// Mailer sends clip notifications over SMTP.
type Mailer struct {
	opts   Options
	logger *slog.Logger
}

// NewMailer creates a Mailer.
func NewMailer(opts Options, logger *slog.Logger) *Mailer {
	if opts.Mode == "" {
		opts.Mode = ModeDigest
	}
	return &Mailer{opts: opts, logger: logger}
}

// Send notifies the recipient about the run's clips and returns the number
// of emails sent. An empty run sends nothing unless AlwaysSend is set.
func (m *Mailer) Send(ctx context.Context, clips []models.ClipResult) (int, error) {
	if len(clips) == 0 && !m.opts.AlwaysSend {
		m.logger.Info("no clips created, email suppressed")
		return 0, nil
	}

	if m.opts.Mode == ModePerClip {
		return m.sendPerClip(ctx, clips)
	}
	return m.sendDigest(ctx, clips)
}

func (m *Mailer) sendDigest(ctx context.Context, clips []models.ClipResult) (int, error) {
	subject, body := digestMessage(clips, time.Now().UTC())
	if err := m.deliver(ctx, subject, body); err != nil {
		return 0, err
	}
	return 1, nil
}

func digestMessage(clips []models.ClipResult, now time.Time) (subject, body string) {
	stamp := now.Format("2006-01-02 15:04 UTC")
	subject = fmt.Sprintf("newsreel digest - %d new clip(s) - %s", len(clips), stamp)

	var b strings.Builder
	fmt.Fprintf(&b, "newsreel run at %s\n\n", stamp)
	if len(clips) == 0 {
		b.WriteString("No new clips were created in this run.\n")
	}
	for i, clip := range clips {
		fmt.Fprintf(&b, "%d. %s\n", i+1, clip.Title)
		fmt.Fprintf(&b, "   Feed: %s\n", clip.FeedName)
		fmt.Fprintf(&b, "   Published: %s\n", publishedLabel(clip))
		fmt.Fprintf(&b, "   Source: %s\n", sourceLabel(clip))
		fmt.Fprintf(&b, "   Download: %s\n\n", clip.PresignedURL)
	}
	return subject, b.String()
}

func (m *Mailer) sendPerClip(ctx context.Context, clips []models.ClipResult) (int, error) {
	if len(clips) == 0 {
		if err := m.deliver(ctx, "newsreel - no new clips", "No new clips were created in this run.\n"); err != nil {
			return 0, err
		}
		return 1, nil
	}

	sent := 0
	for _, clip := range clips {
		if err := m.deliver(ctx, "newsreel - "+clip.Title, clipMessage(clip)); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func clipMessage(clip models.ClipResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", clip.Title)
	fmt.Fprintf(&b, "Feed: %s\n", clip.FeedName)
	fmt.Fprintf(&b, "Published: %s\n", publishedLabel(clip))
	fmt.Fprintf(&b, "Source: %s\n", sourceLabel(clip))
	fmt.Fprintf(&b, "Download: %s\n", clip.PresignedURL)
	return b.String()
}

func (m *Mailer) deliver(ctx context.Context, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.opts.Username); err != nil {
		return fmt.Errorf("setting sender: %w", err)
	}
	if err := msg.To(m.opts.To); err != nil {
		return fmt.Errorf("setting recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(m.opts.Host,
		mail.WithPort(m.opts.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.opts.Username),
		mail.WithPassword(m.opts.Password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	m.logger.Info("email sent", "subject", subject, "to", m.opts.To)
	return nil
}

func publishedLabel(clip models.ClipResult) string {
	if clip.PublishedAt.IsZero() {
		return "unknown"
	}
	return clip.PublishedAt.UTC().Format(time.RFC3339)
}

func sourceLabel(clip models.ClipResult) string {
	if clip.SourceLink == "" {
		return "N/A"
	}
	return clip.SourceLink
}
