package channel

import (
	"fmt"
	"net/url"
	"strings"
)

// Kind selects the sender variant for a channel.
type Kind string

const (
	// KindChatWebhook posts Slack/Discord-style {"text": ...} JSON.
	KindChatWebhook Kind = "chat-webhook"
	// KindBot delivers through the Telegram bot API.
	KindBot Kind = "bot"
	// KindEmail delivers via SMTP.
	KindEmail Kind = "email"
	// KindWebhook posts a structured JSON envelope to an arbitrary receiver.
	KindWebhook Kind = "webhook"
)

// Config describes one delivery destination. It is built by the configuration
// layer at startup and read-only afterwards.
type Config struct {
	Kind    Kind
	Name    string
	Enabled bool

	// MaxChunkSize is the channel's protocol limit in bytes. Messages longer
	// than this are split before sending.
	MaxChunkSize int

	// chat-webhook / webhook
	URL string

	// bot
	Token  string
	ChatID int64

	// email
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	From     string
	To       []string
}

// DisplayName identifies the channel in outcomes and logs.
func (c Config) DisplayName() string {
	if strings.TrimSpace(c.Name) != "" {
		return c.Name
	}
	return string(c.Kind)
}

// Validate checks variant-specific required fields. It runs eagerly, before
// any delivery attempt.
func (c Config) Validate() error {
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("%w: %s: max_chunk_size must be > 0", ErrInvalidConfig, c.DisplayName())
	}
	switch c.Kind {
	case KindChatWebhook, KindWebhook:
		if strings.TrimSpace(c.URL) == "" {
			return fmt.Errorf("%w: %s: url is required", ErrInvalidConfig, c.DisplayName())
		}
		u, err := url.Parse(c.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("%w: %s: url must be http(s)", ErrInvalidConfig, c.DisplayName())
		}
	case KindBot:
		if strings.TrimSpace(c.Token) == "" {
			return fmt.Errorf("%w: %s: token is required", ErrInvalidConfig, c.DisplayName())
		}
		if c.ChatID == 0 {
			return fmt.Errorf("%w: %s: chat_id is required", ErrInvalidConfig, c.DisplayName())
		}
	case KindEmail:
		if strings.TrimSpace(c.SMTPHost) == "" {
			return fmt.Errorf("%w: %s: smtp_host is required", ErrInvalidConfig, c.DisplayName())
		}
		if strings.TrimSpace(c.From) == "" {
			return fmt.Errorf("%w: %s: from is required", ErrInvalidConfig, c.DisplayName())
		}
		if len(c.To) == 0 {
			return fmt.Errorf("%w: %s: at least one recipient is required", ErrInvalidConfig, c.DisplayName())
		}
	default:
		return fmt.Errorf("%w: unsupported channel kind %q", ErrInvalidConfig, c.Kind)
	}
	return nil
}
