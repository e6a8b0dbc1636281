package channel

import (
	"context"
	"net/http"
	"time"

	"marketbrief/internal/chunk"
	"marketbrief/pkg/logx"
)

// Sender delivers one message part to one channel.
//
// Implementations make exactly one external delivery attempt per call; the
// dispatcher wraps Send in the retry engine.
type Sender interface {
	Send(ctx context.Context, title string, part chunk.Chunk) error
}

// New builds the sender for cfg's variant. Configuration problems surface
// here, before anything is sent.
func New(cfg Config, log logx.Logger) (Sender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = log.With(logx.String("channel", cfg.DisplayName()))
	switch cfg.Kind {
	case KindChatWebhook:
		return newChatWebhook(cfg, log), nil
	case KindBot:
		return newBot(cfg, log)
	case KindEmail:
		return newEmail(cfg, log), nil
	case KindWebhook:
		return newWebhook(cfg, log), nil
	}
	// Unreachable: Validate rejects unknown kinds.
	return nil, ErrInvalidConfig
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}
