package channel

import (
	"context"
	"errors"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"

	"marketbrief/internal/chunk"
	"marketbrief/internal/retry"
	"marketbrief/pkg/logx"
)

// botSender delivers through the Telegram bot API via telebot.
type botSender struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot
}

func newBot(cfg Config, log logx.Logger) (*botSender, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Client:  newHTTPClient(),
		Offline: true, // no polling; this bot only sends
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, cfg.DisplayName(), err)
	}
	return &botSender{cfg: cfg, log: log, bot: b}, nil
}

func (s *botSender) Send(ctx context.Context, title string, part chunk.Chunk) error {
	text := part.Payload
	if title != "" && part.Index == 0 {
		text = title + "\n\n" + text
	}
	if part.Total > 1 {
		text = fmt.Sprintf("(%d/%d)\n%s", part.Index+1, part.Total, text)
	}

	// telebot calls don't take a context; bound them with a watchdog so a
	// dispatch deadline isn't held hostage by a stuck long poll.
	done := make(chan error, 1)
	go func() {
		_, err := s.bot.Send(tele.ChatID(s.cfg.ChatID), text, &tele.SendOptions{
			DisableWebPagePreview: true,
		})
		done <- err
	}()

	var err error
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err = <-done:
	}
	if err != nil {
		return classifyTelebot(err)
	}
	s.log.Debug("chunk delivered", logx.Int("part", part.Index+1), logx.Int("parts", part.Total))
	return nil
}

func classifyTelebot(err error) *SendError {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		se := &SendError{Kind: retry.KindRateLimited, Status: 429, Msg: err.Error(), Err: err}
		if flood.RetryAfter > 0 {
			se.After = time.Duration(flood.RetryAfter) * time.Second
		}
		return se
	}
	var api *tele.Error
	if errors.As(err, &api) {
		return &SendError{Kind: retry.KindForStatus(api.Code), Status: api.Code, Msg: api.Description, Err: err}
	}
	return netErr(err)
}
