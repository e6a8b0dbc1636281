package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"marketbrief/internal/chunk"
	"marketbrief/internal/retry"
	"marketbrief/pkg/logx"
)

// chatWebhookSender posts Slack/Discord-style {"text": ...} payloads.
type chatWebhookSender struct {
	cfg  Config
	log  logx.Logger
	http *http.Client
}

func newChatWebhook(cfg Config, log logx.Logger) *chatWebhookSender {
	return &chatWebhookSender{cfg: cfg, log: log, http: newHTTPClient()}
}

func (s *chatWebhookSender) Send(ctx context.Context, title string, part chunk.Chunk) error {
	text := part.Payload
	if title != "" && part.Index == 0 {
		text = "*" + title + "*\n" + text
	}
	body := map[string]string{"text": text}
	err := postJSON(ctx, s.http, s.cfg.URL, body)
	if err != nil {
		return err
	}
	s.log.Debug("chunk delivered", logx.Int("part", part.Index+1), logx.Int("parts", part.Total))
	return nil
}

// webhookSender posts a structured envelope so arbitrary receivers can
// reconstruct multi-part messages.
type webhookSender struct {
	cfg  Config
	log  logx.Logger
	http *http.Client
}

func newWebhook(cfg Config, log logx.Logger) *webhookSender {
	return &webhookSender{cfg: cfg, log: log, http: newHTTPClient()}
}

type webhookEnvelope struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body"`
	Part  int    `json:"part"`
	Parts int    `json:"parts"`
}

func (s *webhookSender) Send(ctx context.Context, title string, part chunk.Chunk) error {
	env := webhookEnvelope{
		Title: title,
		Body:  part.Payload,
		Part:  part.Index + 1,
		Parts: part.Total,
	}
	if err := postJSON(ctx, s.http, s.cfg.URL, env); err != nil {
		return err
	}
	s.log.Debug("chunk delivered", logx.Int("part", part.Index+1), logx.Int("parts", part.Total))
	return nil
}

func postJSON(ctx context.Context, client *http.Client, url string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return &SendError{Kind: retry.KindConfig, Msg: fmt.Sprintf("marshal payload: %v", err), Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return &SendError{Kind: retry.KindConfig, Msg: fmt.Sprintf("build request: %v", err), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return netErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		// Drain so the connection is reusable.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	se := statusErr(resp.StatusCode, strings.TrimSpace(string(detail)))
	if resp.StatusCode == http.StatusTooManyRequests {
		if secs, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After"))); err == nil && secs > 0 {
			se.After = time.Duration(secs) * time.Second
		}
	}
	return se
}
