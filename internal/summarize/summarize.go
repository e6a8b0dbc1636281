// Package summarize turns raw quote data into a short prose briefing via an
// OpenAI-compatible chat-completions endpoint. The client is optional: when
// no endpoint is configured the app falls back to a plain rendering of the
// quotes, so a summarizer failure never blocks dispatch.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"marketbrief/internal/metrics"
	"marketbrief/internal/retry"
	"marketbrief/pkg/logx"
)

// Summarizer produces a prose summary for a prompt.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

type Client struct {
	cfg    Config
	http   *http.Client
	policy retry.Policy
	log    logx.Logger
}

// Error carries the failure taxonomy for a summarizer call.
type Error struct {
	Kind   retry.Kind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("summarize: %s (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("summarize: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error   { return e.Err }
func (e *Error) Retryable() bool { return e.Kind.Retryable() }

func New(cfg Config, policy retry.Policy, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("summarize: base URL is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		policy: policy,
		log:    log.With(logx.String("comp", "summarize")),
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const systemPrompt = "You are a terse market analyst. Summarize the provided " +
	"quote data in a few short sentences: direction, notable moves, volume. " +
	"No advice, no hedging boilerplate."

func (c *Client) Summarize(ctx context.Context, prompt string) (string, error) {
	return retry.DoValue(ctx, c.policy, func(ctx context.Context) (string, error) {
		s, err := c.complete(ctx, prompt)
		if err != nil {
			metrics.SummariesTotal.WithLabelValues("error").Inc()
			return "", err
		}
		metrics.SummariesTotal.WithLabelValues("ok").Inc()
		return s, nil
	})
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", &Error{Kind: retry.KindConfig, Err: err}
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: retry.KindConfig, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &Error{Kind: retry.KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &Error{
			Kind:   retry.KindForStatus(resp.StatusCode),
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", strings.TrimSpace(string(snippet))),
		}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &Error{Kind: retry.KindDecode, Err: err}
	}
	if len(out.Choices) == 0 {
		return "", &Error{Kind: retry.KindDecode, Err: errors.New("empty choices")}
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", &Error{Kind: retry.KindDecode, Err: errors.New("empty completion")}
	}
	return text, nil
}
