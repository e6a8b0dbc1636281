package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"marketbrief/internal/retry"
	"marketbrief/pkg/logx"
)

// Config configures the fetch client.
type Config struct {
	BaseURL string
	APIKey  string
	// Timeout bounds a single attempt, not the whole retried fetch.
	Timeout time.Duration
}

type Client struct {
	cfg    Config
	policy retry.Policy
	http   *http.Client
	log    logx.Logger
}

func New(cfg Config, policy retry.Policy, log logx.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("fetch: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("fetch: invalid base url: %w", err)
	}
	cfg.BaseURL = base
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		cfg:    cfg,
		policy: policy,
		http:   &http.Client{Timeout: timeout},
		log:    log.With(logx.String("comp", "fetch")),
	}, nil
}

// Fetch retrieves and decodes the quote series for req under the retry policy.
func (c *Client) Fetch(ctx context.Context, req Request) (*Payload, error) {
	if strings.TrimSpace(req.Symbol) == "" {
		return nil, &Error{Kind: retry.KindConfig, Err: errors.New("symbol is required")}
	}
	start := time.Now()
	p, err := retry.DoValue(ctx, c.policy, func(ctx context.Context) (*Payload, error) {
		return c.rawFetch(ctx, req)
	})
	if err != nil {
		c.log.Warn("fetch failed", logx.String("symbol", req.Symbol), logx.Err(err), logx.Duration("took", time.Since(start)))
		return nil, err
	}
	c.log.Debug("fetch ok", logx.String("symbol", req.Symbol), logx.Int("quotes", len(p.Quotes)), logx.Duration("took", time.Since(start)))
	return p, nil
}

// rawFetch performs exactly one network attempt.
func (c *Client) rawFetch(ctx context.Context, req Request) (*Payload, error) {
	q := url.Values{}
	q.Set("symbol", req.Symbol)
	if req.Range != "" {
		q.Set("range", req.Range)
	}
	u := c.cfg.BaseURL + "/v1/quotes?" + q.Encode()

	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &Error{Kind: retry.KindConfig, Symbol: req.Symbol, Err: err}
	}
	hreq.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		hreq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(hreq)
	if err != nil {
		// Per-attempt timeouts surface as url.Error; keep them retryable
		// unless the caller's own context expired.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &Error{Kind: retry.KindNetwork, Symbol: req.Symbol, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, &Error{
			Kind:   retry.KindForStatus(resp.StatusCode),
			Symbol: req.Symbol,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", strings.TrimSpace(string(detail))),
		}
	}

	var p Payload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, &Error{Kind: retry.KindDecode, Symbol: req.Symbol, Err: err}
	}
	if p.Symbol == "" {
		p.Symbol = req.Symbol
	}
	return &p, nil
}
