// Package config loads and validates the marketbrief configuration file.
//
// The file is YAML. All durations are Go duration strings (e.g. "500ms",
// "10s", "1m"). The loaded Config is read-only after Load returns; components
// receive the values they need at construction time.
package config

import (
	"fmt"
	"strings"
	"time"

	"marketbrief/internal/channel"
	"marketbrief/internal/fetch"
	"marketbrief/internal/history"
	"marketbrief/internal/retry"
	"marketbrief/internal/summarize"
	"marketbrief/pkg/logx"
)

type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Summarize SummarizeConfig `yaml:"summarize"`
	Retry     RetryConfig     `yaml:"retry"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	History   HistoryConfig   `yaml:"history"`
	Metrics   MetricsConfig   `yaml:"metrics"`

	// Schedule triggers periodic runs in daemon mode. Either a cron
	// expression ("30 8 * * *", "@hourly") or an interval ("15m").
	Schedule string `yaml:"schedule"`
	// Timezone is the IANA zone cron schedules are evaluated in.
	// Empty means the host's local zone.
	Timezone string `yaml:"timezone"`

	Channels []ChannelConfig `yaml:"channels"`
}

type LoggingConfig struct {
	Level   string `yaml:"level"`
	Console *bool  `yaml:"console"` // pointer: omitted defaults to true
	File    struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"file"`
}

func (l LoggingConfig) Logx() logx.Config {
	console := true
	if l.Console != nil {
		console = *l.Console
	}
	cfg := logx.Config{Level: l.Level, Console: console}
	cfg.File.Enabled = l.File.Enabled
	cfg.File.Path = l.File.Path
	return cfg
}

type FetchConfig struct {
	BaseURL string   `yaml:"base_url"`
	APIKey  string   `yaml:"api_key"`
	Symbols []string `yaml:"symbols"`
	Range   string   `yaml:"range"`
	Timeout string   `yaml:"timeout"`
}

func (f FetchConfig) Client() (fetch.Config, error) {
	timeout, err := ParseDurationField("fetch.timeout", f.Timeout)
	if err != nil {
		return fetch.Config{}, err
	}
	return fetch.Config{BaseURL: f.BaseURL, APIKey: f.APIKey, Timeout: timeout}, nil
}

type SummarizeConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

func (s SummarizeConfig) Client() (summarize.Config, error) {
	timeout, err := ParseDurationField("summarize.timeout", s.Timeout)
	if err != nil {
		return summarize.Config{}, err
	}
	return summarize.Config{
		BaseURL: s.BaseURL,
		APIKey:  s.APIKey,
		Model:   s.Model,
		Timeout: timeout,
	}, nil
}

// RetryConfig is shared by the fetch client and the dispatcher.
type RetryConfig struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialBackoff    string  `yaml:"initial_backoff"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	MaxBackoff        string  `yaml:"max_backoff"`
	JitterFraction    float64 `yaml:"jitter_fraction"`
}

func (r RetryConfig) Policy() (retry.Policy, error) {
	initial, err := ParseDurationField("retry.initial_backoff", r.InitialBackoff)
	if err != nil {
		return retry.Policy{}, err
	}
	maxB, err := ParseDurationField("retry.max_backoff", r.MaxBackoff)
	if err != nil {
		return retry.Policy{}, err
	}
	return retry.Policy{
		MaxAttempts:    r.MaxAttempts,
		InitialBackoff: initial,
		Multiplier:     r.BackoffMultiplier,
		MaxBackoff:     maxB,
		JitterFraction: r.JitterFraction,
	}, nil
}

type DispatchConfig struct {
	// RatePerSec throttles chunk sends per channel. 0 disables throttling.
	RatePerSec int `yaml:"rate_per_sec"`
	// Timeout bounds one whole dispatch call. "0s" disables.
	Timeout string `yaml:"timeout"`
}

func (d DispatchConfig) TimeoutDuration() (time.Duration, error) {
	return ParseDurationField("dispatch.timeout", d.Timeout)
}

type HistoryConfig struct {
	// Driver is "sqlite" or empty/"none" to disable persistence.
	Driver      string `yaml:"driver"`
	Path        string `yaml:"path"`
	BusyTimeout string `yaml:"busy_timeout"`
}

func (h HistoryConfig) Store() (history.Config, error) {
	busy, err := ParseDurationField("history.busy_timeout", h.BusyTimeout)
	if err != nil {
		return history.Config{}, err
	}
	return history.Config{Driver: h.Driver, Path: h.Path, BusyTimeout: busy}, nil
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type ChannelConfig struct {
	Kind         string `yaml:"kind"`
	Name         string `yaml:"name"`
	Enabled      *bool  `yaml:"enabled"` // pointer: omitted defaults to true
	MaxChunkSize int    `yaml:"max_chunk_size"`

	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`

	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	SMTPUser string   `yaml:"smtp_user"`
	SMTPPass string   `yaml:"smtp_pass"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// Channel converts the YAML shape into the delivery config, applying the
// per-kind default chunk size when omitted.
func (c ChannelConfig) Channel() channel.Config {
	enabled := true
	if c.Enabled != nil {
		enabled = *c.Enabled
	}
	kind := channel.Kind(strings.TrimSpace(c.Kind))
	size := c.MaxChunkSize
	if size == 0 {
		size = defaultChunkSize(kind)
	}
	return channel.Config{
		Kind:         kind,
		Name:         c.Name,
		Enabled:      enabled,
		MaxChunkSize: size,
		URL:          c.URL,
		Token:        c.Token,
		ChatID:       c.ChatID,
		SMTPHost:     c.SMTPHost,
		SMTPPort:     c.SMTPPort,
		SMTPUser:     c.SMTPUser,
		SMTPPass:     c.SMTPPass,
		From:         c.From,
		To:           append([]string(nil), c.To...),
	}
}

func defaultChunkSize(kind channel.Kind) int {
	switch kind {
	case channel.KindBot:
		return 4096 // Telegram message limit
	case channel.KindChatWebhook:
		return 4000
	case channel.KindEmail:
		return 100_000
	case channel.KindWebhook:
		return 65_536
	default:
		return 0
	}
}

// Channels returns the converted channel list.
func (c *Config) ChannelConfigs() []channel.Config {
	out := make([]channel.Config, len(c.Channels))
	for i, cc := range c.Channels {
		out[i] = cc.Channel()
	}
	return out
}

// Validate checks everything that can be checked without the network.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Fetch.BaseURL) == "" {
		return fmt.Errorf("fetch.base_url is required")
	}
	if len(c.Fetch.Symbols) == 0 {
		return fmt.Errorf("fetch.symbols must name at least one symbol")
	}
	for i, s := range c.Fetch.Symbols {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("fetch.symbols[%d] is empty", i)
		}
	}
	if _, err := c.Fetch.Client(); err != nil {
		return err
	}
	if c.Summarize.Enabled {
		if strings.TrimSpace(c.Summarize.BaseURL) == "" {
			return fmt.Errorf("summarize.base_url is required when summarize is enabled")
		}
		if _, err := ParseDurationField("summarize.timeout", c.Summarize.Timeout); err != nil {
			return err
		}
	}
	if _, err := c.Retry.Policy(); err != nil {
		return err
	}
	if _, err := c.Dispatch.TimeoutDuration(); err != nil {
		return err
	}
	if _, err := ParseDurationField("history.busy_timeout", c.History.BusyTimeout); err != nil {
		return err
	}
	if len(c.Channels) == 0 {
		return fmt.Errorf("channels must list at least one destination")
	}
	for i, cc := range c.Channels {
		if err := cc.Channel().Validate(); err != nil {
			return fmt.Errorf("channels[%d]: %w", i, err)
		}
	}
	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.Addr) == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}
	return nil
}
