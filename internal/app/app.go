// Package app wires the pipeline together: fetch quotes, summarize, dispatch
// to every configured channel, record the run. It owns daemon-mode concerns
// (scheduling, config reload, systemd readiness, metrics listener) so main
// stays a thin shell.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/google/uuid"

	"marketbrief/internal/config"
	"marketbrief/internal/dispatch"
	"marketbrief/internal/fetch"
	"marketbrief/internal/history"
	"marketbrief/internal/metrics"
	"marketbrief/internal/scheduler"
	"marketbrief/internal/summarize"
	"marketbrief/pkg/logx"
)

type App struct {
	cfgPath string

	mu  sync.Mutex
	cfg *config.Config

	logs *logx.Service
	log  logx.Logger

	fetcher    *fetch.Client
	summarizer summarize.Summarizer
	dispatcher *dispatch.Dispatcher
	store      *history.Store

	dispatchTimeout time.Duration
}

func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logs, log := logx.New(cfg.Logging.Logx())

	policy, err := cfg.Retry.Policy()
	if err != nil {
		return nil, err
	}

	fcfg, err := cfg.Fetch.Client()
	if err != nil {
		return nil, err
	}
	fetcher, err := fetch.New(fcfg, policy, log)
	if err != nil {
		return nil, err
	}

	var summarizer summarize.Summarizer
	if cfg.Summarize.Enabled {
		scfg, err := cfg.Summarize.Client()
		if err != nil {
			return nil, err
		}
		summarizer, err = summarize.New(scfg, policy, log)
		if err != nil {
			return nil, err
		}
	}

	dispatcher := dispatch.New(policy, log, dispatch.WithRatePerSec(cfg.Dispatch.RatePerSec))

	hcfg, err := cfg.History.Store()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(hcfg, log)
	if err != nil {
		return nil, err
	}

	timeout, err := cfg.Dispatch.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	return &App{
		cfgPath:         cfgPath,
		cfg:             cfg,
		logs:            logs,
		log:             log.With(logx.String("comp", "app")),
		fetcher:         fetcher,
		summarizer:      summarizer,
		dispatcher:      dispatcher,
		store:           store,
		dispatchTimeout: timeout,
	}, nil
}

func (a *App) Close() error {
	var errs []error
	if err := a.store.Close(); err != nil && !errors.Is(err, history.ErrDisabled) {
		errs = append(errs, err)
	}
	if err := a.logs.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) config() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// ErrAllChannelsFailed is returned by RunOnce when every attempted channel
// failed. Partial failure is not an error: the run delivered somewhere.
var ErrAllChannelsFailed = errors.New("all channels failed")

// RunOnce executes one full pipeline pass: fetch every symbol, summarize,
// dispatch, record. Symbols that fail to fetch are dropped from the brief
// with a warning; the run only fails outright when nothing could be fetched
// or every channel failed.
func (a *App) RunOnce(ctx context.Context, symbols []string) error {
	cfg := a.config()
	if len(symbols) == 0 {
		symbols = cfg.Fetch.Symbols
	}

	runID := uuid.NewString()
	log := a.log.With(logx.String("run", runID))
	start := time.Now()

	payloads, fetched := a.fetchAll(ctx, log, symbols, cfg.Fetch.Range)
	if len(payloads) == 0 {
		return fmt.Errorf("run %s: no symbols fetched", runID)
	}

	body := a.summarizeOrFallback(ctx, log, payloads)
	msg := dispatch.Message{
		Title: renderTitle(fetched, start),
		Body:  body,
	}

	dctx := ctx
	if a.dispatchTimeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, a.dispatchTimeout)
		defer cancel()
	}

	outcomes, err := a.dispatcher.Dispatch(dctx, msg, cfg.ChannelConfigs())
	if err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}

	ok, failed := tally(outcomes)
	for _, o := range outcomes {
		if o.Err != nil {
			log.Warn("channel failed",
				logx.String("channel", o.Channel),
				logx.Int("chunks_sent", o.ChunksSent),
				logx.Bool("timed_out", o.TimedOut()),
				logx.Err(o.Err))
		}
	}
	log.Info("run finished",
		logx.Int("channels_ok", ok),
		logx.Int("channels_failed", failed),
		logx.Duration("took", time.Since(start)))

	a.record(ctx, log, history.Entry{
		ID:      runID,
		At:      start,
		Symbol:  strings.Join(fetched, ","),
		Summary: body,
		OK:      ok,
		Failed:  failed,
	}, outcomes)

	metrics.RunsTotal.Inc()

	if ok == 0 && failed > 0 {
		return fmt.Errorf("run %s: %w", runID, ErrAllChannelsFailed)
	}
	return nil
}

func (a *App) fetchAll(ctx context.Context, log logx.Logger, symbols []string, rng string) ([]*fetch.Payload, []string) {
	payloads := make([]*fetch.Payload, 0, len(symbols))
	fetched := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		p, err := a.fetcher.Fetch(ctx, fetch.Request{Symbol: sym, Range: rng})
		if err != nil {
			metrics.FetchesTotal.WithLabelValues("error").Inc()
			log.Warn("fetch failed, symbol dropped from brief",
				logx.String("symbol", sym), logx.Err(err))
			continue
		}
		metrics.FetchesTotal.WithLabelValues("ok").Inc()
		payloads = append(payloads, p)
		fetched = append(fetched, sym)
	}
	return payloads, fetched
}

func (a *App) summarizeOrFallback(ctx context.Context, log logx.Logger, payloads []*fetch.Payload) string {
	if a.summarizer == nil {
		return renderFallback(payloads)
	}
	s, err := a.summarizer.Summarize(ctx, renderPrompt(payloads))
	if err != nil {
		// The brief still goes out; it just reads like a quote sheet.
		log.Warn("summarizer failed, using quote digest", logx.Err(err))
		return renderFallback(payloads)
	}
	return s
}

// outcomeRecord is the JSON shape history stores per channel.
type outcomeRecord struct {
	Channel    string `json:"channel"`
	Kind       string `json:"kind"`
	Attempted  bool   `json:"attempted"`
	Succeeded  bool   `json:"succeeded"`
	ChunksSent int    `json:"chunks_sent"`
	Error      string `json:"error,omitempty"`
}

func (a *App) record(ctx context.Context, log logx.Logger, e history.Entry, outcomes []dispatch.Outcome) {
	recs := make([]outcomeRecord, len(outcomes))
	for i, o := range outcomes {
		recs[i] = outcomeRecord{
			Channel:    o.Channel,
			Kind:       string(o.Kind),
			Attempted:  o.Attempted,
			Succeeded:  o.Succeeded,
			ChunksSent: o.ChunksSent,
		}
		if o.Err != nil {
			recs[i].Error = o.Err.Error()
		}
	}
	if b, err := json.Marshal(recs); err == nil {
		e.Outcomes = string(b)
	}
	if err := a.store.Record(ctx, e); err != nil && !errors.Is(err, history.ErrDisabled) {
		log.Warn("history record failed", logx.Err(err))
	}
}

func tally(outcomes []dispatch.Outcome) (ok, failed int) {
	for _, o := range outcomes {
		switch {
		case o.Succeeded:
			ok++
		case o.Attempted:
			failed++
		}
	}
	return ok, failed
}

// RunDaemon runs the scheduled pipeline until ctx is cancelled. It starts the
// metrics listener and config watcher, and reports readiness to systemd when
// running under it.
func (a *App) RunDaemon(ctx context.Context) error {
	cfg := a.config()
	if strings.TrimSpace(cfg.Schedule) == "" {
		return errors.New("schedule is required in daemon mode")
	}

	runner, err := scheduler.New(scheduler.Config{
		Schedule: cfg.Schedule,
		Timezone: cfg.Timezone,
		Timeout:  a.dispatchTimeout,
	}, a.log, func(ctx context.Context) error {
		return a.RunOnce(ctx, nil)
	})
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		go metrics.Serve(ctx, cfg.Metrics.Addr, a.log)
	}

	go func() {
		err := config.Watch(ctx, a.cfgPath, a.log, a.applyConfig)
		if err != nil && ctx.Err() == nil {
			a.log.Warn("config watcher stopped", logx.Err(err))
		}
	}()

	if err := runner.Start(ctx); err != nil {
		return err
	}
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Debug("sd_notify unavailable", logx.Err(err))
	}

	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	runner.Stop()
	return nil
}

// applyConfig handles a validated config reload. Only settings that can
// change without re-wiring take effect live; the rest need a restart.
func (a *App) applyConfig(next *config.Config) {
	a.mu.Lock()
	prev := a.cfg
	a.cfg = next
	a.mu.Unlock()

	a.logs.Apply(next.Logging.Logx())
	if prev.Schedule != next.Schedule || prev.Timezone != next.Timezone {
		a.log.Warn("schedule change requires restart to take effect")
	}
	if prev.Fetch.BaseURL != next.Fetch.BaseURL || prev.Summarize != next.Summarize {
		a.log.Warn("fetch/summarize endpoint change requires restart to take effect")
	}
	a.log.Info("configuration reloaded")
}
