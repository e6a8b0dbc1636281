package dispatch

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"marketbrief/internal/channel"
	"marketbrief/internal/chunk"
	"marketbrief/internal/metrics"
	"marketbrief/internal/retry"
	"marketbrief/pkg/logx"
)

// SenderFactory builds the sender for one channel. Swapped in tests.
type SenderFactory func(cfg channel.Config, log logx.Logger) (channel.Sender, error)

// Dispatcher delivers messages to all configured channels. It is stateless
// between calls; concurrent Dispatch calls with different messages do not
// interfere.
type Dispatcher struct {
	policy     retry.Policy
	ratePerSec int
	log        logx.Logger
	newSender  SenderFactory
}

type Option func(*Dispatcher)

// WithSenderFactory replaces the default channel.New factory.
func WithSenderFactory(f SenderFactory) Option {
	return func(d *Dispatcher) { d.newSender = f }
}

// WithRatePerSec throttles chunk sends per channel. Zero disables throttling.
func WithRatePerSec(n int) Option {
	return func(d *Dispatcher) { d.ratePerSec = n }
}

func New(policy retry.Policy, log logx.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		policy:    policy,
		log:       log.With(logx.String("comp", "dispatch")),
		newSender: channel.New,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

type result struct {
	idx int
	out Outcome
}

// Dispatch delivers msg to every channel in channels and returns one Outcome
// per channel, in input order.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message, channels []channel.Config) ([]Outcome, error) {
	if len(channels) == 0 {
		return nil, ErrNoChannels
	}

	outcomes := make([]Outcome, len(channels))
	got := make([]bool, len(channels))
	res := make(chan result, len(channels))

	launched := 0
	for i, cfg := range channels {
		outcomes[i] = Outcome{Channel: cfg.DisplayName(), Kind: cfg.Kind}
		if !cfg.Enabled {
			got[i] = true
			d.log.Debug("channel disabled, skipping", logx.String("channel", cfg.DisplayName()))
			metrics.DispatchOutcomes.WithLabelValues(string(cfg.Kind), "skipped").Inc()
			continue
		}
		launched++
		go func(i int, cfg channel.Config) {
			res <- result{idx: i, out: d.deliver(ctx, msg, cfg)}
		}(i, cfg)
	}

	for pending := launched; pending > 0; {
		select {
		case r := <-res:
			outcomes[r.idx] = r.out
			got[r.idx] = true
			pending--
		case <-ctx.Done():
			// Abandon what is still in flight; keep finished outcomes.
			for i := range outcomes {
				if got[i] {
					continue
				}
				outcomes[i].Attempted = true
				outcomes[i].Err = &channel.SendError{Kind: retry.KindTimeout, Msg: "dispatch deadline exceeded", Err: ctx.Err()}
				metrics.DispatchOutcomes.WithLabelValues(string(outcomes[i].Kind), "timeout").Inc()
				d.log.Warn("channel abandoned at deadline", logx.String("channel", outcomes[i].Channel))
			}
			pending = 0
		}
	}
	return outcomes, nil
}

// deliver handles one channel end to end: validate, chunk, send in order.
func (d *Dispatcher) deliver(ctx context.Context, msg Message, cfg channel.Config) Outcome {
	out := Outcome{Channel: cfg.DisplayName(), Kind: cfg.Kind, Attempted: true}
	log := d.log.With(logx.String("channel", cfg.DisplayName()))
	start := time.Now()

	sender, err := d.newSender(cfg, d.log)
	if err != nil {
		out.Err = err
		metrics.DispatchOutcomes.WithLabelValues(string(cfg.Kind), "config_error").Inc()
		log.Warn("channel misconfigured", logx.Err(err))
		return out
	}

	parts, err := chunk.Split(msg.Body, cfg.MaxChunkSize)
	if err != nil {
		out.Err = err
		metrics.DispatchOutcomes.WithLabelValues(string(cfg.Kind), "config_error").Inc()
		log.Warn("chunking failed", logx.Err(err))
		return out
	}

	var lim *rate.Limiter
	if d.ratePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(d.ratePerSec), d.ratePerSec)
	}

	policy := d.policy
	policy.OnBackoff = func(attempt int, delay time.Duration, err error) {
		metrics.RetriesTotal.WithLabelValues("send").Inc()
		log.Debug("send retry scheduled",
			logx.Int("attempt", attempt+1),
			logx.Duration("delay", delay),
			logx.Err(err))
	}

	for _, part := range parts {
		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				out.Err = timeoutErr(err)
				metrics.DispatchOutcomes.WithLabelValues(string(cfg.Kind), "timeout").Inc()
				return out
			}
		}

		part := part
		err := retry.Do(ctx, policy, func(ctx context.Context) error {
			return sender.Send(ctx, msg.Title, part)
		})
		if err != nil {
			// Remaining chunks would arrive out of sequence; stop here and
			// report the partial delivery.
			out.Err = normalizeErr(err)
			metrics.SendsTotal.WithLabelValues(string(cfg.Kind), "error").Inc()
			metrics.DispatchOutcomes.WithLabelValues(string(cfg.Kind), "failed").Inc()
			log.Warn("channel delivery failed",
				logx.Int("chunks_sent", out.ChunksSent),
				logx.Int("chunks_total", len(parts)),
				logx.Err(err))
			return out
		}
		out.ChunksSent++
		metrics.SendsTotal.WithLabelValues(string(cfg.Kind), "ok").Inc()
	}

	out.Succeeded = true
	metrics.DispatchOutcomes.WithLabelValues(string(cfg.Kind), "ok").Inc()
	log.Info("channel delivery ok",
		logx.Int("chunks", len(parts)),
		logx.Duration("took", time.Since(start)))
	return out
}

// normalizeErr folds context expiry into the shared timeout kind so callers
// see one taxonomy.
func normalizeErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return timeoutErr(err)
	}
	return err
}

func timeoutErr(cause error) error {
	return &channel.SendError{Kind: retry.KindTimeout, Msg: "dispatch deadline exceeded", Err: cause}
}
