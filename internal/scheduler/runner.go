package scheduler

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"marketbrief/pkg/logx"
)

type Config struct {
	Schedule string
	Timezone string // IANA TZ, e.g. "Asia/Jakarta"; empty means local
	Timeout  time.Duration
}

// Runner drives a single job on a parsed schedule. Overlapping runs are
// skipped: if the previous run is still going when the schedule fires,
// the tick is dropped with a warning.
type Runner struct {
	mu sync.Mutex

	log  logx.Logger
	cfg  Config
	spec Spec
	job  func(ctx context.Context) error

	c       *cron.Cron
	running bool
}

func New(cfg Config, log logx.Logger, job func(ctx context.Context) error) (*Runner, error) {
	spec, err := Parse(cfg.Schedule)
	if err != nil {
		return nil, err
	}
	return &Runner{
		log:  log.With(logx.String("comp", "scheduler")),
		cfg:  cfg,
		spec: spec,
		job:  job,
	}, nil
}

// Start registers the job and starts the cron loop. Returns immediately.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.c != nil {
		return nil
	}

	loc := r.loadLocation()
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser), cron.WithLocation(loc))

	if _, err := c.AddFunc(r.spec.CronExpr(), func() { r.fire(ctx) }); err != nil {
		return err
	}

	r.c = c
	c.Start()
	r.log.Info("scheduler started",
		logx.String("schedule", r.spec.CronExpr()),
		logx.String("tz", loc.String()))
	return nil
}

// Stop halts the cron loop and waits for an in-flight run to return.
func (r *Runner) Stop() {
	r.mu.Lock()
	c := r.c
	r.c = nil
	r.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	r.log.Info("scheduler stopped")
}

func (r *Runner) fire(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		r.log.Warn("previous run still in progress, skipping tick")
		return
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	runCtx := ctx
	var cancel context.CancelFunc
	if r.cfg.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	if err := r.job(runCtx); err != nil {
		r.log.Warn("run failed", logx.Err(err), logx.Duration("took", time.Since(start)))
		return
	}
	r.log.Info("run complete", logx.Duration("took", time.Since(start)))
}

func (r *Runner) loadLocation() *time.Location {
	tz := strings.TrimSpace(r.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		r.log.Warn("invalid timezone, falling back to local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
