package scheduler

import (
	"testing"
	"time"
)

func TestParseVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		raw      string
		kind     SpecKind
		duration time.Duration
		expr     string
	}{
		{name: "cron", raw: "*/5 * * * *", kind: SpecCron, expr: "*/5 * * * *"},
		{name: "weekday cron", raw: "0 9 * * 1-5", kind: SpecCron, expr: "0 9 * * 1-5"},
		{name: "descriptor", raw: "@hourly", kind: SpecCron, expr: "@hourly"},
		{name: "prefixed cron", raw: "cron:0 0 * * *", kind: SpecCron, expr: "0 0 * * *"},
		{name: "duration", raw: "10m", kind: SpecInterval, duration: 10 * time.Minute, expr: "@every 10m0s"},
		{name: "prefixed interval", raw: "interval:45s", kind: SpecInterval, duration: 45 * time.Second, expr: "@every 45s"},
		{name: "every prefix", raw: "every:2h30m", kind: SpecInterval, duration: 150 * time.Minute, expr: "@every 2h30m0s"},
		{name: "hhmm", raw: "01:30", kind: SpecInterval, duration: 90 * time.Minute, expr: "@every 1h30m0s"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.raw, err)
			}
			if got.Kind != tt.kind {
				t.Fatalf("Kind = %v, want %v", got.Kind, tt.kind)
			}
			if tt.kind == SpecInterval && got.Every != tt.duration {
				t.Fatalf("Every = %v, want %v", got.Every, tt.duration)
			}
			if got.CronExpr() != tt.expr {
				t.Fatalf("CronExpr = %q, want %q", got.CronExpr(), tt.expr)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "not-a-schedule", "-5m", "00:00", "cron:", "01:75"} {
		if _, err := Parse(raw); err == nil {
			t.Fatalf("Parse(%q): expected error", raw)
		}
	}
}
