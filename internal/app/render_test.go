package app

import (
	"strings"
	"testing"
	"time"

	"marketbrief/internal/fetch"
)

func samplePayload() *fetch.Payload {
	return &fetch.Payload{
		Symbol:   "AAPL",
		Currency: "USD",
		Quotes: []fetch.Quote{
			{Time: time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC), Open: 100, High: 103, Low: 99.5, Close: 101, Volume: 1_200_000},
			{Time: time.Date(2026, 8, 29, 9, 30, 0, 0, time.UTC), Open: 101, High: 105, Low: 100.8, Close: 104, Volume: 2_500_000},
		},
	}
}

func TestRenderFallback(t *testing.T) {
	t.Parallel()
	got := renderFallback([]*fetch.Payload{samplePayload()})
	for _, want := range []string{"AAPL", "close 104.00 USD", "+4.00%", "volume 2.5M"} {
		if !strings.Contains(got, want) {
			t.Errorf("fallback missing %q:\n%s", want, got)
		}
	}
}

func TestRenderFallbackEmptySeries(t *testing.T) {
	t.Parallel()
	got := renderFallback([]*fetch.Payload{{Symbol: "GOOG"}})
	if !strings.Contains(got, "GOOG: no data") {
		t.Errorf("got %q", got)
	}
}

func TestRenderPrompt(t *testing.T) {
	t.Parallel()
	got := renderPrompt([]*fetch.Payload{samplePayload()})
	if !strings.Contains(got, "AAPL (USD):") {
		t.Errorf("prompt missing header:\n%s", got)
	}
	if !strings.Contains(got, "2026-08-29 09:30 open=101.00") {
		t.Errorf("prompt missing bar line:\n%s", got)
	}
}

func TestRenderTitle(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	got := renderTitle([]string{"AAPL", "MSFT"}, at)
	if got != "Market brief 2026-08-30: AAPL, MSFT" {
		t.Fatalf("title = %q", got)
	}
}

func TestHumanCount(t *testing.T) {
	t.Parallel()
	tests := []struct {
		n    int64
		want string
	}{
		{950, "950"},
		{1_500, "1.5K"},
		{2_500_000, "2.5M"},
		{3_200_000_000, "3.2B"},
	}
	for _, tt := range tests {
		if got := humanCount(tt.n); got != tt.want {
			t.Errorf("humanCount(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
