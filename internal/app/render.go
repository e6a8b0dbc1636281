package app

import (
	"fmt"
	"strings"
	"time"

	"marketbrief/internal/fetch"
)

// renderPrompt flattens the fetched series into the text the summarizer sees.
// One line per bar keeps the prompt small and unambiguous.
func renderPrompt(payloads []*fetch.Payload) string {
	var b strings.Builder
	for _, p := range payloads {
		fmt.Fprintf(&b, "%s (%s):\n", p.Symbol, currencyOr(p.Currency, "USD"))
		for _, q := range p.Quotes {
			fmt.Fprintf(&b, "  %s open=%.2f high=%.2f low=%.2f close=%.2f vol=%d\n",
				q.Time.Format("2006-01-02 15:04"), q.Open, q.High, q.Low, q.Close, q.Volume)
		}
	}
	return b.String()
}

// renderFallback is the body used when the summarizer is disabled or fails:
// a plain last-quote digest per symbol, one paragraph each.
func renderFallback(payloads []*fetch.Payload) string {
	var b strings.Builder
	for i, p := range payloads {
		if i > 0 {
			b.WriteString("\n")
		}
		last, ok := p.Last()
		if !ok {
			fmt.Fprintf(&b, "%s: no data\n", p.Symbol)
			continue
		}
		line := fmt.Sprintf("%s: close %.2f %s", p.Symbol, last.Close, currencyOr(p.Currency, "USD"))
		if len(p.Quotes) > 1 {
			first := p.Quotes[0]
			if first.Open > 0 {
				pct := (last.Close - first.Open) / first.Open * 100
				line += fmt.Sprintf(" (%+.2f%%)", pct)
			}
		}
		line += fmt.Sprintf(", volume %s", humanCount(last.Volume))
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func renderTitle(symbols []string, at time.Time) string {
	return fmt.Sprintf("Market brief %s: %s", at.Format("2006-01-02"), strings.Join(symbols, ", "))
}

func currencyOr(c, def string) string {
	if strings.TrimSpace(c) == "" {
		return def
	}
	return c
}

func humanCount(n int64) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
