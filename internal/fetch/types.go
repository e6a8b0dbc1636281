package fetch

import (
	"fmt"
	"time"

	"marketbrief/internal/retry"
)

// Request identifies one upstream quote lookup.
type Request struct {
	Symbol string
	// Range is the quote window, e.g. "1d" or "5d". Empty means upstream default.
	Range string
}

// Quote is a single OHLCV bar.
type Quote struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Payload is a fully decoded upstream response.
type Payload struct {
	Symbol   string  `json:"symbol"`
	Currency string  `json:"currency"`
	Quotes   []Quote `json:"quotes"`
}

// Last returns the most recent quote, or false when the series is empty.
func (p *Payload) Last() (Quote, bool) {
	if p == nil || len(p.Quotes) == 0 {
		return Quote{}, false
	}
	return p.Quotes[len(p.Quotes)-1], true
}

// Error is a classified fetch failure.
type Error struct {
	Kind   retry.Kind
	Symbol string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d): %v", e.Symbol, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.Symbol, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable feeds the retry engine's uniform classification.
func (e *Error) Retryable() bool { return e.Kind.Retryable() }
