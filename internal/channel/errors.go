package channel

import (
	"errors"
	"fmt"
	"time"

	"marketbrief/internal/retry"
)

// ErrInvalidConfig marks configuration problems caught before any network
// attempt (missing token, bad URL, non-positive chunk size).
var ErrInvalidConfig = errors.New("channel: invalid configuration")

// SendError is the uniform failure record produced by every sender variant.
type SendError struct {
	Kind   retry.Kind
	Status int    // HTTP/SMTP status when one exists, else 0
	Msg    string // short transport-specific detail
	Err    error  // underlying cause, if any

	// After carries an explicit retry delay hint (HTTP 429 Retry-After).
	After time.Duration
}

func (e *SendError) Error() string {
	switch {
	case e.Status != 0 && e.Msg != "":
		return fmt.Sprintf("send %s (status %d): %s", e.Kind, e.Status, e.Msg)
	case e.Status != 0:
		return fmt.Sprintf("send %s (status %d)", e.Kind, e.Status)
	case e.Msg != "":
		return fmt.Sprintf("send %s: %s", e.Kind, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("send %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("send %s", e.Kind)
	}
}

func (e *SendError) Unwrap() error { return e.Err }

// Retryable feeds the retry engine's uniform classification.
func (e *SendError) Retryable() bool { return e.Kind.Retryable() }

// RetryAfter implements retry.AfterHint for rate-limit responses.
func (e *SendError) RetryAfter() time.Duration { return e.After }

func netErr(err error) *SendError {
	return &SendError{Kind: retry.KindNetwork, Err: err}
}

func statusErr(status int, msg string) *SendError {
	return &SendError{Kind: retry.KindForStatus(status), Status: status, Msg: msg}
}
