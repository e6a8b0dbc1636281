package dispatch

import (
	"errors"

	"marketbrief/internal/channel"
	"marketbrief/internal/retry"
)

// ErrNoChannels fails the whole dispatch call: delivery is mandatory and
// there is nowhere to deliver to.
var ErrNoChannels = errors.New("dispatch: no channels configured")

// Message is the rendered notification. It is immutable; chunk sequences
// derived from it are read-only views.
type Message struct {
	Title string
	Body  string
}

// Outcome is the per-channel delivery record. Exactly one Outcome is produced
// per configured channel per dispatch call, positionally matching the input
// channel order.
type Outcome struct {
	Channel string
	Kind    channel.Kind

	// Attempted is false when the channel was skipped (disabled); that is
	// not an error.
	Attempted bool
	Succeeded bool

	// ChunksSent counts chunks delivered before the first failure; equal to
	// the total chunk count on success.
	ChunksSent int

	// Err is the last error for a failed channel, nil on success or skip.
	Err error
}

// TimedOut reports whether the channel failed because the dispatch deadline
// expired while it was in flight.
func (o Outcome) TimedOut() bool {
	var se *channel.SendError
	if errors.As(o.Err, &se) {
		return se.Kind == retry.KindTimeout
	}
	return false
}
