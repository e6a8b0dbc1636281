// Package chunk splits a rendered message into ordered, size-bounded parts.
//
// Channels impose protocol limits on message size (Telegram ~4096 bytes,
// webhooks whatever the receiver tolerates). Split is a pure function: the
// same payload and limit always produce the same parts, and concatenating the
// parts in index order reproduces the payload byte-for-byte.
package chunk

import (
	"errors"
	"strings"
)

// ErrInvalidChunkSize is returned when the configured max chunk size is not
// positive. It is raised before any delivery attempt.
var ErrInvalidChunkSize = errors.New("chunk: max size must be > 0")

// Chunk is one ordered fragment of a message. Total is the same for every
// fragment of one split.
type Chunk struct {
	Index   int
	Total   int
	Payload string
}

// Split cuts payload into parts of at most maxSize bytes.
//
// A payload that fits yields a single part (0,1). Oversized payloads are
// filled greedily; when a newline exists in the last tenth of the budget the
// cut moves back to just after it so lines survive intact where possible.
// Without one, the cut is a hard byte cut.
func Split(payload string, maxSize int) ([]Chunk, error) {
	if maxSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if len(payload) <= maxSize {
		return []Chunk{{Index: 0, Total: 1, Payload: payload}}, nil
	}

	var parts []string
	rest := payload
	for len(rest) > maxSize {
		cut := maxSize
		if window := maxSize / 10; window > 0 {
			if i := strings.LastIndexByte(rest[maxSize-window:maxSize], '\n'); i >= 0 {
				// Keep the newline with the leading part so concatenation
				// reproduces the original.
				cut = maxSize - window + i + 1
			}
		}
		parts = append(parts, rest[:cut])
		rest = rest[cut:]
	}
	if len(rest) > 0 {
		parts = append(parts, rest)
	}

	out := make([]Chunk, len(parts))
	for i, p := range parts {
		out[i] = Chunk{Index: i, Total: len(parts), Payload: p}
	}
	return out, nil
}
