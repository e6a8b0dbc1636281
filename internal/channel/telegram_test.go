package channel

import (
	"errors"
	"testing"

	tele "gopkg.in/telebot.v4"

	"marketbrief/internal/retry"
)

func TestClassifyTelebotAPIError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		code int
		kind retry.Kind
	}{
		{"unauthorized", 401, retry.KindAuth},
		{"forbidden", 403, retry.KindAuth},
		{"bad request", 400, retry.KindRejected},
		{"server error", 502, retry.KindServer},
	}
	for _, tt := range tests {
		se := classifyTelebot(&tele.Error{Code: tt.code, Description: tt.name})
		if se.Kind != tt.kind {
			t.Fatalf("%s: Kind = %s, want %s", tt.name, se.Kind, tt.kind)
		}
		if se.Status != tt.code {
			t.Fatalf("%s: Status = %d, want %d", tt.name, se.Status, tt.code)
		}
	}
}

func TestClassifyTelebotTransportError(t *testing.T) {
	t.Parallel()
	se := classifyTelebot(errors.New("post https://api.telegram.org: connection reset"))
	if se.Kind != retry.KindNetwork {
		t.Fatalf("Kind = %s, want network", se.Kind)
	}
	if !retry.Retryable(se) {
		t.Fatal("transport errors must be retryable")
	}
}
