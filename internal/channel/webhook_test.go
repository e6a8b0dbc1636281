package channel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketbrief/internal/chunk"
	"marketbrief/internal/retry"
	"marketbrief/pkg/logx"
)

func webhookConfig(kind Kind, url string) Config {
	return Config{Kind: kind, Name: "test", Enabled: true, MaxChunkSize: 4000, URL: url}
}

func TestChatWebhookSendsText(t *testing.T) {
	t.Parallel()
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, err := New(webhookConfig(KindChatWebhook, srv.URL), logx.Nop())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	err = s.Send(context.Background(), "Daily brief", chunk.Chunk{Index: 0, Total: 1, Payload: "body"})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if got["text"] != "*Daily brief*\nbody" {
		t.Fatalf("text = %q", got["text"])
	}
}

func TestChatWebhookTitleOnlyOnFirstChunk(t *testing.T) {
	t.Parallel()
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	s, _ := New(webhookConfig(KindChatWebhook, srv.URL), logx.Nop())
	if err := s.Send(context.Background(), "Title", chunk.Chunk{Index: 1, Total: 2, Payload: "tail"}); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if got["text"] != "tail" {
		t.Fatalf("text = %q, want bare chunk payload", got["text"])
	}
}

func TestWebhookEnvelope(t *testing.T) {
	t.Parallel()
	var got webhookEnvelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	s, _ := New(webhookConfig(KindWebhook, srv.URL), logx.Nop())
	if err := s.Send(context.Background(), "T", chunk.Chunk{Index: 1, Total: 3, Payload: "mid"}); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	want := webhookEnvelope{Title: "T", Body: "mid", Part: 2, Parts: 3}
	if got != want {
		t.Fatalf("envelope = %+v, want %+v", got, want)
	}
}

func TestWebhookStatusClassification(t *testing.T) {
	t.Parallel()
	tests := []struct {
		status    int
		kind      retry.Kind
		retryable bool
	}{
		{http.StatusInternalServerError, retry.KindServer, true},
		{http.StatusBadGateway, retry.KindServer, true},
		{http.StatusTooManyRequests, retry.KindRateLimited, true},
		{http.StatusUnauthorized, retry.KindAuth, false},
		{http.StatusForbidden, retry.KindAuth, false},
		{http.StatusBadRequest, retry.KindRejected, false},
		{http.StatusNotFound, retry.KindRejected, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			s, _ := New(webhookConfig(KindWebhook, srv.URL), logx.Nop())
			err := s.Send(context.Background(), "", chunk.Chunk{Index: 0, Total: 1, Payload: "x"})
			var se *SendError
			if !errors.As(err, &se) {
				t.Fatalf("error = %T (%v), want *SendError", err, err)
			}
			if se.Kind != tt.kind {
				t.Fatalf("Kind = %s, want %s", se.Kind, tt.kind)
			}
			if se.Status != tt.status {
				t.Fatalf("Status = %d, want %d", se.Status, tt.status)
			}
			if retry.Retryable(err) != tt.retryable {
				t.Fatalf("Retryable = %v, want %v", retry.Retryable(err), tt.retryable)
			}
		})
	}
}

func TestWebhookRetryAfterHint(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s, _ := New(webhookConfig(KindWebhook, srv.URL), logx.Nop())
	err := s.Send(context.Background(), "", chunk.Chunk{Index: 0, Total: 1, Payload: "x"})
	var se *SendError
	if !errors.As(err, &se) {
		t.Fatalf("error = %T, want *SendError", err)
	}
	if se.After != 7*time.Second {
		t.Fatalf("After = %v, want 7s", se.After)
	}
	var hint retry.AfterHint
	if !errors.As(err, &hint) {
		t.Fatal("SendError should implement retry.AfterHint")
	}
}

func TestWebhookConnectionRefusedIsRetryable(t *testing.T) {
	t.Parallel()
	// Port from a closed listener: connection refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	s, _ := New(webhookConfig(KindWebhook, url), logx.Nop())
	err := s.Send(context.Background(), "", chunk.Chunk{Index: 0, Total: 1, Payload: "x"})
	var se *SendError
	if !errors.As(err, &se) {
		t.Fatalf("error = %T (%v), want *SendError", err, err)
	}
	if se.Kind != retry.KindNetwork {
		t.Fatalf("Kind = %s, want network", se.Kind)
	}
	if !retry.Retryable(err) {
		t.Fatal("connection errors must be retryable")
	}
}
