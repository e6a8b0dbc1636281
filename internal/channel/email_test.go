package channel

import (
	"context"
	"errors"
	"net/smtp"
	"net/textproto"
	"strings"
	"testing"

	"marketbrief/internal/chunk"
	"marketbrief/internal/retry"
	"marketbrief/pkg/logx"
)

func emailConfig() Config {
	return Config{
		Kind:         KindEmail,
		Name:         "mail",
		Enabled:      true,
		MaxChunkSize: 100000,
		SMTPHost:     "mail.example.com",
		SMTPPort:     2525,
		From:         "bot@example.com",
		To:           []string{"ops@example.com", "oncall@example.com"},
	}
}

func TestEmailBuildsRFC822Message(t *testing.T) {
	t.Parallel()
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	s := newEmail(emailConfig(), logx.Nop())
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := s.Send(context.Background(), "Market brief: AAPL", chunk.Chunk{Index: 1, Total: 3, Payload: "part two"})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if gotAddr != "mail.example.com:2525" {
		t.Fatalf("addr = %q", gotAddr)
	}
	if gotFrom != "bot@example.com" || len(gotTo) != 2 {
		t.Fatalf("from/to = %q %v", gotFrom, gotTo)
	}
	text := string(gotMsg)
	if !strings.Contains(text, "Subject: Market brief: AAPL (2/3)\r\n") {
		t.Fatalf("missing part-numbered subject:\n%s", text)
	}
	if !strings.Contains(text, "\r\n\r\npart two\r\n") {
		t.Fatalf("missing body:\n%s", text)
	}
}

func TestEmailClassification(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		kind retry.Kind
	}{
		{"auth failure", &textproto.Error{Code: 535, Msg: "authentication credentials invalid"}, retry.KindAuth},
		{"transient 4yz", &textproto.Error{Code: 451, Msg: "try again later"}, retry.KindServer},
		{"permanent 5yz", &textproto.Error{Code: 550, Msg: "mailbox unavailable"}, retry.KindRejected},
		{"dial failure", errors.New("dial tcp: connection refused"), retry.KindNetwork},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newEmail(emailConfig(), logx.Nop())
			s.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return tt.err }
			err := s.Send(context.Background(), "t", chunk.Chunk{Index: 0, Total: 1, Payload: "x"})
			var se *SendError
			if !errors.As(err, &se) {
				t.Fatalf("error = %T, want *SendError", err)
			}
			if se.Kind != tt.kind {
				t.Fatalf("Kind = %s, want %s", se.Kind, tt.kind)
			}
		})
	}
}

