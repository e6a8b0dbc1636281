package channel

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	valid := map[string]Config{
		"chat-webhook": {Kind: KindChatWebhook, MaxChunkSize: 4000, URL: "https://hooks.example.com/T/B"},
		"webhook":      {Kind: KindWebhook, MaxChunkSize: 65536, URL: "http://127.0.0.1:9000/notify"},
		"bot":          {Kind: KindBot, MaxChunkSize: 4096, Token: "123:abc", ChatID: -100200300},
		"email":        {Kind: KindEmail, MaxChunkSize: 100000, SMTPHost: "mail.example.com", From: "bot@example.com", To: []string{"ops@example.com"}},
	}
	for name, cfg := range valid {
		if err := cfg.Validate(); err != nil {
			t.Fatalf("%s: Validate() = %v, want nil", name, err)
		}
	}

	invalid := map[string]Config{
		"zero chunk size":     {Kind: KindWebhook, MaxChunkSize: 0, URL: "http://x"},
		"negative chunk size": {Kind: KindBot, MaxChunkSize: -1, Token: "t", ChatID: 1},
		"missing url":         {Kind: KindChatWebhook, MaxChunkSize: 100},
		"bad scheme":          {Kind: KindWebhook, MaxChunkSize: 100, URL: "ftp://x"},
		"missing token":       {Kind: KindBot, MaxChunkSize: 100, ChatID: 1},
		"missing chat id":     {Kind: KindBot, MaxChunkSize: 100, Token: "t"},
		"missing smtp host":   {Kind: KindEmail, MaxChunkSize: 100, From: "a@b", To: []string{"c@d"}},
		"missing from":        {Kind: KindEmail, MaxChunkSize: 100, SMTPHost: "h", To: []string{"c@d"}},
		"no recipients":       {Kind: KindEmail, MaxChunkSize: 100, SMTPHost: "h", From: "a@b"},
		"unknown kind":        {Kind: Kind("pager"), MaxChunkSize: 100},
	}
	for name, cfg := range invalid {
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: Validate() = %v, want ErrInvalidConfig", name, err)
		}
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()
	if got := (Config{Kind: KindBot, Name: "ops"}).DisplayName(); got != "ops" {
		t.Fatalf("DisplayName = %q, want ops", got)
	}
	if got := (Config{Kind: KindBot}).DisplayName(); got != "bot" {
		t.Fatalf("DisplayName = %q, want bot", got)
	}
}
