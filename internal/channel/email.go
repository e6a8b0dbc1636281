package channel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"marketbrief/internal/chunk"
	"marketbrief/internal/retry"
	"marketbrief/pkg/logx"
)

// emailSender delivers via SMTP. Multi-part messages become one mail per
// part with the part number in the subject.
type emailSender struct {
	cfg Config
	log logx.Logger

	// sendMail is swapped in tests; production uses smtp.SendMail.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func newEmail(cfg Config, log logx.Logger) *emailSender {
	return &emailSender{cfg: cfg, log: log, sendMail: smtp.SendMail}
}

func (s *emailSender) Send(ctx context.Context, title string, part chunk.Chunk) error {
	subject := title
	if subject == "" {
		subject = "marketbrief notification"
	}
	if part.Total > 1 {
		subject = fmt.Sprintf("%s (%d/%d)", subject, part.Index+1, part.Total)
	}

	port := s.cfg.SMTPPort
	if port <= 0 {
		port = 587
	}
	addr := net.JoinHostPort(s.cfg.SMTPHost, fmt.Sprintf("%d", port))

	var auth smtp.Auth
	if s.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
	}

	msg := buildMail(s.cfg.From, s.cfg.To, subject, part.Payload)

	// net/smtp has no context support; run it bounded like the bot sender.
	done := make(chan error, 1)
	go func() { done <- s.sendMail(addr, auth, s.cfg.From, s.cfg.To, msg) }()

	var err error
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err = <-done:
	}
	if err != nil {
		return classifySMTP(err)
	}
	s.log.Debug("chunk delivered", logx.Int("part", part.Index+1), logx.Int("parts", part.Total))
	return nil
}

func buildMail(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// classifySMTP maps SMTP reply codes onto the shared taxonomy: 4yz replies
// are transient, 5yz permanent, with the auth codes called out.
func classifySMTP(err error) *SendError {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		switch {
		case tpErr.Code == 530 || tpErr.Code == 534 || tpErr.Code == 535:
			return &SendError{Kind: retry.KindAuth, Status: tpErr.Code, Msg: tpErr.Msg, Err: err}
		case tpErr.Code >= 400 && tpErr.Code < 500:
			return &SendError{Kind: retry.KindServer, Status: tpErr.Code, Msg: tpErr.Msg, Err: err}
		default:
			return &SendError{Kind: retry.KindRejected, Status: tpErr.Code, Msg: tpErr.Msg, Err: err}
		}
	}
	return netErr(err)
}
