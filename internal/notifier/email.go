package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/leadwatch/leadwatch/internal/domain"
)

const mimeBoundary = "leadwatch-boundary"

// EmailSender delivers lead notifications over plain SMTP, grounded on
// _examples/Livepeer-FrameWorks-monorepo/pkg/email/sender.go's
// auth-or-direct-dial SendMail shape.
type EmailSender struct {
	host, port string
	from       string
	auth       smtp.Auth
}

func NewEmailSender(host string, port int, user, pass, from string) *EmailSender {
	var auth smtp.Auth
	if user != "" && pass != "" {
		auth = smtp.PlainAuth("", user, pass, host)
	}
	return &EmailSender{host: host, port: fmt.Sprintf("%d", port), from: from, auth: auth}
}

func (s *EmailSender) SendNewLead(ctx context.Context, user *domain.User, ev NewLeadEvent) error {
	subject := fmt.Sprintf("New lead: %s", ev.RuleName)
	plain := fmt.Sprintf(
		"Hi %s,\n\nA new lead matching rule %q was found in %s.\n\nConfidence: %d%%\nReasoning: %s\n\nMessage preview:\n%s\n",
		user.FullName, ev.RuleName, orUnknown(ev.ChannelTitle), int(ev.Lead.Score*100), orDefault(ev.Lead.Reasoning, "No reasoning provided"), truncate(ev.MessagePreview, 500))
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>A new lead matching rule <b>%s</b> was found in %s.</p><p>Confidence: %d%%<br>Reasoning: %s</p><p>Message preview:<br>%s</p>",
		user.FullName, ev.RuleName, orUnknown(ev.ChannelTitle), int(ev.Lead.Score*100), orDefault(ev.Lead.Reasoning, "No reasoning provided"), truncate(ev.MessagePreview, 500))
	return s.send(ctx, user.Email, subject, plain, html)
}

func (s *EmailSender) SendStatusChange(ctx context.Context, user *domain.User, ev StatusChangeEvent) error {
	subject := fmt.Sprintf("Lead status changed: %s", ev.RuleName)
	plain := fmt.Sprintf("Hi %s,\n\nThe status of lead %q changed from %s to %s.\n", user.FullName, ev.RuleName, ev.OldStatus, ev.NewStatus)
	html := fmt.Sprintf("<p>Hi %s,</p><p>The status of lead <b>%s</b> changed from %s to %s.</p>", user.FullName, ev.RuleName, ev.OldStatus, ev.NewStatus)
	return s.send(ctx, user.Email, subject, plain, html)
}

func (s *EmailSender) SendAssignment(ctx context.Context, user *domain.User, ev AssignmentEvent) error {
	subject := fmt.Sprintf("Lead assigned to you: %s", ev.RuleName)
	plain := fmt.Sprintf("Hi %s,\n\nA lead from %s matching rule %q has been assigned to you.\n", user.FullName, orUnknown(ev.ChannelTitle), ev.RuleName)
	html := fmt.Sprintf("<p>Hi %s,</p><p>A lead from %s matching rule <b>%s</b> has been assigned to you.</p>", user.FullName, orUnknown(ev.ChannelTitle), ev.RuleName)
	return s.send(ctx, user.Email, subject, plain, html)
}

// send submits a multipart/alternative message (plain + HTML parts, per the
// worker's SMTP contract) over STARTTLS when the server offers it.
func (s *EmailSender) send(ctx context.Context, to, subject, plain, html string) error {
	_ = ctx
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	raw := s.buildMessage(to, subject, plain, html)

	if s.auth != nil {
		return smtp.SendMail(addr, s.auth, s.from, []string{to}, raw)
	}

	c, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("notifier: dial smtp: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			return fmt.Errorf("notifier: starttls: %w", err)
		}
	}

	if err := c.Mail(s.from); err != nil {
		return fmt.Errorf("notifier: mail from: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("notifier: rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("notifier: data: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("notifier: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("notifier: close: %w", err)
	}
	return c.Quit()
}

func (s *EmailSender) buildMessage(to, subject, plain, html string) []byte {
	msg := []string{
		fmt.Sprintf("From: %s", s.from),
		fmt.Sprintf("To: %s", sanitizeHeader(to)),
		fmt.Sprintf("Subject: %s", sanitizeHeader(subject)),
		"MIME-Version: 1.0",
		fmt.Sprintf("Content-Type: multipart/alternative; boundary=%s", mimeBoundary),
		"",
		"--" + mimeBoundary,
		"Content-Type: text/plain; charset=UTF-8",
		"",
		plain,
		"",
		"--" + mimeBoundary,
		"Content-Type: text/html; charset=UTF-8",
		"",
		html,
		"",
		"--" + mimeBoundary + "--",
	}
	return []byte(strings.Join(msg, "\r\n"))
}

func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return s
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
