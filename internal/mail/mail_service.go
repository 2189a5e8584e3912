package mail

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"time"

	"titlehub/internal/config"

	"github.com/jordan-wright/email"
)

// Sender delivers outbound mail. Implementations must be safe for concurrent
// use; the auth flow dispatches from request goroutines.
type Sender interface {
	SendConfirmationCode(to, username, code string) error
}

type MailService struct {
	cfg *config.Config
}

func NewMailService(cfg *config.Config) *MailService {
	return &MailService{cfg: cfg}
}

const confirmationTemplate = `
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
	<h2 style="color: #333;">Your confirmation code</h2>
	<p style="font-size: 16px; line-height: 1.5;">Hello {{.Username}},</p>
	<p style="font-size: 16px; line-height: 1.5;">Use this code to finish signing in:</p>
	<div style="background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px;">
		<p style="font-size: 24px; font-weight: bold; text-align: center; color: #007bff;">{{.Code}}</p>
	</div>
	<p style="font-size: 14px; color: #666;">Requesting a new code invalidates this one.</p>
	<p style="font-size: 12px; color: #999; margin-top: 20px;">This message was sent automatically, please do not reply.</p>
</div>
`

// SendConfirmationCode mails the signup confirmation code to the user.
func (s *MailService) SendConfirmationCode(to, username, code string) error {
	tmpl, err := template.New("confirmation").Parse(confirmationTemplate)
	if err != nil {
		return fmt.Errorf("parse confirmation template: %w", err)
	}

	var body bytes.Buffer
	data := struct {
		Username string
		Code     string
	}{Username: username, Code: code}
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("render confirmation mail: %w", err)
	}

	e := email.NewEmail()
	e.From = fmt.Sprintf("%s <%s>", s.cfg.MailFromName, s.cfg.MailFromAddress)
	e.To = []string{to}
	e.Subject = "Your confirmation code"
	e.HTML = body.Bytes()

	err = s.send(e)
	if err != nil && shouldRetry(err) {
		// one retry for transient connection failures only
		time.Sleep(2 * time.Second)
		err = s.send(e)
	}
	if err != nil {
		return fmt.Errorf("send confirmation mail: %w", err)
	}
	return nil
}

func (s *MailService) send(e *email.Email) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.MailHost, s.cfg.MailPort)
	auth := smtp.PlainAuth("", s.cfg.MailUsername, s.cfg.MailPassword, s.cfg.MailHost)

	if !s.cfg.MailUseTLS {
		return e.Send(addr, auth)
	}

	tlsConfig := &tls.Config{
		ServerName: s.cfg.MailHost,
		MinVersion: tls.VersionTLS12,
	}

	// 465 is implicit TLS, 587 is STARTTLS; no automatic fallback between them
	switch s.cfg.MailPort {
	case 465:
		return e.SendWithTLS(addr, auth, tlsConfig)
	case 587:
		return e.SendWithStartTLS(addr, auth, tlsConfig)
	default:
		return fmt.Errorf("unsupported mail port %d with TLS enabled", s.cfg.MailPort)
	}
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe")
}
