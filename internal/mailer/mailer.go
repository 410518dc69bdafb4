// Package mailer sends account emails over SMTP.
package mailer

import (
	"bytes"
	"context"
	"html/template"
	"strings"

	"github.com/sbilibin2017/musicon/internal/config"
	"github.com/sbilibin2017/musicon/internal/logger"
	"github.com/sbilibin2017/musicon/internal/models"
	"gopkg.in/gomail.v2"
)

//go:generate mockgen -source=mailer.go -destination=mailer_mock.go -package=mailer

// Subjects of the account emails.
const (
	WelcomeSubject       = "Welcome to the MusicOn Family!"
	PasswordResetSubject = "Your password reset token (valid for only 10 minutes)"
)

var (
	welcomeTmpl = template.Must(template.New("welcome").Parse(
		`<p>Hi {{.FirstName}},</p>` +
			`<p>Welcome to MusicOn, we're glad to have you!</p>` +
			`<p>Start by completing your profile: <a href="{{.URL}}">{{.URL}}</a></p>`))
	resetTmpl = template.Must(template.New("reset").Parse(
		`<p>Hi {{.FirstName}},</p>` +
			`<p>Forgot your password? Submit a PATCH request with your new password and passwordConfirm to: ` +
			`<a href="{{.URL}}">{{.URL}}</a></p>` +
			`<p>If you didn't forget your password, please ignore this email.</p>`))
)

// Dialer delivers composed messages.
type Dialer interface {
	DialAndSend(msgs ...*gomail.Message) error // Opens an SMTP session and sends every message
}

// Sender renders and sends account emails.
type Sender struct {
	dialer Dialer
	from   string
}

// New creates a Sender that relays through the configured SMTP server.
func New(cfg *config.Config) *Sender {
	return NewWithDialer(
		gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		cfg.EmailFrom,
	)
}

// NewWithDialer creates a Sender on top of dialer.
func NewWithDialer(dialer Dialer, from string) *Sender {
	return &Sender{dialer: dialer, from: from}
}

// SendWelcome greets a newly signed up user.
func (s *Sender) SendWelcome(ctx context.Context, u *models.User, url string) error {
	return s.send(ctx, u, url, WelcomeSubject, welcomeTmpl)
}

// SendPasswordReset mails the password reset link.
func (s *Sender) SendPasswordReset(ctx context.Context, u *models.User, url string) error {
	return s.send(ctx, u, url, PasswordResetSubject, resetTmpl)
}

func (s *Sender) send(ctx context.Context, u *models.User, url, subject string, tmpl *template.Template) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var html bytes.Buffer
	data := struct {
		FirstName string
		URL       string
	}{firstName(u.Name), url}
	if err := tmpl.Execute(&html, data); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", u.Email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", plainText(html.String()))
	m.AddAlternative("text/html", html.String())

	if err := s.dialer.DialAndSend(m); err != nil {
		logger.Log.Errorw("Failed to send email", "to", u.Email, "subject", subject, "error", err)
		return err
	}
	logger.Log.Infow("Email sent", "to", u.Email, "subject", subject)
	return nil
}

func firstName(name string) string {
	if parts := strings.Fields(name); len(parts) > 0 {
		return parts[0]
	}
	return name
}

// plainText strips the tags of the small templates above.
func plainText(html string) string {
	var b strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(strings.ReplaceAll(b.String(), "&#39;", "'"))
}
