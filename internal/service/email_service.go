package service

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"
	"strings"
	"time"

	"yatube/config"
	"yatube/internal/model"
	"yatube/internal/util"

	"go.uber.org/zap"
	"gopkg.in/mail.v2"
)

// EmailService sends notification mail over SMTP.
type EmailService struct {
	smtpHost string
	smtpPort int
	username string
	password string
	from     string
	baseURL  string

	send func(m *mail.Message) error
}

var _ FollowNotifier = (*EmailService)(nil)

func NewEmailService(cfg config.Config) *EmailService {
	s := &EmailService{
		smtpHost: cfg.SMTPHost,
		smtpPort: cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.MailFrom,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
	}
	s.send = s.dialAndSend
	return s
}

// Enabled is false when no SMTP host is configured.
func (s *EmailService) Enabled() bool {
	return s.smtpHost != ""
}

// NotifyNewFollower tells author that follower subscribed to them. Mail
// goes out in the background; delivery failures are only logged.
func (s *EmailService) NotifyNewFollower(_ context.Context, author, follower *model.User) error {
	if !s.Enabled() || author.Email == "" {
		return nil
	}

	profile := s.baseURL + follower.ProfileURL()
	body := fmt.Sprintf(`<p>Hello, %s!</p>
<p><a href="%s">%s</a> is now following your posts on Yatube.</p>`,
		html.EscapeString(author.FullName()), html.EscapeString(profile), html.EscapeString(follower.Username))

	s.sendEmailAsync(author.Email, "You have a new follower", body)
	return nil
}

func (s *EmailService) sendEmailAsync(to, subject, body string) {
	m := s.message(to, subject, body)
	go func() {
		if err := s.send(m); err != nil {
			util.Logger.Error("failed to send email", zap.Error(err), zap.String("to", to))
			return
		}
		util.Logger.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	}()
}

func (s *EmailService) message(to, subject, body string) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	return m
}

func (s *EmailService) dialAndSend(m *mail.Message) error {
	d := mail.NewDialer(s.smtpHost, s.smtpPort, s.username, s.password)
	d.Timeout = 20 * time.Second
	d.SSL = s.smtpPort == 465
	d.TLSConfig = &tls.Config{ServerName: s.smtpHost}

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp %s:%d: %w", s.smtpHost, s.smtpPort, err)
	}
	return nil
}
