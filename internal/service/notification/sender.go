package notification

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"shopease/internal/config"
	"shopease/pkg/log"
	"shopease/pkg/utils"
)

// Delivery is one rendered message on its way to a recipient
type Delivery struct {
	Recipient string
	Subject   string
	Body      string
	// Text is the plain message for channels that do not carry HTML
	Text string
}

// Sender delivers over one channel and returns a human readable outcome
type Sender interface {
	Send(ctx context.Context, d Delivery) (string, error)
}

// mailer is satisfied by *gomail.Dialer
type mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSender sends through SMTP in live mode and only logs in demo mode
type EmailSender struct {
	live     bool
	from     string
	fromName string
	mailer   mailer
}

// NewEmailSender creates an email sender from the notification config
func NewEmailSender(cfg config.NotificationConfig) *EmailSender {
	s := &EmailSender{
		live:     cfg.LiveEmail,
		from:     cfg.SMTP.From,
		fromName: cfg.SMTP.FromName,
	}
	if s.from == "" {
		s.from = cfg.SMTP.Username
	}
	if cfg.LiveEmail {
		s.mailer = gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
	}
	return s
}

func (s *EmailSender) Send(ctx context.Context, d Delivery) (string, error) {
	if d.Recipient == "" {
		return "", utils.Validationf("no email address for recipient")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if !s.live {
		log.WithFields(map[string]interface{}{
			"from":    s.from,
			"to":      d.Recipient,
			"subject": d.Subject,
			"body":    d.Body,
		}).Info("Email notification (demo mode)")
		return "Email simulated successfully for " + d.Recipient, nil
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetHeader("To", d.Recipient)
	m.SetHeader("Subject", d.Subject)
	m.SetBody("text/html", d.Body)

	if err := s.mailer.DialAndSend(m); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"to":      utils.MaskEmail(d.Recipient),
		"subject": d.Subject,
	}).Info("Email sent")
	return "Email sent successfully to " + d.Recipient, nil
}

// SMSSender simulates an SMS gateway
type SMSSender struct{}

func (SMSSender) Send(ctx context.Context, d Delivery) (string, error) {
	log.WithFields(map[string]interface{}{
		"to":      d.Recipient,
		"message": d.Text,
	}).Info("SMS notification (simulated)")
	return "SMS sent successfully", nil
}

// InAppSender stores nothing beyond the notification row itself
type InAppSender struct{}

func (InAppSender) Send(ctx context.Context, d Delivery) (string, error) {
	return "In-app notification created", nil
}

// PushSender simulates a push provider
type PushSender struct{}

func (PushSender) Send(ctx context.Context, d Delivery) (string, error) {
	log.WithFields(map[string]interface{}{
		"to":      d.Recipient,
		"subject": d.Subject,
	}).Info("Push notification (simulated)")
	return "Push notification sent", nil
}
