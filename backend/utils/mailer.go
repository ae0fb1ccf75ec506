package utils

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"quizplatform/backend/config"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(msg Message) error
}

// NewMailer returns an SMTP mailer when SMTP_HOST is configured and a mailer
// that only logs otherwise.
func NewMailer(cfg *config.Config, logger *log.Logger) Mailer {
	if cfg.SMTPHost == "" {
		return LogMailer{Logger: logger}
	}
	return &SMTPMailer{
		Addr: cfg.SMTPHost + ":" + cfg.SMTPPort,
		From: cfg.SMTPFrom,
		Auth: smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost),
	}
}

type SMTPMailer struct {
	Addr string
	From string
	Auth smtp.Auth
}

func (m *SMTPMailer) Send(msg Message) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(msg.Body)
	return smtp.SendMail(m.Addr, m.Auth, m.From, []string{msg.To}, []byte(b.String()))
}

type LogMailer struct {
	Logger *log.Logger
}

func (m LogMailer) Send(msg Message) error {
	m.Logger.Printf("Mail to %s: %s", msg.To, msg.Subject)
	return nil
}

// SendAsync delivers msg in the background. Failures are logged and never
// reach the caller. The returned channel closes once delivery was attempted.
func SendAsync(m Mailer, logger *log.Logger, msg Message) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				logger.Printf("Mail to %s panicked: %v", msg.To, r)
			}
		}()
		if err := m.Send(msg); err != nil {
			logger.Printf("Failed to send mail to %s: %v", msg.To, err)
		}
	}()
	return done
}

func AccessCodeMessage(email, name, code string) Message {
	greeting := name
	if greeting == "" {
		greeting = email
	}
	return Message{
		To:      email,
		Subject: "Your quiz access code",
		Body: fmt.Sprintf("Hello %s,\n\nYour premium quiz account is ready.\nEmail: %s\nAccess code: %s\n",
			greeting, email, code),
	}
}
