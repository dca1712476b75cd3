package notification

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"

	"go.uber.org/zap"
)

// SMTPConfig holds SMTP configuration.
type SMTPConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	FromAddress string
	FromName    string
}

// SMTPSender sends emails via SMTP.
type SMTPSender struct {
	config   *SMTPConfig
	logger   *zap.Logger
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates a new SMTP sender.
func NewSMTPSender(config *SMTPConfig, logger *zap.Logger) *SMTPSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPSender{
		config:   config,
		logger:   logger,
		sendMail: smtp.SendMail,
	}
}

// Name implements Sender.
func (s *SMTPSender) Name() string { return "smtp" }

// Send delivers an HTML email. net/smtp has no context support, so the
// call is abandoned, not aborted, when ctx ends first.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var auth smtp.Auth
	if s.config.User != "" && s.config.Password != "" {
		auth = smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	}

	done := make(chan error, 1)
	go func() {
		done <- s.sendMail(addr, auth, s.config.FromAddress, []string{to}, s.message(to, subject, body))
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		s.logger.Error("failed to send email",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	s.logger.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

func (s *SMTPSender) message(to, subject, body string) []byte {
	from := s.config.FromAddress
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", s.config.FromName), s.config.FromAddress)
	}
	return []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, to, mime.QEncoding.Encode("utf-8", subject), body))
}
