// Package email delivers recovery codes out of band. The plaintext code
// exists only inside the outbound message; it is never logged.
package email

import (
	"bytes"
	"fmt"
	"net/smtp"
	"sync"
	"text/template"

	"commauth/internal/config"
)

// Notifier defines the interface for delivering recovery codes
type Notifier interface {
	SendResetCode(to, username, code string) error
}

// Service implements the Notifier interface over SMTP
type Service struct {
	config config.EmailConfig
	client *smtp.Client
	mu     sync.Mutex
}

func NewService(cfg config.EmailConfig) *Service {
	return &Service{
		config: cfg,
		client: nil,
	}
}

// dialSMTP establishes an SMTP connection
func (s *Service) dialSMTP() (*smtp.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Reuse existing connection if it's still alive
	if s.client != nil {
		if err := s.client.Noop(); err == nil {
			return s.client, nil
		}
		// Connection is dead, close it
		s.client.Close()
		s.client = nil
	}

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	client, err := smtp.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial SMTP server: %w", err)
	}

	if err := client.Auth(smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to authenticate with SMTP server: %w", err)
	}

	s.client = client
	return client, nil
}

// sendMail sends an email using a pooled SMTP connection
func (s *Service) sendMail(to []string, msg []byte) error {
	client, err := s.dialSMTP()
	if err != nil {
		return err
	}

	if err := client.Mail(s.config.SMTPUsername); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			return fmt.Errorf("failed to add recipient %s: %w", addr, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to create message writer: %w", err)
	}

	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close message writer: %w", err)
	}

	return nil
}

// Close closes the SMTP connection
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		err := s.client.Quit()
		s.client = nil
		return err
	}
	return nil
}

// SendResetCode mails a one-time recovery code to the account address.
func (s *Service) SendResetCode(to, username, code string) error {
	// Validate configuration
	if s.config.SMTPHost == "" || s.config.SMTPPort == 0 || s.config.SMTPUsername == "" ||
		s.config.SMTPPassword == "" || s.config.FromAddress == "" {
		return fmt.Errorf("incomplete email configuration")
	}

	subject := "Password reset code"

	tmpl, err := template.New("reset").Parse(
		"Hello {{.Username}},\r\n" +
			"\r\n" +
			"Your verification code is: {{.Code}}\r\n" +
			"\r\n" +
			"The code expires in 15 minutes. If you did not request a password reset, please ignore this email.\r\n")
	if err != nil {
		return fmt.Errorf("failed to parse email template: %w", err)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, map[string]string{
		"Username": username,
		"Code":     code,
	}); err != nil {
		return fmt.Errorf("failed to execute email template: %w", err)
	}

	msg := fmt.Sprintf("To: %s\r\n"+
		"From: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s", to, s.config.FromAddress, subject, body.String())

	if err := s.sendMail([]string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}

	return nil
}
