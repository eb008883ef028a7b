// Package mailer delivers transactional email through the Brevo HTTP API.
// When no API key is configured a logging sender is used instead, so
// development environments see the links without sending anything.
package mailer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/orgfed/voting-dashboard-api/internal/config"
)

var ErrSendFailed = errors.New("failed to send email")

// Sender delivers one email and returns the provider message id.
type Sender interface {
	Send(toEmail, toName, subject, htmlBody, textBody string) (string, error)
}

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

// BrevoSender sends through the Brevo transactional API.
type BrevoSender struct {
	cfg    config.MailConfig
	client *http.Client
	logger *zap.Logger
}

// NewBrevoSender creates a Brevo-backed sender.
func NewBrevoSender(cfg config.MailConfig, logger *zap.Logger) *BrevoSender {
	return &BrevoSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

type brevoParty struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoRequest struct {
	Sender      brevoParty   `json:"sender"`
	To          []brevoParty `json:"to"`
	Subject     string       `json:"subject"`
	HTMLContent string       `json:"htmlContent"`
	TextContent string       `json:"textContent,omitempty"`
}

type brevoResponse struct {
	MessageID string `json:"messageId"`
}

// Send delivers the email, returning the Brevo message id.
func (s *BrevoSender) Send(toEmail, toName, subject, htmlBody, textBody string) (string, error) {
	payload := brevoRequest{
		Sender:      brevoParty{Email: s.cfg.SenderEmail, Name: s.cfg.SenderName},
		To:          []brevoParty{{Email: toEmail, Name: toName}},
		Subject:     subject,
		HTMLContent: htmlBody,
		TextContent: textBody,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	req, err := http.NewRequest(http.MethodPost, brevoEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn("brevo rejected email",
			zap.Int("status", resp.StatusCode),
			zap.String("to", toEmail))
		return "", fmt.Errorf("%w: status %d", ErrSendFailed, resp.StatusCode)
	}

	var decoded brevoResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		// Delivery succeeded, only the message id is missing.
		return "", nil
	}
	return decoded.MessageID, nil
}

// LogSender writes the email to the log instead of sending it.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a sender for environments without mail credentials.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the email and reports success.
func (s *LogSender) Send(toEmail, toName, subject, htmlBody, textBody string) (string, error) {
	s.logger.Info("email suppressed, no mail provider configured",
		zap.String("to", toEmail),
		zap.String("subject", subject),
		zap.String("text", textBody))
	return "", nil
}

// FromConfig picks the Brevo sender when an API key is configured and the
// logging sender otherwise.
func FromConfig(cfg config.MailConfig, logger *zap.Logger) Sender {
	if cfg.APIKey != "" && cfg.SenderEmail != "" {
		return NewBrevoSender(cfg, logger)
	}
	return NewLogSender(logger)
}
