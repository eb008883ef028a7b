// Package captcha verifies reCAPTCHA tokens on public registration.
package captcha

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const siteverifyEndpoint = "https://www.google.com/recaptcha/api/siteverify"

// Verifier checks a client-supplied captcha token.
type Verifier interface {
	Verify(token, remoteIP string) (bool, error)
}

// GoogleVerifier validates tokens against the reCAPTCHA siteverify API.
type GoogleVerifier struct {
	secret string
	client *http.Client
	logger *zap.Logger
}

// NewGoogleVerifier creates a verifier with the shared site secret.
func NewGoogleVerifier(secret string, logger *zap.Logger) *GoogleVerifier {
	return &GoogleVerifier{
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify posts the token to siteverify and reports the result.
func (v *GoogleVerifier) Verify(token, remoteIP string) (bool, error) {
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	resp, err := v.client.Post(siteverifyEndpoint, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("captcha verification request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return false, fmt.Errorf("captcha verification response unreadable: %w", err)
	}
	if !decoded.Success {
		v.logger.Info("captcha rejected", zap.Strings("error_codes", decoded.ErrorCodes))
	}
	return decoded.Success, nil
}

// Disabled accepts every token. Used when RECAPTCHA_ENABLED is off.
type Disabled struct{}

// Verify always reports success.
func (Disabled) Verify(string, string) (bool, error) {
	return true, nil
}
