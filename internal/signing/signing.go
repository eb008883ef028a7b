// Package signing implements the HMAC-SHA256 signing primitives shared by
// the launch token, the inbound authentication check, and the event-state
// sync push. The canonical JSON form (lexically sorted keys, no incidental
// whitespace) is the exact byte input to every payload signature, so the
// receiving side can re-derive it independently.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// CanonicalJSON serializes payload with deterministically ordered keys and
// no non-semantic whitespace. Payloads are built as map[string]any, which
// encoding/json marshals with sorted keys.
func CanonicalJSON(payload map[string]any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("canonicalize payload: %w", err)
	}
	return body, nil
}

// SignHex returns the lowercase hex HMAC-SHA256 of message under secret.
func SignHex(secret, message []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHex recomputes the signature of message and compares it against
// providedHex in constant time. Comparison is case-insensitive on receipt.
func VerifyHex(secret, message []byte, providedHex string) bool {
	expected := SignHex(secret, message)
	provided := strings.ToLower(strings.TrimSpace(providedHex))
	return hmac.Equal([]byte(expected), []byte(provided))
}

// EncodeToken wraps a canonical payload as base64url(payload) + "." +
// hex signature, with base64 padding stripped.
func EncodeToken(secret []byte, payload map[string]any) (string, error) {
	body, err := CanonicalJSON(payload)
	if err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(body)
	return encoded + "." + SignHex(secret, body), nil
}

// DecodeToken splits and verifies a launch token, returning the decoded
// payload bytes. It reports false when the structure or signature is wrong.
func DecodeToken(secret []byte, token string) ([]byte, bool) {
	dot := strings.LastIndexByte(token, '.')
	if dot <= 0 || dot == len(token)-1 {
		return nil, false
	}
	body, err := base64.RawURLEncoding.DecodeString(token[:dot])
	if err != nil {
		return nil, false
	}
	if !VerifyHex(secret, body, token[dot+1:]) {
		return nil, false
	}
	return body, true
}

// SignTimestamped signs "{timestamp}:{payload}", the construction used by
// both the inbound authentication request and the sync-push headers.
func SignTimestamped(secret []byte, timestamp int64, payload string) string {
	return SignHex(secret, []byte(fmt.Sprintf("%d:%s", timestamp, payload)))
}
