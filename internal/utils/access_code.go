package utils

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/orgfed/voting-dashboard-api/internal/constants"
)

// ErrMalformedAccessCode marks input that cannot be canonicalized into the
// XXXX-XXXX code form.
var ErrMalformedAccessCode = errors.New("access code has an invalid format")

// GenerateAccessCode draws a fresh code from the ambiguity-free alphabet,
// retrying until it does not collide with existing (keyed by canonical
// form). The caller owns per-event uniqueness of the existing set.
func GenerateAccessCode(existing map[string]struct{}) (string, error) {
	alphabetSize := big.NewInt(int64(len(constants.AccessCodeAlphabet)))
	for {
		var raw strings.Builder
		for i := 0; i < constants.AccessCodeLength; i++ {
			idx, err := rand.Int(rand.Reader, alphabetSize)
			if err != nil {
				return "", fmt.Errorf("failed to generate access code: %w", err)
			}
			raw.WriteByte(constants.AccessCodeAlphabet[idx.Int64()])
		}
		formatted := hyphenate(raw.String())
		if _, taken := existing[formatted]; !taken {
			return formatted, nil
		}
	}
}

// CanonicalizeAccessCode normalizes user input to the stored code form:
// non-alphanumerics stripped, uppercased, re-hyphenated in groups of four.
// An empty result is returned as "" without error; any other length besides
// the code length is malformed.
func CanonicalizeAccessCode(value string) (string, error) {
	var cleaned strings.Builder
	for _, r := range strings.ToUpper(value) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			cleaned.WriteRune(r)
		}
	}
	if cleaned.Len() == 0 {
		return "", nil
	}
	if cleaned.Len() != constants.AccessCodeLength {
		return "", ErrMalformedAccessCode
	}
	return hyphenate(cleaned.String()), nil
}

func hyphenate(raw string) string {
	groups := make([]string, 0, len(raw)/constants.AccessCodeGroupSize)
	for i := 0; i < len(raw); i += constants.AccessCodeGroupSize {
		groups = append(groups, raw[i:i+constants.AccessCodeGroupSize])
	}
	return strings.Join(groups, "-")
}
