package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"unicode"
)

const tempPasswordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*()-_=+"

// GenerateTempPassword produces a random password that satisfies
// ValidateStrength and additionally contains a lowercase letter and a
// digit. Used for administrator accounts created with a forced change.
func GenerateTempPassword(length int) (string, error) {
	if length < MinTempPasswordLength {
		length = MinTempPasswordLength
	}
	for {
		buf := make([]rune, length)
		for i := range buf {
			idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(tempPasswordAlphabet))))
			if err != nil {
				return "", fmt.Errorf("generate temporary password: %w", err)
			}
			buf[i] = rune(tempPasswordAlphabet[idx.Int64()])
		}
		candidate := string(buf)
		if ValidateStrength(candidate) != nil {
			continue
		}
		if !containsLower(candidate) || !containsDigit(candidate) {
			continue
		}
		return candidate, nil
	}
}

// MinTempPasswordLength matches the length of seeded admin passwords.
const MinTempPasswordLength = 12

func containsLower(s string) bool {
	for _, r := range s {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
