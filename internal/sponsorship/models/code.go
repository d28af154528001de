package models

import (
	"fmt"
	"io"
	"strings"
)

const (
	// VerificationCodeLength is the fixed length of a verification code.
	VerificationCodeLength = 6
	// VerificationCodeAlphabet lists the characters a code is drawn from.
	VerificationCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// IsVerificationCode reports whether code has the issued shape.
func IsVerificationCode(code string) bool {
	if len(code) != VerificationCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// GenerateCode draws a verification code from r, which should be crypto/rand.Reader
// outside tests. Bytes that would bias the alphabet are discarded.
func GenerateCode(r io.Reader) (string, error) {
	const limit = 256 - 256%len(VerificationCodeAlphabet)

	code := make([]byte, 0, VerificationCodeLength)
	buf := make([]byte, VerificationCodeLength*2)
	for len(code) < VerificationCodeLength {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			code = append(code, VerificationCodeAlphabet[int(b)%len(VerificationCodeAlphabet)])
			if len(code) == VerificationCodeLength {
				break
			}
		}
	}
	return string(code), nil
}

// NormalizeCode upper-cases and trims a code typed by a person.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
