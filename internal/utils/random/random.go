package random

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// Charsets for different random string types.
const (
	CharsetDigits        = "0123456789"
	CharsetUpperAlphaNum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// RegistrationPrefix prefixes every race registration number.
const RegistrationPrefix = "MPR"

// Hex generates a cryptographically secure random hex string.
// The output length is twice the input length.
func Hex(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// String generates a random string of length characters drawn from charset.
func String(length int, charset string) (string, error) {
	if length <= 0 {
		return "", nil
	}
	if charset == "" {
		charset = CharsetUpperAlphaNum
	}

	result := make([]byte, length)
	charsetLen := big.NewInt(int64(len(charset)))

	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", fmt.Errorf("generate random index: %w", err)
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}

// Digits generates a random numeric string of the given length.
func Digits(length int) (string, error) {
	return String(length, CharsetDigits)
}

// RegistrationNumber generates a race registration number: "MPR" followed by
// ten random digits.
func RegistrationNumber() (string, error) {
	digits, err := Digits(10)
	if err != nil {
		return "", err
	}
	return RegistrationPrefix + digits, nil
}
