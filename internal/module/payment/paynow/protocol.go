package paynow

import (
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Response status values.
const (
	statusOk    = "ok"
	statusError = "error"
)

var (
	ErrInvalidHash     = errors.New("paynow: response hash mismatch")
	ErrMalformedFields = errors.New("paynow: malformed response")
)

// field is one key/value pair. Paynow hashes values in wire order, so
// requests and responses are kept as ordered slices instead of url.Values.
type field struct {
	Key   string
	Value string
}

type fields []field

// Get returns the value of key, matched case-insensitively.
func (f fields) Get(key string) string {
	for _, kv := range f {
		if strings.EqualFold(kv.Key, key) {
			return kv.Value
		}
	}
	return ""
}

// Encode form-encodes the fields in order.
func (f fields) Encode() string {
	var b strings.Builder
	for i, kv := range f {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.Value))
	}
	return b.String()
}

// Hash returns the upper-case hex SHA-512 of every value except "hash",
// concatenated in order and followed by the lower-cased integration key.
func (f fields) Hash(integrationKey string) string {
	var b strings.Builder
	for _, kv := range f {
		if strings.EqualFold(kv.Key, "hash") {
			continue
		}
		b.WriteString(kv.Value)
	}
	b.WriteString(strings.ToLower(integrationKey))
	sum := sha512.Sum512([]byte(b.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// Signed returns a copy of f with the hash field appended.
func (f fields) Signed(integrationKey string) fields {
	out := make(fields, 0, len(f)+1)
	out = append(out, f...)
	return append(out, field{Key: "hash", Value: f.Hash(integrationKey)})
}

// Verify checks the hash field against the other values.
func (f fields) Verify(integrationKey string) error {
	got := f.Get("hash")
	if got == "" {
		return fmt.Errorf("%w: missing hash", ErrInvalidHash)
	}
	if !strings.EqualFold(got, f.Hash(integrationKey)) {
		return ErrInvalidHash
	}
	return nil
}

// parseFields decodes a form-encoded body preserving field order.
func parseFields(body string) (fields, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedFields)
	}
	var out fields
	for _, pair := range strings.Split(body, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFields, err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFields, err)
		}
		out = append(out, field{Key: strings.ToLower(key), Value: value})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no fields", ErrMalformedFields)
	}
	return out, nil
}
