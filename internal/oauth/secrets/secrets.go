// Package secrets generates and hashes client secrets. Stored secrets carry
// an encoder prefix, e.g. "{bcrypt}$2a$10$...", so the authorization runtime
// can tell how to verify them.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"authserver/pkg/platform/sentinel"
)

const (
	PrefixBcrypt = "{bcrypt}"
	PrefixNoop   = "{noop}"
)

// Generate creates a cryptographically secure random secret.
// Returns a base64-encoded string suitable for use as a client secret.
func Generate() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash creates a prefixed bcrypt hash of the provided secret.
func Hash(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("secret cannot be empty: %w", sentinel.ErrUnsupportedValue)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("secret is too long: %w", sentinel.ErrUnsupportedValue)
		}
		return "", fmt.Errorf("could not hash secret: %w", err)
	}
	return PrefixBcrypt + string(hashed), nil
}

// IsEncoded reports whether stored already carries an encoder prefix.
func IsEncoded(stored string) bool {
	return strings.HasPrefix(stored, "{") && strings.Contains(stored, "}")
}

// Verify checks a plaintext secret against a stored, prefixed secret.
func Verify(secret, stored string) error {
	switch {
	case strings.HasPrefix(stored, PrefixBcrypt):
		err := bcrypt.CompareHashAndPassword([]byte(strings.TrimPrefix(stored, PrefixBcrypt)), []byte(secret))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return errors.New("invalid secret")
		}
		if err != nil {
			return fmt.Errorf("could not verify secret: %w", err)
		}
		return nil
	case strings.HasPrefix(stored, PrefixNoop):
		if strings.TrimPrefix(stored, PrefixNoop) != secret {
			return errors.New("invalid secret")
		}
		return nil
	}
	return fmt.Errorf("unknown secret encoding: %w", sentinel.ErrUnsupportedValue)
}
