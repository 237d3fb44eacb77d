// Package auth issues and checks presenter keys. A presenter key is shown
// once at session creation; only its bcrypt hash is stored.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const keyPrefix = "pk_"

var (
	ErrMissingKey = errors.New("presenter key required")
	ErrInvalidKey = errors.New("invalid presenter key")
)

// NewPresenterKey returns a random key and its bcrypt hash.
func NewPresenterKey() (key, hash string, err error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generate presenter key: %w", err)
	}
	key = keyPrefix + base64.RawURLEncoding.EncodeToString(raw)
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("hash presenter key: %w", err)
	}
	return key, string(hashed), nil
}

// VerifyPresenterKey checks key against the stored hash.
func VerifyPresenterKey(hash, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrMissingKey
	}
	if !strings.HasPrefix(key, keyPrefix) {
		return ErrInvalidKey
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
		return ErrInvalidKey
	}
	return nil
}
