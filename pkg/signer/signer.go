// Package signer issues and verifies the tamper-evident tokens that carry a
// form's configuration from render time to submit time. Tokens are
// authenticated and encrypted, so a verified payload can be trusted without
// any server-side lookup.
package signer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// KeySize is the required length of the raw signing key.
const KeySize = 32

// Signer encrypts form payloads with a process-wide symmetric key. The key
// must stay stable across deployments for the lifetime of issued tokens,
// which are embedded in rendered pages and can be submitted hours later.
type Signer struct {
	aead cipher.AEAD
}

// New builds a Signer from a raw 32-byte key.
func New(key []byte) (*Signer, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("signer: key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("signer: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("signer: %w", err)
	}
	return &Signer{aead: aead}, nil
}

// NewFromSecret derives the signing key from an arbitrary secret string.
// Deployments configure a single opaque secret; the derivation keeps key
// handling out of their hands.
func NewFromSecret(secret string) (*Signer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("signer: secret is required")
	}
	key := sha256.Sum256([]byte(secret))
	return New(key[:])
}

// Sign serializes the payload to JSON and seals it into a URL-safe token.
func (s *Signer) Sign(payload map[string]any) (string, error) {
	if payload == nil {
		return "", fmt.Errorf("signer: payload is required")
	}
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("signer: %w", err)
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("signer: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Verify decrypts and decodes a token. It returns nil for anything that is
// not a valid token sealed with the current key: malformed encoding, a
// flipped byte, a rotated key, or content that is not a JSON object. Callers
// treat all of those as a missing configuration.
func (s *Signer) Verify(token string) map[string]any {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}

	sealed, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil
	}
	if len(sealed) < s.aead.NonceSize() {
		return nil
	}

	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil
	}

	var payload map[string]any
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil
	}
	return payload
}
