// Package crypto encrypts chat-platform session credentials at rest
// (spec.md §6 ENCRYPTION_KEY), replacing the upstream Fernet/AES-128 scheme
// (_examples/original_source/backend/app/utils/encryption.py) with AES-GCM
// since no pack example ships a Fernet-compatible library.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

var ErrInvalidToken = errors.New("crypto: invalid token or corrupted data")

// Box encrypts and decrypts session blobs with a single AES-128 key, mirroring
// the upstream EncryptionService's single-global-key shape.
type Box struct {
	aead cipher.AEAD
}

// NewBox builds a Box from a base64- or raw-encoded 16-byte key.
func NewBox(key []byte) (*Box, error) {
	raw := key
	if len(key) != 16 {
		decoded := make([]byte, base64.StdEncoding.DecodedLen(len(key)))
		n, err := base64.StdEncoding.Decode(decoded, key)
		if err != nil || n != 16 {
			return nil, fmt.Errorf("crypto: invalid encryption key: want 16 bytes, got %d raw / decode error %v", len(key), err)
		}
		raw = decoded[:n]
	}
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid encryption key: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: build gcm: %w", err)
	}
	return &Box{aead: aead}, nil
}

// Encrypt seals data, prefixing the nonce, matching Fernet's self-contained
// token shape (encrypt_session in the source).
func (b *Box) Encrypt(plaintext string) ([]byte, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypto: read nonce: %w", err)
	}
	return b.aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Decrypt opens a token produced by Encrypt (decrypt_session in the source).
func (b *Box) Decrypt(token []byte) (string, error) {
	n := b.aead.NonceSize()
	if len(token) < n {
		return "", ErrInvalidToken
	}
	nonce, ciphertext := token[:n], token[n:]
	plaintext, err := b.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrInvalidToken
	}
	return string(plaintext), nil
}
