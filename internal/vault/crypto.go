// Package vault provides the at-rest encryption of persisted profiles and
// the TLS certificate of the store daemon.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// KeySize is the master key length in bytes (AES-256).
const KeySize = 32

var (
	// ErrInvalidKey is returned for master keys that are not 32 bytes of hex.
	ErrInvalidKey = errors.New("invalid master key")
	// ErrDecrypt is returned when a ciphertext was tampered with or the key is wrong.
	ErrDecrypt = errors.New("decryption failed (wrong key or tampered data)")
)

// ParseKey decodes a hex master key. An empty string yields a nil key,
// which disables encryption.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidKey, KeySize, len(key))
	}
	return key, nil
}

// Encrypt seals plaintext with a 32-byte key and returns nonce+ciphertext as hex.
func Encrypt(plaintext []byte, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	// The nonce is prepended so Decrypt can find it.
	return hex.EncodeToString(gcm.Seal(nonce, nonce, plaintext, nil)), nil
}

// Decrypt opens a hex string produced by Encrypt.
func Decrypt(cipherHex string, key []byte) ([]byte, error) {
	ciphertext, err := hex.DecodeString(strings.TrimSpace(cipherHex))
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
