package krypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// ErrMalformedCiphertext is returned when sealed data is too short to contain a nonce.
var ErrMalformedCiphertext = errors.New("krypto: malformed ciphertext")

// Sealer encrypts and authenticates data. Output of Seal is only meaningful to
// Open on a Sealer built from the same key material.
type Sealer interface {
	// Seal encrypts plaintext, binding it to aad. The nonce is prepended to the result.
	Seal(plaintext, aad []byte) ([]byte, error)
	// Open reverses Seal. It fails if the data or aad was altered.
	Open(sealed, aad []byte) ([]byte, error)
}

// aesGCMSealer implements Sealer using AES-GCM
type aesGCMSealer struct {
	gcm cipher.AEAD
}

// NewAESGCM creates a Sealer from a 16, 24 or 32 byte key.
func NewAESGCM(key []byte) (Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher block: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &aesGCMSealer{gcm: gcm}, nil
}

func (s *aesGCMSealer) Seal(plaintext, aad []byte) ([]byte, error) {
	nonce := make([]byte, s.gcm.NonceSize(), s.gcm.NonceSize()+len(plaintext)+s.gcm.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return s.gcm.Seal(nonce, nonce, plaintext, aad), nil
}

func (s *aesGCMSealer) Open(sealed, aad []byte) ([]byte, error) {
	n := s.gcm.NonceSize()
	if len(sealed) < n+s.gcm.Overhead() {
		return nil, ErrMalformedCiphertext
	}
	plaintext, err := s.gcm.Open(nil, sealed[:n], sealed[n:], aad)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

// GenerateAESKey returns a random key of keySize bytes.
func GenerateAESKey(keySize int) ([]byte, error) {
	if keySize != 16 && keySize != 24 && keySize != 32 {
		return nil, fmt.Errorf("invalid key size: must be 16, 24, or 32 bytes for AES-128, AES-192, or AES-256")
	}

	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate random key: %w", err)
	}
	return key, nil
}
