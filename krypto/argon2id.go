package krypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// ErrEmptyPassphrase is returned when a passphrase sealer is built without a passphrase.
var ErrEmptyPassphrase = errors.New("krypto: passphrase must not be empty")

// KDFParams are the argon2id cost parameters.
type KDFParams struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  int
	KeyLength   uint32
}

// DefaultKDFParams derive a 256-bit key.
var DefaultKDFParams = KDFParams{
	Memory:      4096,
	Iterations:  3,
	Parallelism: 6,
	SaltLength:  16,
	KeyLength:   32,
}

// DeriveKey stretches passphrase into a key of p.KeyLength bytes with argon2id.
func DeriveKey(passphrase string, salt []byte, p KDFParams) []byte {
	return argon2.IDKey([]byte(passphrase), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
}

// passphraseSealer derives a fresh AES-GCM key for every Seal from a random
// salt, stored in front of the nonce: salt || nonce || ciphertext.
type passphraseSealer struct {
	passphrase string
	params     KDFParams
}

// NewPassphraseSealer returns a Sealer keyed by passphrase. Params default to
// DefaultKDFParams and must be identical for Seal and Open.
func NewPassphraseSealer(passphrase string, params ...KDFParams) (Sealer, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	p := DefaultKDFParams
	if len(params) > 0 {
		p = params[0]
	}
	switch p.KeyLength {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("krypto: invalid key length %d", p.KeyLength)
	}
	if p.SaltLength <= 0 {
		return nil, fmt.Errorf("krypto: invalid salt length %d", p.SaltLength)
	}
	return &passphraseSealer{passphrase: passphrase, params: p}, nil
}

func (s *passphraseSealer) Seal(plaintext, aad []byte) ([]byte, error) {
	salt := make([]byte, s.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	aead, err := NewAESGCM(DeriveKey(s.passphrase, salt, s.params))
	if err != nil {
		return nil, err
	}
	sealed, err := aead.Seal(plaintext, aad)
	if err != nil {
		return nil, err
	}
	return append(salt, sealed...), nil
}

func (s *passphraseSealer) Open(sealed, aad []byte) ([]byte, error) {
	if len(sealed) <= s.params.SaltLength {
		return nil, ErrMalformedCiphertext
	}
	salt := sealed[:s.params.SaltLength]

	aead, err := NewAESGCM(DeriveKey(s.passphrase, salt, s.params))
	if err != nil {
		return nil, err
	}
	return aead.Open(sealed[s.params.SaltLength:], aad)
}
