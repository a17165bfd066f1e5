package krypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAESGCM(t *testing.T) {
	tests := []struct {
		name    string
		key     []byte
		wantErr bool
	}{
		{name: "AES-128", key: bytes.Repeat([]byte("a"), 16)},
		{name: "AES-256", key: bytes.Repeat([]byte("a"), 32)},
		{name: "invalid key size", key: []byte("too-short"), wantErr: true},
		{name: "empty key", key: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewAESGCM(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, s)
		})
	}
}

func TestAESGCMSealOpen(t *testing.T) {
	s, err := NewAESGCM(bytes.Repeat([]byte("k"), 32))
	require.NoError(t, err)

	for _, data := range [][]byte{[]byte(`{"access_token":"at-1"}`), {}, {0xFF, 0x00, 0xFE}} {
		sealed, err := s.Seal(data, []byte("alice"))
		require.NoError(t, err)
		assert.False(t, bytes.Contains(sealed, data) && len(data) > 0, "plaintext must not leak")

		opened, err := s.Open(sealed, []byte("alice"))
		require.NoError(t, err)
		assert.True(t, bytes.Equal(data, opened))
	}
}

func TestAESGCMNonceIsRandom(t *testing.T) {
	s, err := NewAESGCM(bytes.Repeat([]byte("k"), 32))
	require.NoError(t, err)

	a, err := s.Seal([]byte("same"), nil)
	require.NoError(t, err)
	b, err := s.Seal([]byte("same"), nil)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestAESGCMOpenRejectsTampering(t *testing.T) {
	s, err := NewAESGCM(bytes.Repeat([]byte("k"), 32))
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("secret"), []byte("alice"))
	require.NoError(t, err)

	_, err = s.Open(sealed, []byte("bob"))
	assert.Error(t, err, "different additional data")

	flipped := append([]byte(nil), sealed...)
	flipped[len(flipped)-1] ^= 0x01
	_, err = s.Open(flipped, []byte("alice"))
	assert.Error(t, err, "modified ciphertext")

	_, err = s.Open(sealed[:4], []byte("alice"))
	assert.ErrorIs(t, err, ErrMalformedCiphertext)

	other, err := NewAESGCM(bytes.Repeat([]byte("x"), 32))
	require.NoError(t, err)
	_, err = other.Open(sealed, []byte("alice"))
	assert.Error(t, err, "wrong key")
}

func TestGenerateAESKey(t *testing.T) {
	for _, size := range []int{16, 24, 32} {
		key, err := GenerateAESKey(size)
		require.NoError(t, err)
		assert.Len(t, key, size)
		_, err = NewAESGCM(key)
		assert.NoError(t, err)
	}

	_, err := GenerateAESKey(20)
	assert.Error(t, err)
}
