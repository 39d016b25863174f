// Package crypto encrypts credential records at rest.
//
// Stored tokens are bearer credentials: anyone who can read the store can act
// as the user. AESGCM seals the serialized record before it is written;
// Plaintext is the dev/test passthrough.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// Cipher seals and opens serialized records.
type Cipher interface {
	Seal(plain []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// Plaintext passes records through without encryption (dev/test mode).
type Plaintext struct{}

func (Plaintext) Seal(plain []byte) ([]byte, error)  { return plain, nil }
func (Plaintext) Open(sealed []byte) ([]byte, error) { return sealed, nil }

// AESGCM is an AES-256-GCM cipher. Sealed output is nonce || ciphertext || tag.
type AESGCM struct {
	gcm cipher.AEAD
}

// NewAESGCM builds a cipher from a 64-hex-character (32-byte) key.
func NewAESGCM(hexKey string) (*AESGCM, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESGCM{gcm: gcm}, nil
}

func (c *AESGCM) Seal(plain []byte) ([]byte, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return c.gcm.Seal(nonce, nonce, plain, nil), nil
}

func (c *AESGCM) Open(sealed []byte) ([]byte, error) {
	nonceSize := c.gcm.NonceSize()
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("sealed record too short")
	}

	nonce, cipherBytes := sealed[:nonceSize], sealed[nonceSize:]
	plain, err := c.gcm.Open(nil, nonce, cipherBytes, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plain, nil
}
