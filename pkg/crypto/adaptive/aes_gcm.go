package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
)

// AESGCM is AES-GCM authenticated encryption.
type AESGCM struct {
	baseCipher
}

// NewAESGCM builds an AES-GCM cipher. The key must be 16, 24, or 32
// bytes, selecting AES-128, AES-192, or AES-256.
func NewAESGCM(key []byte) (*AESGCM, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, errors.New("invalid key size for AES-GCM: must be 16, 24, or 32 bytes")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESGCM{baseCipher{aead: aead}}, nil
}

func (c *AESGCM) Type() CipherType {
	return CipherAESGCM
}

func (c *AESGCM) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	return c.encrypt(plaintext, additionalData)
}

func (c *AESGCM) Decrypt(ciphertext, additionalData []byte) ([]byte, error) {
	return c.decrypt(ciphertext, additionalData)
}
