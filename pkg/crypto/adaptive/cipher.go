package adaptive

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
	"runtime"
)

// CipherType identifies the AEAD algorithm.
type CipherType string

const (
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

// Cipher is an AEAD with the nonce managed internally. Encrypt prepends
// a fresh random nonce to each ciphertext and Decrypt strips it again.
type Cipher interface {
	// Type returns the algorithm in use.
	Type() CipherType

	// Encrypt seals plaintext, binding additionalData into the tag.
	Encrypt(plaintext, additionalData []byte) ([]byte, error)

	// Decrypt opens a sealed value under the same additionalData.
	Decrypt(ciphertext, additionalData []byte) ([]byte, error)

	// NonceSize returns the nonce size in bytes.
	NonceSize() int

	// Overhead returns the authentication tag size in bytes.
	Overhead() int
}

// New builds the cipher suited to this machine: AES-GCM where the CPU
// runs AES in hardware, ChaCha20-Poly1305 everywhere else.
func New(key []byte) (Cipher, error) {
	if hasHardwareAES() {
		return NewAESGCM(key)
	}
	return NewChaCha20(key)
}

// NewWithType builds the named cipher.
func NewWithType(key []byte, cipherType CipherType) (Cipher, error) {
	switch cipherType {
	case CipherAESGCM:
		return NewAESGCM(key)
	case CipherChaCha20:
		return NewChaCha20(key)
	default:
		return nil, errors.New("unknown cipher type: " + string(cipherType))
	}
}

// hasHardwareAES reports whether Go's crypto/aes uses dedicated CPU
// instructions on this architecture.
func hasHardwareAES() bool {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return true
	default:
		return false
	}
}

// baseCipher carries the nonce handling shared by both algorithms.
type baseCipher struct {
	aead cipher.AEAD
}

func (c *baseCipher) NonceSize() int {
	return c.aead.NonceSize()
}

func (c *baseCipher) Overhead() int {
	return c.aead.Overhead()
}

func (c *baseCipher) encrypt(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

func (c *baseCipher) decrypt(ciphertext, additionalData []byte) ([]byte, error) {
	if len(ciphertext) < c.aead.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce := ciphertext[:c.aead.NonceSize()]
	return c.aead.Open(nil, nonce, ciphertext[c.aead.NonceSize():], additionalData)
}
