package cache

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/yndnr/syncmesh-go/pkg/crypto/adaptive"
)

// Supported at-rest encryption algorithms.
const (
	// AlgorithmChaCha20 is the default AEAD.
	AlgorithmChaCha20 = string(adaptive.CipherChaCha20)

	// AlgorithmAESGCM selects AES-256-GCM, which is faster where the CPU
	// has AES instructions.
	AlgorithmAESGCM = string(adaptive.CipherAESGCM)

	// AlgorithmAuto picks by hardware: AES-GCM with CPU support, else
	// ChaCha20-Poly1305.
	AlgorithmAuto = "auto"
)

// MinPassphraseLength is the shortest accepted passphrase.
const MinPassphraseLength = 8

// ErrPassphraseTooWeak rejects passphrases below MinPassphraseLength.
var ErrPassphraseTooWeak = errors.New("cache: passphrase too weak (minimum 8 characters)")

const (
	saltFile   = "cache.salt"
	saltLength = 16

	// Argon2id parameters for the passphrase-to-master-key derivation.
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32

	// hkdfInfo separates the cache key from any other key derived from
	// the same passphrase.
	hkdfInfo = "syncmesh cache v1"
)

// EncryptionConfig configures at-rest encryption of cached entries.
//
// The zero value disables encryption.
type EncryptionConfig struct {
	// Passphrase derives the encryption key. Empty disables encryption.
	Passphrase []byte

	// Algorithm selects the AEAD: chacha20-poly1305 (default), aes-gcm,
	// or auto to pick by hardware.
	Algorithm string
}

// secretBox seals cache entries with an AEAD derived from the configured
// passphrase. The random nonce is prepended to each ciphertext.
type secretBox struct {
	cipher adaptive.Cipher
}

// newSecretBox derives the cache key and builds the AEAD. It returns nil
// when no passphrase is configured. The derivation salt persists in dir
// so the same passphrase yields the same key across restarts.
func newSecretBox(cfg EncryptionConfig, dir string) (*secretBox, error) {
	if len(cfg.Passphrase) == 0 {
		return nil, nil
	}
	if len(cfg.Passphrase) < MinPassphraseLength {
		return nil, ErrPassphraseTooWeak
	}

	salt, err := loadOrCreateSalt(filepath.Join(dir, saltFile))
	if err != nil {
		return nil, err
	}

	master := argon2.IDKey(cfg.Passphrase, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	key, err := deriveSubkey(master, hkdfInfo, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}

	c, err := newCipher(cfg.Algorithm, key)
	if err != nil {
		return nil, err
	}
	return &secretBox{cipher: c}, nil
}

// newCipher constructs the selected AEAD over a 32-byte key.
func newCipher(algorithm string, key []byte) (adaptive.Cipher, error) {
	switch algorithm {
	case "", AlgorithmChaCha20:
		return adaptive.NewChaCha20(key)
	case AlgorithmAESGCM:
		return adaptive.NewAESGCM(key)
	case AlgorithmAuto:
		return adaptive.New(key)
	default:
		return nil, fmt.Errorf("cache: unsupported algorithm: %s", algorithm)
	}
}

// seal encrypts plaintext, prepending the random nonce.
func (b *secretBox) seal(plaintext, additionalData []byte) ([]byte, error) {
	return b.cipher.Encrypt(plaintext, additionalData)
}

// open decrypts a sealed entry.
func (b *secretBox) open(ciphertext, additionalData []byte) ([]byte, error) {
	return b.cipher.Decrypt(ciphertext, additionalData)
}

// deriveSubkey expands the master key through HKDF. Distinct info labels
// yield unrelated keys from the same master.
func deriveSubkey(masterKey []byte, info string, length int) ([]byte, error) {
	r := hkdf.New(sha256.New, masterKey, nil, []byte(info))
	key := make([]byte, length)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("cache: derive subkey: %w", err)
	}
	return key, nil
}

// loadOrCreateSalt reads the persisted derivation salt, generating one on
// first use. Losing the salt makes existing entries unreadable, so a
// damaged salt file is an error rather than a silent regeneration.
func loadOrCreateSalt(path string) ([]byte, error) {
	salt, err := os.ReadFile(path)
	if err == nil {
		if len(salt) != saltLength {
			return nil, fmt.Errorf("cache: salt file %s is damaged (%d bytes)", path, len(salt))
		}
		return salt, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("cache: read salt: %w", err)
	}

	salt = make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("cache: generate salt: %w", err)
	}
	if err := os.WriteFile(path, salt, 0o600); err != nil {
		return nil, fmt.Errorf("cache: write salt: %w", err)
	}
	return salt, nil
}
