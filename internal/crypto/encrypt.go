package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"

	"github.com/AlexZinkM/wallet-relay/internal/model"
)

const (
	// KeyLen is the vault key size (AES-256)
	KeyLen = 32
	// IVLen is the GCM nonce size stored next to every ciphertext
	IVLen = 12
)

var ErrKeyLength = errors.New("vault key must be 32 bytes")

// KDF holds scrypt parameters used to turn a passphrase into a vault key.
//
// N=2^18 (~256MB RAM, 0.5-2s) keeps brute force expensive while still
// running on machines with modest memory. N=2^20 does not fit on low-memory devices.
type KDF struct {
	N int
	R int
	P int
}

var DefaultKDF = KDF{N: 1 << 18, R: 8, P: 1}

// DeriveKey derives the vault key. salt is the identity the vault belongs to,
// so the same passphrase yields different keys for different users.
// password must be []byte for security (caller should zero it after use)
func (k KDF) DeriveKey(password, salt []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, errors.New("password cannot be empty")
	}
	if len(salt) == 0 {
		return nil, errors.New("salt cannot be empty")
	}
	key, err := scrypt.Key(password, salt, k.N, k.R, k.P, KeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

// Seal encrypts plaintext under key with a fresh random IV.
func Seal(key, plaintext []byte) (model.EncryptedBlob, error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return model.EncryptedBlob{}, err
	}

	iv := make([]byte, IVLen)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return model.EncryptedBlob{}, fmt.Errorf("failed to generate iv: %w", err)
	}

	return model.EncryptedBlob{
		IV:        iv,
		Encrypted: aesGCM.Seal(nil, iv, plaintext, nil),
	}, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLen {
		return nil, ErrKeyLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
