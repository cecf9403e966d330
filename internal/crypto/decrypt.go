package crypto

import (
	"errors"

	"github.com/AlexZinkM/wallet-relay/internal/model"
)

// ErrDecryption covers a wrong key and tampered or truncated ciphertext alike
var ErrDecryption = errors.New("decryption failed")

// Open decrypts blob under key. The caller owns the plaintext and should
// clear it once decoded.
func Open(key []byte, blob model.EncryptedBlob) ([]byte, error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(blob.IV) != IVLen {
		return nil, ErrDecryption
	}

	plaintext, err := aesGCM.Open(nil, blob.IV, blob.Encrypted, nil)
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}
