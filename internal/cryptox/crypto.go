// Package cryptox implements the symmetric encryption used for download
// capability envelopes: AES-256-GCM with a fresh random key per sealing
// and the nonce carried inside the sealed blob.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"github.com/apetrenko/filevault/internal/common"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

var ErrDecryptFailed = errors.New("decrypt failed")

// NewKey returns a fresh random AES-256 key. Keys are never reused across
// sealings; each envelope is encrypted under its own key.
func NewKey() []byte {
	return common.GenerateRandByteArray(KeySize)
}

// Seal encrypts plaintext under key with AES-GCM and returns nonce‖ciphertext.
// The nonce is generated randomly per call.
func Seal(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(aesgcm.NonceSize())
	sealed := aesgcm.Seal(nonce, nonce, plaintext, nil)

	return sealed, nil
}

// Open decrypts a blob produced by Seal. Any failure — wrong key, truncated
// blob, flipped ciphertext bit — yields the same ErrDecryptFailed so that
// callers cannot be used as a padding/tag oracle.
func Open(sealed, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrDecryptFailed
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrDecryptFailed
	}

	if len(sealed) < aesgcm.NonceSize() {
		return nil, ErrDecryptFailed
	}

	nonce, ciphertext := sealed[:aesgcm.NonceSize()], sealed[aesgcm.NonceSize():]

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}

	return plaintext, nil
}
