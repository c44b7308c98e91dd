package authclient

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	"github.com/goliatone/go-errors"
	"golang.org/x/crypto/argon2"
)

// deriveKey stretches a store passphrase into a 256-bit AES key. The salt is
// per-installation, not secret, and must stay stable across process restarts
// or previously stored credentials become unreadable.
func deriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}

// sealValue encrypts plaintext with AES-GCM. The random nonce is prepended
// to the ciphertext so each value is self-contained.
func sealValue(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to initialize cipher")
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to initialize GCM")
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to generate nonce")
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// openValue decrypts a value produced by sealValue.
func openValue(key, sealed []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to initialize cipher")
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to initialize GCM")
	}

	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("sealed value too short", errors.CategoryBadInput)
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to decrypt value")
	}

	return plaintext, nil
}
