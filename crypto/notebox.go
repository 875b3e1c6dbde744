package crypto

import (
	crand "crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const saltSize = 16

var ErrSealedNoteTooShort = errors.New("sealed note too short")

// noteKey derives the note encryption key from a passphrase.
func noteKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, chacha20poly1305.KeySize)
}

// SealNote encrypts a serialized note with ChaCha20-Poly1305 under a key
// derived from passphrase. The result is salt | nonce | ciphertext.
func SealNote(passphrase []byte, note string) ([]byte, error) {
	salt := make([]byte, saltSize, saltSize+chacha20poly1305.NonceSize)
	if _, err := crand.Read(salt); err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := crand.Read(nonce); err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(noteKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create ChaCha20-Poly1305 AEAD: %w", err)
	}
	header := append(salt, nonce...)
	return aead.Seal(header, nonce, []byte(note), header[:saltSize]), nil
}

func OpenNote(passphrase, sealed []byte) (string, error) {
	if len(sealed) < saltSize+chacha20poly1305.NonceSize+chacha20poly1305.Overhead {
		return "", ErrSealedNoteTooShort
	}
	salt := sealed[:saltSize]
	nonce := sealed[saltSize : saltSize+chacha20poly1305.NonceSize]

	aead, err := chacha20poly1305.New(noteKey(passphrase, salt))
	if err != nil {
		return "", fmt.Errorf("failed to create ChaCha20-Poly1305 AEAD: %w", err)
	}
	plain, err := aead.Open(nil, nonce, sealed[saltSize+chacha20poly1305.NonceSize:], salt)
	if err != nil {
		return "", fmt.Errorf("failed to open note: %w", err)
	}
	return string(plain), nil
}
