// Package crypto encrypts subscriber contact details before they leave the machine.
//
// Values are sealed with AES-256-GCM under a key derived from a passphrase with PBKDF2.
// Encrypted values carry an "enc:" prefix so files written before encryption was
// enabled keep working: unprefixed values are returned unchanged.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	iterations = 100000
	keySize    = 32 // AES-256

	// Prefix marks a value produced by Encrypt
	Prefix = "enc:"

	saltLabel = "mooc-notices-salt"
)

// ErrWrongKey is returned when an encrypted value does not open under the key
var ErrWrongKey = errors.New("decryption failed: wrong key or corrupted value")

// Encryptor seals and opens string values. A nil Encryptor passes values through.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor derives a key from passphrase. An empty passphrase returns nil,
// which disables encryption.
func NewEncryptor(passphrase string) *Encryptor {
	if passphrase == "" {
		return nil
	}

	// Fixed salt derived from the passphrase, so the same passphrase always opens the file
	salt := sha256.Sum256([]byte(passphrase + saltLabel))
	key := pbkdf2.Key([]byte(passphrase), salt[:], iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		// keySize is a valid AES key length
		panic(err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		panic(err)
	}

	return &Encryptor{aead: aead}
}

// IsEncrypted reports whether value was produced by Encrypt
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, Prefix)
}

// Encrypt seals plaintext. Empty and already encrypted values are returned unchanged.
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	if e == nil || plaintext == "" || IsEncrypted(plaintext) {
		return plaintext, nil
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return Prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Values without the prefix are
// returned unchanged.
func (e *Encryptor) Decrypt(value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}
	if e == nil {
		return "", errors.New("value is encrypted but no encryption key is configured")
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, Prefix))
	if err != nil {
		return "", fmt.Errorf("decoding encrypted value: %w", err)
	}

	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	plaintext, err := e.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", ErrWrongKey
	}
	return string(plaintext), nil
}

// EncryptFields encrypts each referenced string in place
func (e *Encryptor) EncryptFields(fields ...*string) error {
	for _, f := range fields {
		v, err := e.Encrypt(*f)
		if err != nil {
			return err
		}
		*f = v
	}
	return nil
}

// DecryptFields decrypts each referenced string in place
func (e *Encryptor) DecryptFields(fields ...*string) error {
	for _, f := range fields {
		v, err := e.Decrypt(*f)
		if err != nil {
			return err
		}
		*f = v
	}
	return nil
}
