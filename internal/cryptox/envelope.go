// Package cryptox implements the symmetric encryption-at-rest pipeline for
// uploaded documents.
//
// A sealed blob is a self-describing string envelope:
//
//	hex(iv) + ":" + hex(ciphertext)
//
// Ciphertext is AES-256-CBC with PKCS#7 padding. The IV is 16 fresh random
// bytes per Seal call; it is not secret and rides along with the ciphertext.
// CBC semantic security depends on IV uniqueness per encryption, not secrecy.
//
// The key is derived once per Envelope from a static secret and a fixed salt
// using scrypt, so a leaked database alone does not let an attacker brute
// force cheaply. It is still one key shared by all stored documents; per-user
// wrapped data keys would be the stronger design if key management ever
// becomes part of this system.
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/scrypt"

	"github.com/willtrail/willtrail/internal/common"
)

const (
	keyLength = 32
	ivLength  = aes.BlockSize

	// KDF salt is fixed so that the same secret always yields the same key.
	kdfSalt = "willtrail_v2_salt"

	// Interactive scrypt parameters (RFC 7914 recommendation).
	scryptN = 32768
	scryptR = 8
	scryptP = 1
)

// Envelope seals and opens opaque byte blobs with a single process-wide key.
// Safe for concurrent use: the derived key is write-once and read-only.
type Envelope struct {
	secret string
	once   sync.Once
	key    []byte
	keyErr error
}

// NewEnvelope returns an Envelope deriving its key from secret. Derivation is
// deliberately expensive and happens lazily on first use, exactly once.
func NewEnvelope(secret string) *Envelope {
	return &Envelope{secret: secret}
}

func (e *Envelope) derivedKey() ([]byte, error) {
	e.once.Do(func() {
		e.key, e.keyErr = scrypt.Key([]byte(e.secret), []byte(kdfSalt), scryptN, scryptR, scryptP, keyLength)
	})
	return e.key, e.keyErr
}

// Seal encrypts plaintext and returns the string envelope. Two calls on the
// same input produce different envelopes because the IV is fresh every time.
func (e *Envelope) Seal(plaintext []byte) (string, error) {
	key, err := e.derivedKey()
	if err != nil {
		return "", fmt.Errorf("key derivation: %w", err)
	}

	iv := make([]byte, ivLength)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("iv generation: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("cipher init: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

// Open decrypts an envelope produced by Seal and returns the original bytes.
// A malformed envelope (missing separator, bad hex, wrong length, broken
// padding) yields common.ErrDecryptionFailed; corrupted plaintext is never
// returned for a structurally invalid input.
func (e *Envelope) Open(envelope string) ([]byte, error) {
	key, err := e.derivedKey()
	if err != nil {
		return nil, fmt.Errorf("key derivation: %w", err)
	}

	ivHex, ctHex, found := strings.Cut(envelope, ":")
	if !found {
		return nil, fmt.Errorf("%w: missing separator", common.ErrDecryptionFailed)
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != ivLength {
		return nil, fmt.Errorf("%w: bad iv", common.ErrDecryptionFailed)
	}

	ciphertext, err := hex.DecodeString(ctHex)
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: bad ciphertext", common.ErrDecryptionFailed)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher init: %w", err)
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	plaintext, err := pkcs7Unpad(padded, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: bad padding", common.ErrDecryptionFailed)
	}
	return plaintext, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("invalid padding byte %d", n)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return data[:len(data)-n], nil
}
