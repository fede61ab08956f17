package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

// ErrUnsealable is returned when a sealed value was tampered with, was
// sealed under another key, or is not a sealed value at all.
var ErrUnsealable = errors.New("value cannot be unsealed")

// Seal encrypts and authenticates plaintext with key. The result is
// base64 text safe to store in a TEXT column.
func Seal(key *[32]byte, plaintext string) (string, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	out := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, key)
	return base64.RawStdEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func Open(key *[32]byte, sealed string) (string, error) {
	raw, err := base64.RawStdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < 24+secretbox.Overhead {
		return "", ErrUnsealable
	}

	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, key)
	if !ok {
		return "", ErrUnsealable
	}
	return string(plain), nil
}
