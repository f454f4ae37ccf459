package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

// Clients encrypt passwords in transit with the issued nonce as a
// passphrase, in the OpenSSL enveloped format produced by CryptoJS:
// base64("Salted__" + 8-byte salt + AES-256-CBC ciphertext), with key and
// IV derived from (passphrase, salt) via MD5 EVP_BytesToKey. This is a
// defense-in-depth measure on top of transport security, not a
// replacement for it.

const (
	saltedPrefix = "Salted__"
	saltSize     = 8
	keySize      = 32
	ivSize       = 16

	// NonceBytes is the entropy of an issued nonce; it travels hex-encoded.
	NonceBytes = 16
)

var ErrMalformedCiphertext = errors.New("malformed ciphertext")

// GenerateNonce returns a fresh hex-encoded random nonce value
func GenerateNonce() (string, error) {
	buf := make([]byte, NonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// DecryptPassword reverses the client-side encryption of a password under
// the issued nonce. Any structural defect in the payload yields
// ErrMalformedCiphertext; callers surface it as invalid credentials.
func DecryptPassword(ciphertext, nonce string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrMalformedCiphertext
	}
	if len(raw) < len(saltedPrefix)+saltSize || string(raw[:len(saltedPrefix)]) != saltedPrefix {
		return "", ErrMalformedCiphertext
	}

	salt := raw[len(saltedPrefix) : len(saltedPrefix)+saltSize]
	body := raw[len(saltedPrefix)+saltSize:]
	if len(body) == 0 || len(body)%aes.BlockSize != 0 {
		return "", ErrMalformedCiphertext
	}

	key, iv := deriveKeyAndIV([]byte(nonce), salt)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	plaintext := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, body)

	unpadded, err := pkcs7Unpad(plaintext)
	if err != nil {
		return "", ErrMalformedCiphertext
	}

	return string(unpadded), nil
}

// EncryptPassword is the inverse of DecryptPassword, producing the same
// enveloped format a browser client emits. Used by tests and Go clients.
func EncryptPassword(password, nonce string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key, iv := deriveKeyAndIV([]byte(nonce), salt)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	padded := pkcs7Pad([]byte(password), aes.BlockSize)
	body := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(body, padded)

	raw := make([]byte, 0, len(saltedPrefix)+saltSize+len(body))
	raw = append(raw, saltedPrefix...)
	raw = append(raw, salt...)
	raw = append(raw, body...)

	return base64.StdEncoding.EncodeToString(raw), nil
}

// deriveKeyAndIV implements OpenSSL EVP_BytesToKey with MD5 and a single
// iteration, the derivation CryptoJS uses for passphrase encryption.
func deriveKeyAndIV(passphrase, salt []byte) (key, iv []byte) {
	var derived []byte
	var block []byte
	for len(derived) < keySize+ivSize {
		h := md5.New()
		h.Write(block)
		h.Write(passphrase)
		h.Write(salt)
		block = h.Sum(nil)
		derived = append(derived, block...)
	}
	return derived[:keySize], derived[keySize : keySize+ivSize]
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty plaintext")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
