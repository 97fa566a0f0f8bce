package signing

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// saltLength is the number of random bytes mixed into each checksum.
const saltLength = 3

const (
	aes128KeyLength = 16
	aes192KeyLength = 24
	aes256KeyLength = 32
)

// NewSalt returns a fresh random salt for one checksum computation.
func NewSalt() ([]byte, error) {
	return RandomBytes(saltLength)
}

// SaltedChecksum computes the symmetric-cipher signature family:
// SHA-256 over "payload|base64(salt)", the hex digest concatenated with the
// base64 salt, then AES-CBC encrypted under key with iv and PKCS#7 padding,
// returned base64-encoded. The key length selects AES-128/192/256; other
// lengths are zero-padded or truncated to 32 bytes. The IV is fixed per
// connector and part of its wire contract.
func SaltedChecksum(payload string, key []byte, iv []byte, salt []byte) (string, error) {
	if len(salt) != saltLength {
		return "", fmt.Errorf("salt must be %d bytes, got %d", saltLength, len(salt))
	}
	saltB64 := base64.StdEncoding.EncodeToString(salt)
	digest := sha256.Sum256([]byte(payload + "|" + saltB64))
	checksum := hex.EncodeToString(digest[:]) + saltB64
	return EncryptAESCBC([]byte(checksum), key, iv)
}

// EncryptAESCBC encrypts plaintext with AES-CBC and PKCS#7 padding and
// returns the base64 ciphertext.
func EncryptAESCBC(plaintext, key, iv []byte) (string, error) {
	block, err := aes.NewCipher(normalizeKey(key))
	if err != nil {
		return "", fmt.Errorf("building cipher: %w", err)
	}
	if len(iv) != block.BlockSize() {
		return "", fmt.Errorf("iv must be %d bytes, got %d", block.BlockSize(), len(iv))
	}
	padded := padPKCS7(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out), nil
}

// DecryptAESCBC reverses EncryptAESCBC; used by tests and by connectors
// that receive encrypted callbacks.
func DecryptAESCBC(ciphertextB64 string, key, iv []byte) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, fmt.Errorf("decoding ciphertext: %w", err)
	}
	block, err := aes.NewCipher(normalizeKey(key))
	if err != nil {
		return nil, fmt.Errorf("building cipher: %w", err)
	}
	if len(raw) == 0 || len(raw)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a multiple of the block size", len(raw))
	}
	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, raw)
	return unpadPKCS7(out, block.BlockSize())
}

// normalizeKey maps the key length onto a cipher variant: 16, 24 and 32
// byte keys select AES-128/192/256 directly; anything else is coerced to a
// 32-byte key (zero-padded or truncated) the way the processors that use
// this scheme expect.
func normalizeKey(key []byte) []byte {
	switch len(key) {
	case aes128KeyLength, aes192KeyLength, aes256KeyLength:
		return key
	}
	out := make([]byte, aes256KeyLength)
	copy(out, key)
	return out
}

func padPKCS7(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func unpadPKCS7(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty plaintext")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
