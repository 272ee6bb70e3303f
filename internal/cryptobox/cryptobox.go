// Package cryptobox encrypts message bodies at rest with AES-256-CBC,
// deriving the key by hashing an operator-supplied passphrase. This
// mirrors crypto_encrypt/crypto_decrypt in the original implementation
// (src/common/crypto.c), which used OpenSSL's EVP_aes_256_cbc over a
// SHA-256-derived key and stored hex(IV) || hex(ciphertext). No
// third-party library in the example pack implements CBC specifically
// (the one AES example, a secure-storage helper, uses GCM), so this
// package is built directly on crypto/aes and crypto/cipher; see
// DESIGN.md for the full justification.
package cryptobox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/duskrelay/chatserver/errors"
)

// Placeholder is substituted for any message whose ciphertext fails to
// decrypt, so a single corrupted or mis-keyed row never aborts history
// rendering for the rest of a conversation.
const Placeholder = "[Unreadable Encrypted Message]"

const ivSize = aes.BlockSize // 16

// Box encrypts and decrypts message text with a single fixed key derived
// from a passphrase at construction time.
type Box struct {
	key [32]byte
}

// New derives a 32-byte AES-256 key by hashing passphrase with SHA-256,
// exactly as crypto_init did.
func New(passphrase string) *Box {
	return &Box{key: sha256.Sum256([]byte(passphrase))}
}

// Encrypt returns hex(IV) || hex(ciphertext) for plaintext, using a fresh
// random IV for every call.
func (b *Box) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(b.key[:])
	if err != nil {
		return "", errors.Wrap(err, "cryptobox: new cipher")
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", errors.Wrap(err, "cryptobox: generate iv")
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	out := make([]byte, 0, hex.EncodedLen(ivSize)+hex.EncodedLen(len(ciphertext)))
	out = append(out, []byte(hex.EncodeToString(iv))...)
	out = append(out, []byte(hex.EncodeToString(ciphertext))...)
	return string(out), nil
}

// Decrypt reverses Encrypt. Any failure — malformed hex, wrong key,
// corrupted ciphertext, bad padding — yields Placeholder rather than an
// error, matching crypto_decrypt's "never crash the caller"
// contract; history rendering depends on this.
func (b *Box) Decrypt(stored string) string {
	if len(stored) < ivSize*2 {
		return Placeholder
	}

	ivHex, ctHex := stored[:ivSize*2], stored[ivSize*2:]
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return Placeholder
	}
	ciphertext, err := hex.DecodeString(ctHex)
	if err != nil {
		return Placeholder
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return Placeholder
	}

	block, err := aes.NewCipher(b.key[:])
	if err != nil {
		return Placeholder
	}

	plain := make([]byte, len(ciphertext))
	func() {
		defer func() { recover() }() // CryptBlocks panics on malformed input sizes
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)
	}()

	unpadded, err := pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return Placeholder
	}
	return string(unpadded)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(data, padding...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	n := len(data)
	if n == 0 || n%blockSize != 0 {
		return nil, errors.New("cryptobox: invalid padded length %d", n)
	}
	padLen := int(data[n-1])
	if padLen == 0 || padLen > blockSize || padLen > n {
		return nil, errors.New("cryptobox: invalid padding byte %d", padLen)
	}
	for _, b := range data[n-padLen:] {
		if int(b) != padLen {
			return nil, errors.New("cryptobox: inconsistent padding")
		}
	}
	return data[:n-padLen], nil
}
