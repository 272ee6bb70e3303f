// Package auth hashes and verifies user passwords.
//
// The original server (storage.c: generate_random_salt + crypt()) hashed
// passwords with glibc's SHA-512-crypt and a 16-character random salt.
// This package keeps the same shape — random per-user salt, slow KDF,
// constant-time comparison — but uses golang.org/x/crypto/pbkdf2 in place
// of crypt(), since pbkdf2 is already part of the teacher's dependency
// stack and crypt() has no portable Go equivalent.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/duskrelay/chatserver/errors"
	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	keySize    = 32
	iterations = 100000
)

// HashPassword derives a salted hash suitable for storage in the
// password_hash column. The encoding is "hex(salt):hex(derived key)" so
// the iteration count stays fixed and VerifyPassword doesn't need a
// separate schema version.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(err, "auth: generate salt")
	}
	derived := pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(derived), nil
}

// VerifyPassword reports whether password matches a hash produced by
// HashPassword, using a constant-time comparison of the derived keys.
func VerifyPassword(password, stored string) bool {
	sep := -1
	for i := 0; i < len(stored); i++ {
		if stored[i] == ':' {
			sep = i
			break
		}
	}
	if sep < 0 {
		return false
	}
	salt, err := hex.DecodeString(stored[:sep])
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(stored[sep+1:])
	if err != nil {
		return false
	}
	got := pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
