package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/tartampluch/hebday/internal/config"
	"golang.org/x/crypto/argon2"
)

const hashSeparator = "$"

// HashPassword returns a salted Argon2id hash encoded as "salt$hash".
func HashPassword(password string) (string, error) {
	salt := make([]byte, config.Argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrPasswordHash, err)
	}
	hash := argon2.IDKey([]byte(password), salt, config.Argon2Time, config.Argon2Memory, config.Argon2Threads, config.Argon2KeyLen)

	return base64.RawStdEncoding.EncodeToString(salt) + hashSeparator + base64.RawStdEncoding.EncodeToString(hash), nil
}

// VerifyPassword reports whether password matches an encoded hash. A
// malformed hash never matches.
func VerifyPassword(password, encoded string) bool {
	saltPart, hashPart, ok := strings.Cut(encoded, hashSeparator)
	if !ok {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(saltPart)
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(hashPart)
	if err != nil {
		return false
	}

	got := argon2.IDKey([]byte(password), salt, config.Argon2Time, config.Argon2Memory, config.Argon2Threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
