package hasher

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/layer-3/tutti/core"
	"github.com/layer-3/tutti/ports"
	"golang.org/x/crypto/pbkdf2"
)

// Parameters are fixed so that every deployment can verify every stored credential.
const (
	Iterations = 100000
	KeyLength  = 64
	SaltLength = 16

	separator = ":"
)

// PBKDF2Hasher implements the PasswordHasher interface with PBKDF2-HMAC-SHA512
type PBKDF2Hasher struct{}

// NewPBKDF2Hasher creates a new PBKDF2 hasher
func NewPBKDF2Hasher() ports.PasswordHasher {
	return &PBKDF2Hasher{}
}

// Hash derives a credential using a fresh random salt
func (h *PBKDF2Hasher) Hash(password string) (string, error) {
	saltBytes := make([]byte, SaltLength)
	if _, err := rand.Read(saltBytes); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	return HashWithSalt(password, hex.EncodeToString(saltBytes)), nil
}

// Verify reports whether password matches the stored credential.
// Malformed credentials never verify.
func (h *PBKDF2Hasher) Verify(password, stored string) bool {
	salt, expected, err := ParseCredential(stored)
	if err != nil {
		return false
	}

	actual := derive(password, salt)
	return subtle.ConstantTimeCompare([]byte(actual), []byte(expected)) == 1
}

// HashWithSalt derives a credential from a caller supplied hex salt.
// The hex text itself is the KDF salt input.
func HashWithSalt(password, salt string) string {
	return salt + separator + derive(password, salt)
}

// ParseCredential splits a stored "<salt>:<hash>" credential
func ParseCredential(stored string) (salt, hash string, err error) {
	salt, hash, ok := strings.Cut(stored, separator)
	if !ok || salt == "" || hash == "" {
		return "", "", core.ErrInvalidCredentialFormat
	}
	return salt, hash, nil
}

func derive(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), Iterations, KeyLength, sha512.New)
	return hex.EncodeToString(key)
}
