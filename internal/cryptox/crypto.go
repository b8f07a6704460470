// Package cryptox hashes user passwords for the identity service.
package cryptox

import (
	"crypto/subtle"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	SaltSize = 16
	KeySize  = 32
)

// argon2id parameters
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

func NewSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}

func HashPassword(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, KeySize)
}

// VerifyPassword recomputes the hash of password and compares it with hash
// in constant time.
func VerifyPassword(hash, password, salt []byte) bool {
	return subtle.ConstantTimeCompare(HashPassword(password, salt), hash) == 1
}
