package account

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
)

// ErrUnknownHashType is returned when a stored hash has an unrecognized format.
var ErrUnknownHashType = errors.New("unknown hash type")

// argon2idParams defines OWASP minimum parameters for Argon2id.
var argon2idParams = &argon2id.Params{
	Memory:      47 * 1024, // 47 MiB (OWASP minimum: 46 MiB)
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashPassword returns a salted Argon2id hash of password in PHC format.
// Format: $argon2id$v=19$m=48128,t=1,p=1$<salt>$<hash>
func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, argon2idParams)
}

// DetectHashType identifies how a record stores its password:
// "argon2id" for a PHC hash, "plaintext" for a legacy record, "unknown" otherwise.
func DetectHashType(rec Record) string {
	if strings.HasPrefix(rec.PasswordHash, "$argon2id$") {
		return "argon2id"
	}
	if rec.PasswordHash == "" && rec.Password != "" {
		return "plaintext"
	}
	return "unknown"
}

// VerifyPassword checks password against rec.
// Returns (true, nil) on match, (false, nil) on mismatch and
// (false, ErrUnknownHashType) for records with no usable credential.
func VerifyPassword(rec Record, password string) (bool, error) {
	switch DetectHashType(rec) {
	case "argon2id":
		return safeArgon2idCompare(password, rec.PasswordHash)
	case "plaintext":
		return subtle.ConstantTimeCompare([]byte(password), []byte(rec.Password)) == 1, nil
	default:
		return false, ErrUnknownHashType
	}
}

// safeArgon2idCompare wraps argon2id.ComparePasswordAndHash with panic recovery.
// The argon2 library panics on hashes with invalid parameters (t=0, p=0).
func safeArgon2idCompare(password, hash string) (match bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			match = false
			err = fmt.Errorf("invalid argon2id hash parameters: %v", r)
		}
	}()
	return argon2id.ComparePasswordAndHash(password, hash)
}
