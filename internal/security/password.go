package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2 configuration parameters (recommended by OWASP)
const (
	DefaultMemory      = 64 * 1024 // 64 MB
	DefaultIterations  = 3         // Number of iterations
	DefaultParallelism = 2         // Number of threads
	DefaultSaltLength  = 16        // Salt length in bytes
	DefaultKeyLength   = 32        // Hash length in bytes
)

// SessionTokenBytes is the entropy of a session token; hex-encoded
// tokens are twice this many characters.
const SessionTokenBytes = 16

var (
	ErrInvalidHash      = errors.New("invalid hash format")
	ErrWeakPassword     = errors.New("password does not meet strength requirements")
	ErrIncompatibleHash = errors.New("incompatible hash version")
)

// PasswordHasher provides password hashing functionality using Argon2id
type PasswordHasher struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	saltLength  uint32
	keyLength   uint32
}

// NewPasswordHasher creates a new password hasher with default Argon2id settings
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{
		memory:      DefaultMemory,
		iterations:  DefaultIterations,
		parallelism: DefaultParallelism,
		saltLength:  DefaultSaltLength,
		keyLength:   DefaultKeyLength,
	}
}

// Hash generates an Argon2id hash for the given password
// Returns hash in format: $argon2id$v=19$m=65536,t=3,p=2$<salt>$<hash>
func (ph *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, ph.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, ph.iterations, ph.memory, ph.parallelism, ph.keyLength)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	encodedHash := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, ph.memory, ph.iterations, ph.parallelism, b64Salt, b64Hash)

	return encodedHash, nil
}

// Verify checks if the password matches the hash
func (ph *PasswordHasher) Verify(password, encodedHash string) (bool, error) {
	params, salt, hash, err := ph.decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	otherHash := argon2.IDKey([]byte(password), salt, params.iterations, params.memory, params.parallelism, params.keyLength)

	// Constant-time comparison to prevent timing attacks
	if subtle.ConstantTimeCompare(hash, otherHash) == 1 {
		return true, nil
	}

	return false, nil
}

// hashParams holds the parameters used for hashing
type hashParams struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	saltLength  uint32
	keyLength   uint32
}

// decodeHash extracts parameters, salt, and hash from encoded string
func (ph *PasswordHasher) decodeHash(encodedHash string) (*hashParams, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return nil, nil, nil, ErrInvalidHash
	}

	if parts[1] != "argon2id" {
		return nil, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid version: %w", err)
	}

	if version != argon2.Version {
		return nil, nil, nil, ErrIncompatibleHash
	}

	params := &hashParams{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.iterations, &params.parallelism); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid salt: %w", err)
	}
	params.saltLength = uint32(len(salt))

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid hash: %w", err)
	}
	params.keyLength = uint32(len(hash))

	return params, salt, hash, nil
}

// GenerateSessionToken returns a random hex token suitable for use
// as a bearer credential.
func GenerateSessionToken() (string, error) {
	buf := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// CheckPasswordLength validates the minimum password length
func CheckPasswordLength(password string, minLength int) error {
	if len(password) < minLength {
		return fmt.Errorf("%w: minimum length is %d", ErrWeakPassword, minLength)
	}
	return nil
}

// HashPassword is a convenience function for hashing passwords
func HashPassword(password string) (string, error) {
	hasher := NewPasswordHasher()
	return hasher.Hash(password)
}

// VerifyPassword is a convenience function for verifying passwords
func VerifyPassword(password, hash string) (bool, error) {
	hasher := NewPasswordHasher()
	return hasher.Verify(password, hash)
}
