package password

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

// Scheme is a secret hashing scheme understood by the authorization server
type Scheme string

const (
	SchemePBKDF2 Scheme = "pbkdf2"
	SchemeBcrypt Scheme = "bcrypt"
)

const (
	pbkdf2Iterations = 25000
	pbkdf2KeyLength  = 32
	pbkdf2SaltLength = 16
	bcryptCost       = 12

	maxEchoLength = 20
)

var (
	ErrEmptyHash         = errors.New("client_secret_hash is required")
	ErrInvalidHashFormat = errors.New("invalid hash format")
	ErrUnknownScheme     = errors.New("unknown hasher algorithm")
)

var digests = map[string]func() hash.Hash{
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha512": sha512.New,
}

// ParseScheme maps a configured algorithm name to a Scheme
func ParseScheme(name string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pbkdf2", "scheme-a":
		return SchemePBKDF2, nil
	case "bcrypt", "scheme-b":
		return SchemeBcrypt, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownScheme, name)
	}
}

// Validate checks that candidate is a well-formed hash of the given scheme.
// It never checks a plaintext against the hash.
func Validate(candidate string, scheme Scheme) error {
	if candidate == "" {
		return ErrEmptyHash
	}

	switch scheme {
	case SchemePBKDF2:
		if !isPBKDF2(candidate) {
			return fmt.Errorf("%w: expected PBKDF2 hash format ($pbkdf2-sha...), got: %s", ErrInvalidHashFormat, DetectFormat(candidate))
		}
		if err := parsePBKDF2(candidate); err != nil {
			return fmt.Errorf("%w: malformed PBKDF2 hash: %v", ErrInvalidHashFormat, err)
		}
	case SchemeBcrypt:
		if !isBcrypt(candidate) {
			return fmt.Errorf("%w: expected BCrypt hash format ($2a$...), got: %s", ErrInvalidHashFormat, DetectFormat(candidate))
		}
		if _, err := bcrypt.Cost([]byte(candidate)); err != nil {
			return fmt.Errorf("%w: malformed BCrypt hash: %v", ErrInvalidHashFormat, err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownScheme, string(scheme))
	}
	return nil
}

// DetectFormat describes the format of a hash for error messages. Long
// input is truncated.
func DetectFormat(candidate string) string {
	switch {
	case isPBKDF2(candidate):
		return "PBKDF2"
	case isBcrypt(candidate):
		return "BCrypt"
	case len(candidate) > maxEchoLength:
		return fmt.Sprintf("unknown (starts with: %s...)", candidate[:maxEchoLength])
	default:
		return fmt.Sprintf("unknown (%s)", candidate)
	}
}

// Hash hashes a plaintext secret in the scheme's format
func Hash(plaintext string, scheme Scheme) (string, error) {
	switch scheme {
	case SchemePBKDF2:
		salt := make([]byte, pbkdf2SaltLength)
		if _, err := rand.Read(salt); err != nil {
			return "", err
		}
		key := pbkdf2.Key([]byte(plaintext), salt, pbkdf2Iterations, pbkdf2KeyLength, sha256.New)
		return fmt.Sprintf("$pbkdf2-sha256$i=%d,l=%d$%s$%s",
			pbkdf2Iterations,
			pbkdf2KeyLength,
			base64.RawStdEncoding.EncodeToString(salt),
			base64.RawStdEncoding.EncodeToString(key),
		), nil
	case SchemeBcrypt:
		hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
		if err != nil {
			return "", err
		}
		return string(hashed), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownScheme, string(scheme))
	}
}

func isPBKDF2(candidate string) bool {
	return strings.HasPrefix(candidate, "$pbkdf2-sha")
}

func isBcrypt(candidate string) bool {
	return strings.HasPrefix(candidate, "$2a$") ||
		strings.HasPrefix(candidate, "$2b$") ||
		strings.HasPrefix(candidate, "$2y$")
}

// parsePBKDF2 checks $pbkdf2-<digest>$i=<iter>,l=<keylen>$<salt>$<key>
func parsePBKDF2(candidate string) error {
	parts := strings.Split(candidate, "$")
	if len(parts) != 5 {
		return fmt.Errorf("expected 5 parts, got %d", len(parts))
	}

	digest := strings.TrimPrefix(parts[1], "pbkdf2-")
	if _, ok := digests[digest]; !ok {
		return fmt.Errorf("unsupported digest %q", digest)
	}

	var iterations, keyLength int
	for _, param := range strings.Split(parts[2], ",") {
		name, value, found := strings.Cut(param, "=")
		if !found {
			return fmt.Errorf("malformed parameter %q", param)
		}
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("parameter %s must be a positive integer", name)
		}
		switch name {
		case "i":
			iterations = n
		case "l":
			keyLength = n
		}
	}
	if iterations == 0 || keyLength == 0 {
		return errors.New("missing i or l parameter")
	}

	for i, segment := range parts[3:] {
		if segment == "" {
			return fmt.Errorf("empty segment %d", i+3)
		}
		if _, err := decodeB64(segment); err != nil {
			return fmt.Errorf("segment %d is not base64: %w", i+3, err)
		}
	}
	return nil
}

func decodeB64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}
