package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	validPBKDF2 = "$pbkdf2-sha256$i=25000,l=32$c2FsdHNhbHRzYWx0c2FsdA$Zm9vYmFyZm9vYmFyZm9vYmFyZm9vYmFyZm9vYmFyMTI"
	validBcrypt = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
)

func TestParseScheme(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Scheme
		wantErr bool
	}{
		{name: "pbkdf2", input: "pbkdf2", want: SchemePBKDF2},
		{name: "scheme-a alias", input: "scheme-a", want: SchemePBKDF2},
		{name: "bcrypt", input: "bcrypt", want: SchemeBcrypt},
		{name: "scheme-b alias", input: "scheme-b", want: SchemeBcrypt},
		{name: "case and spaces", input: " BCrypt ", want: SchemeBcrypt},
		{name: "unknown", input: "argon2", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScheme(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownScheme)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		scheme    Scheme
		wantErr   error
		errSubstr string
	}{
		{name: "valid pbkdf2", candidate: validPBKDF2, scheme: SchemePBKDF2},
		{name: "valid pbkdf2 sha512", candidate: "$pbkdf2-sha512$i=1000,l=64$c2FsdA$a2V5", scheme: SchemePBKDF2},
		{name: "valid bcrypt", candidate: validBcrypt, scheme: SchemeBcrypt},
		{name: "valid bcrypt 2b", candidate: "$2b$" + validBcrypt[4:], scheme: SchemeBcrypt},
		{name: "empty", candidate: "", scheme: SchemePBKDF2, wantErr: ErrEmptyHash},
		{
			name:      "bcrypt under pbkdf2",
			candidate: validBcrypt,
			scheme:    SchemePBKDF2,
			wantErr:   ErrInvalidHashFormat,
			errSubstr: "got: BCrypt",
		},
		{
			name:      "pbkdf2 under bcrypt",
			candidate: validPBKDF2,
			scheme:    SchemeBcrypt,
			wantErr:   ErrInvalidHashFormat,
			errSubstr: "got: PBKDF2",
		},
		{
			name:      "plaintext under pbkdf2",
			candidate: "plaintext-secret",
			scheme:    SchemePBKDF2,
			wantErr:   ErrInvalidHashFormat,
			errSubstr: "unknown (plaintext-secret)",
		},
		{
			name:      "pbkdf2 missing segments",
			candidate: "$pbkdf2-sha256$i=1000,l=32$c2FsdA",
			scheme:    SchemePBKDF2,
			wantErr:   ErrInvalidHashFormat,
		},
		{
			name:      "pbkdf2 unknown digest",
			candidate: "$pbkdf2-sha384$i=1000,l=32$c2FsdA$a2V5",
			scheme:    SchemePBKDF2,
			wantErr:   ErrInvalidHashFormat,
		},
		{
			name:      "pbkdf2 bad parameters",
			candidate: "$pbkdf2-sha256$i=abc,l=32$c2FsdA$a2V5",
			scheme:    SchemePBKDF2,
			wantErr:   ErrInvalidHashFormat,
		},
		{
			name:      "pbkdf2 bad base64",
			candidate: "$pbkdf2-sha256$i=1000,l=32$not*base64$a2V5",
			scheme:    SchemePBKDF2,
			wantErr:   ErrInvalidHashFormat,
		},
		{
			name:      "truncated bcrypt",
			candidate: "$2a$10$short",
			scheme:    SchemeBcrypt,
			wantErr:   ErrInvalidHashFormat,
		},
		{name: "unknown scheme", candidate: validPBKDF2, scheme: Scheme("md5"), wantErr: ErrUnknownScheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.candidate, tt.scheme)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.errSubstr != "" {
				assert.Contains(t, err.Error(), tt.errSubstr)
			}
		})
	}
}

func TestDetectFormat_TruncatesLongInput(t *testing.T) {
	long := strings.Repeat("x", 64)

	got := DetectFormat(long)

	assert.Equal(t, "unknown (starts with: "+strings.Repeat("x", 20)+"...)", got)
	assert.NotContains(t, got, long)
}

func TestHash_RoundTripsThroughValidate(t *testing.T) {
	for _, scheme := range []Scheme{SchemePBKDF2, SchemeBcrypt} {
		t.Run(string(scheme), func(t *testing.T) {
			hashed, err := Hash("s3cret", scheme)
			require.NoError(t, err)
			assert.NotContains(t, hashed, "s3cret")
			assert.NoError(t, Validate(hashed, scheme))
		})
	}
}

func TestHash_PBKDF2UsesFreshSalt(t *testing.T) {
	first, err := Hash("s3cret", SchemePBKDF2)
	require.NoError(t, err)
	second, err := Hash("s3cret", SchemePBKDF2)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
