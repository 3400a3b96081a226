package gated

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	constant "github.com/LerianStudio/lib-gated/gated/constants"
)

// ErrInvalidIdentity is returned by ParseIdentity for malformed identities.
var ErrInvalidIdentity = errors.New("invalid identity")

// Identity is an opaque participant reference such as an account address.
// The gateway compares identities but never interprets them.
type Identity string

// String implements fmt.Stringer.
func (id Identity) String() string {
	return string(id)
}

// IsZero reports whether id is empty.
func (id Identity) IsZero() bool {
	return id == ""
}

// ParseIdentity trims s and validates it as an Identity.
func ParseIdentity(s string) (Identity, error) {
	trimmed := strings.TrimSpace(s)

	switch {
	case trimmed == "":
		return "", fmt.Errorf("%w: empty", ErrInvalidIdentity)
	case len(trimmed) > constant.MaxIdentityLength:
		return "", fmt.Errorf("%w: longer than %d bytes", ErrInvalidIdentity, constant.MaxIdentityLength)
	case strings.IndexFunc(trimmed, unicode.IsControl) >= 0:
		return "", fmt.Errorf("%w: contains control characters", ErrInvalidIdentity)
	}

	return Identity(trimmed), nil
}

// MustParseIdentity is ParseIdentity for literals; it panics on error.
func MustParseIdentity(s string) Identity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(err)
	}

	return id
}
