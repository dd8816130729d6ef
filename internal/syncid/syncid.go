// Package syncid generates and validates sync identifiers: the universal,
// immutable identity of a document across the local store, the remote
// document store and the object store. A sync identifier is a lower-case
// canonical UUID v4 string, decoupled from any local auto-increment key or
// remote-assigned key.
package syncid

import (
	"strings"

	"github.com/google/uuid"
)

// Generate returns a freshly generated sync identifier. The result is
// already in canonical lower-case form.
func Generate() string {
	return uuid.NewString()
}

// IsValid reports whether s is a canonical UUID v4 in its 36-character
// hyphenated form. Other UUID representations (braced, URN, raw hex) and
// other UUID versions are rejected.
func IsValid(s string) bool {
	if len(s) != 36 {
		return false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return id.Version() == 4 && id.Variant() == uuid.RFC4122
}

// Normalize lower-cases s for comparison. Two representations of the same
// identifier always compare equal after normalization.
func Normalize(s string) string {
	return strings.ToLower(s)
}

// Equal compares two identifiers after normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
