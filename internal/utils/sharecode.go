package utils

import (
	"strings"

	"github.com/google/uuid"
)

// ShareCodeLen is the length of every code returned by NewShareCode.
const ShareCodeLen = 32

// NewShareCode returns an unguessable public code: a random (v4) UUID in
// lowercase hex without dashes.
func NewShareCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// IsShareCode reports whether s has the shape produced by NewShareCode.
// Handlers use it to reject garbage before touching the database.
func IsShareCode(s string) bool {
	if len(s) != ShareCodeLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
