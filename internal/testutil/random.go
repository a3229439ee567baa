package testutil

import (
	"fmt"

	"github.com/google/uuid"
)

// RandomSlug returns a unique slug with the given prefix.
func RandomSlug(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

// RandomEmail returns a unique email address with the given prefix.
func RandomEmail(prefix string) string {
	return fmt.Sprintf("%s-%s@example.com", prefix, uuid.NewString()[:8])
}
