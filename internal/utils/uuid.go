package utils

import "github.com/google/uuid"

// IsUUID reports whether s parses as a UUID; path params are checked before
// they ever reach the store.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)

	return err == nil
}
