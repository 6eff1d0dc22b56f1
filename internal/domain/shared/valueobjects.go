package shared

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a fresh random identifier for users, tasks, badges and sessions.
func NewID() string {
	return uuid.NewString()
}

// ParseID normalizes and validates an identifier received from outside.
func ParseID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", WrapError("shared", "ParseID", ErrInvalidID, "malformed identifier", err)
	}
	return id.String(), nil
}
