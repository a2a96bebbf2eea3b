package models

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is wrapped by every error that must stop a session from starting
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ValidationError reports a rejected judgment mutation. The judgment is left untouched.
type ValidationError struct {
	ItemID ItemID
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s for item %d: %s", e.Field, e.ItemID, e.Reason)
}

// IsValidationError reports whether err carries a *ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
