package pricing

import (
	"errors"
	"fmt"
)

var ErrUnknownZone = errors.New("unknown delivery zone")

// ValidationError reports a line item that must never reach pricing.
type ValidationError struct {
	ProductID int64
	Field     string
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid line item %d: %s %s", e.ProductID, e.Field, e.Message)
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
