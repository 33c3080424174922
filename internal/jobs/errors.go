package jobs

import (
	"errors"
	"fmt"
)

// ErrValidation matches every request rejected before any state changes
var ErrValidation = errors.New("validation failed")

// Rejection reasons, also used as metric labels
const (
	ReasonDateRange        = "date_range"
	ReasonDataAvailability = "data_availability"
	ReasonInvalidRequest   = "invalid_request"
)

// ValidationError describes why a submission or query was rejected
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Message)
}

// Is lets errors.Is(err, ErrValidation) match
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(reason, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}
