package services

import "errors"

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrReceiptReviewed = errors.New("receipt was already reviewed")
)

// ValidationError carries a message that is safe to show to the customer.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
