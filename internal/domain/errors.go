package domain

import "errors"

var (
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrReviewSubmitted = errors.New("review already submitted")
)

// UserError is an error whose message is meant to be shown as is.
type UserError struct {
	Message string
	Err     error
}

func NewUserError(message string, err error) *UserError {
	return &UserError{Message: message, Err: err}
}

func (e *UserError) Error() string {
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// PaymentError is an error reported by the payment processor, such as a declined card.
type PaymentError struct {
	Code    string
	Message string
}

func (e *PaymentError) Error() string {
	return e.Message
}
