package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Use errors.Is against these; BookingError unwraps to one of them.
var (
	ErrInvalidCode           = errors.New("invalid verification code")
	ErrMismatchAfterVerified = errors.New("code does not match an already verified checkpoint")
	ErrPreconditionFailed    = errors.New("precondition failed")
	ErrInvalidReading        = errors.New("invalid meter reading")
	ErrOverpaymentRejected   = errors.New("payment exceeds billed total")
	ErrBusy                  = errors.New("booking is busy, retry later")
	ErrNotFound              = errors.New("not found")
	ErrInvalidInput          = errors.New("invalid input")
)

// BookingError carries the context of a rejected operation
type BookingError struct {
	Kind      error
	BookingID string
	Status    BookingStatus
	Field     string
	Value     interface{}
	Message   string
}

func (e *BookingError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.BookingID != "" {
		fmt.Fprintf(&b, " (booking=%s", e.BookingID)
		if e.Status != "" {
			fmt.Fprintf(&b, " status=%s", e.Status)
		}
		b.WriteString(")")
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " [%s=%v]", e.Field, e.Value)
	}
	return b.String()
}

func (e *BookingError) Unwrap() error {
	return e.Kind
}

// Retryable reports whether the caller may retry the same request.
func Retryable(err error) bool {
	return errors.Is(err, ErrBusy)
}

// NewBookingError builds an error for booking b. b may be nil.
func NewBookingError(kind error, b *Booking, message string) *BookingError {
	e := &BookingError{Kind: kind, Message: message}
	if b != nil {
		e.BookingID = b.ID
		e.Status = b.Status
	}
	return e
}

// WithValue attaches the offending field and value.
func (e *BookingError) WithValue(field string, value interface{}) *BookingError {
	e.Field = field
	e.Value = value
	return e
}

// InvalidInput is a shorthand for boundary validation failures.
func InvalidInput(field string, value interface{}, message string) *BookingError {
	return &BookingError{Kind: ErrInvalidInput, Field: field, Value: value, Message: message}
}

// AsBookingError extracts a *BookingError from err's chain.
func AsBookingError(err error) (*BookingError, bool) {
	var be *BookingError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// Code returns a stable machine-readable name for err's kind.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCode):
		return "INVALID_CODE"
	case errors.Is(err, ErrMismatchAfterVerified):
		return "MISMATCH_AFTER_VERIFIED"
	case errors.Is(err, ErrPreconditionFailed):
		return "PRECONDITION_FAILED"
	case errors.Is(err, ErrInvalidReading):
		return "INVALID_READING"
	case errors.Is(err, ErrOverpaymentRejected):
		return "OVERPAYMENT_REJECTED"
	case errors.Is(err, ErrBusy):
		return "BUSY"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	default:
		return "INTERNAL"
	}
}
