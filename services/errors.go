package services

import "fmt"

// Error taxonomy for the booking, payment and verification core. Services
// never touch HTTP; routes translate these to status codes.

// ValidationError: malformed input, rejected outright.
type ValidationError struct{ Msg string }

func (e ValidationError) Error() string { return e.Msg }

func Validationf(format string, a ...interface{}) error {
	return ValidationError{Msg: fmt.Sprintf(format, a...)}
}

// ForbiddenError: actor lacks role, ownership or verification.
type ForbiddenError struct{ Msg string }

func (e ForbiddenError) Error() string { return e.Msg }

func Forbiddenf(format string, a ...interface{}) error {
	return ForbiddenError{Msg: fmt.Sprintf(format, a...)}
}

// ConflictError: state-machine violation or no inventory.
type ConflictError struct{ Msg string }

func (e ConflictError) Error() string { return e.Msg }

func Conflictf(format string, a ...interface{}) error {
	return ConflictError{Msg: fmt.Sprintf(format, a...)}
}

// NotFoundError: referenced entity does not exist.
type NotFoundError struct{ Msg string }

func (e NotFoundError) Error() string { return e.Msg }

func NotFoundf(format string, a ...interface{}) error {
	return NotFoundError{Msg: fmt.Sprintf(format, a...)}
}

// PaymentGatewayError: upstream gateway failure. The caller may retry with
// backoff; the core never auto-retries money-moving calls.
type PaymentGatewayError struct {
	Msg string
	Err error
}

func (e PaymentGatewayError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e PaymentGatewayError) Unwrap() error { return e.Err }

// FraudSignal: amount mismatch or duplicate identity. Always surfaced for
// manual review, never silently resolved.
type FraudSignal struct {
	Msg       string
	Reference string
}

func (e FraudSignal) Error() string {
	return fmt.Sprintf("fraud signal (ref %s): %s", e.Reference, e.Msg)
}
