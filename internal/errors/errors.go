package errors

import (
	"errors"
	"fmt"
)

// Domain errors for the ledger
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInvalidAccountID    = errors.New("invalid account ID")
	ErrInvalidAmount       = errors.New("amount must be a positive finite number")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrSameAccount         = errors.New("source and destination accounts cannot be the same")
	ErrUnknownDenomination = errors.New("no rate supplied for denomination")
	ErrUnsupportedExchange = errors.New("exchange must be between the home currency and one other denomination")
	ErrInvalidRate         = errors.New("rate must be positive")
	ErrRatesUnavailable    = errors.New("exchange rates unavailable")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// OperationError annotates a failure with the ledger operation that produced it.
type OperationError struct {
	Operation string
	Cause     error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

func NewOperationError(operation string, cause error) error {
	if cause == nil {
		return nil
	}
	return &OperationError{
		Operation: operation,
		Cause:     cause,
	}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

func IsUnknownDenomination(err error) bool {
	return errors.Is(err, ErrUnknownDenomination)
}

// Classify maps an error to a short, stable label used for metrics.
func Classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrSameAccount):
		return "same_account"
	case errors.Is(err, ErrUnknownDenomination):
		return "unknown_denomination"
	case errors.Is(err, ErrUnsupportedExchange):
		return "unsupported_exchange"
	case errors.Is(err, ErrInvalidRate):
		return "invalid_rate"
	case errors.Is(err, ErrRatesUnavailable):
		return "rates_unavailable"
	case errors.Is(err, ErrInvalidAccountID), IsValidationError(err):
		return "validation"
	default:
		return "internal"
	}
}
