package model

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable, machine-readable class of a failure.
type ErrorKind string

const (
	KindNone                 ErrorKind = ""
	KindMissingField         ErrorKind = "MISSING_FIELD"
	KindBelowMinimumQuantity ErrorKind = "BELOW_MINIMUM_QUANTITY"
	KindBelowMinimumNotional ErrorKind = "BELOW_MINIMUM_NOTIONAL"
	KindInvalidPrice         ErrorKind = "INVALID_PRICE"
	KindSymbolNotFound       ErrorKind = "SYMBOL_NOT_FOUND"
	KindNetwork              ErrorKind = "NETWORK"
	KindAuth                 ErrorKind = "AUTH"
	KindExchangeRejected     ErrorKind = "EXCHANGE_REJECTED"
	KindInternal             ErrorKind = "INTERNAL"
)

var (
	ErrMissingField         = errors.New("missing field")
	ErrBelowMinimumQuantity = errors.New("below minimum quantity")
	ErrBelowMinimumNotional = errors.New("below minimum notional")
	ErrInvalidPrice         = errors.New("invalid price")

	// ErrDuplicateClientOrderID means an order with the same client order
	// id already exists on the exchange.
	ErrDuplicateClientOrderID = errors.New("duplicate client order id")
	ErrOrderNotFound          = errors.New("order not found")
)

// ValidationError is a client-side rejection produced before anything is sent.
type ValidationError struct {
	Kind   ErrorKind
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	switch e.Kind {
	case KindMissingField:
		return ErrMissingField
	case KindBelowMinimumQuantity:
		return ErrBelowMinimumQuantity
	case KindBelowMinimumNotional:
		return ErrBelowMinimumNotional
	case KindInvalidPrice:
		return ErrInvalidPrice
	}
	return nil
}

func NewValidationError(kind ErrorKind, field, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// SymbolNotFoundError means the symbol is unknown or no longer trading.
type SymbolNotFoundError struct {
	Symbol string
}

func (e *SymbolNotFoundError) Error() string {
	return "symbol not found in futures exchange info: " + e.Symbol
}

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError represents a transport or timeout failure talking to the exchange
type NetworkError struct {
	Op        string // Gateway operation (e.g. "server_time", "place_order")
	Err       error
	Retriable bool
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// AuthError is an invalid key, signature, IP or missing permission.
type AuthError struct {
	Code    int64
	Message string
	Hint    string
}

func (e *AuthError) Error() string {
	return formatExchangeError(e.Code, e.Message, e.Hint)
}

// ExchangeRejectedError carries the venue's code and message verbatim.
// Cause is set when the gateway recognizes the code.
type ExchangeRejectedError struct {
	Code    int64
	Message string
	Hint    string
	Cause   error
}

func (e *ExchangeRejectedError) Error() string {
	return formatExchangeError(e.Code, e.Message, e.Hint)
}

func (e *ExchangeRejectedError) Unwrap() error {
	return e.Cause
}

func formatExchangeError(code int64, msg, hint string) string {
	if hint == "" {
		return fmt.Sprintf("%d: %s", code, msg)
	}
	return fmt.Sprintf("%d: %s (%s)", code, msg, hint)
}

// KindOf classifies any error returned by the core or the gateway.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var (
		validation *ValidationError
		notFound   *SymbolNotFoundError
		network    *NetworkError
		auth       *AuthError
		rejected   *ExchangeRejectedError
	)
	switch {
	case errors.As(err, &validation):
		return validation.Kind
	case errors.As(err, &notFound):
		return KindSymbolNotFound
	case errors.As(err, &auth):
		return KindAuth
	case errors.As(err, &rejected):
		return KindExchangeRejected
	case errors.As(err, &network):
		return KindNetwork
	}
	return KindInternal
}

// RejectionFrom converts an error into the rejection shown to the operator.
func RejectionFrom(err error) *Rejection {
	if err == nil {
		return nil
	}

	r := &Rejection{Kind: KindOf(err), Message: err.Error()}

	var auth *AuthError
	var rejected *ExchangeRejectedError
	if errors.As(err, &auth) {
		r.Code, r.Message, r.Hint = auth.Code, auth.Message, auth.Hint
	} else if errors.As(err, &rejected) {
		r.Code, r.Message, r.Hint = rejected.Code, rejected.Message, rejected.Hint
	}
	return r
}

// IsValidationKind reports kinds that are never retried and never reach the exchange.
func IsValidationKind(kind ErrorKind) bool {
	switch kind {
	case KindMissingField, KindBelowMinimumQuantity, KindBelowMinimumNotional, KindInvalidPrice, KindSymbolNotFound:
		return true
	}
	return false
}
