package apperrors

import (
	"errors"
	"net/http"
)

// Sentinel errors for the booking/payment core. Services return these (usually
// wrapped with %w plus context); controllers map them to HTTP codes with HTTPStatus.
var (
	ErrValidation             = errors.New("validation error")
	ErrNotFound               = errors.New("not found")
	ErrInsufficientSeats      = errors.New("insufficient seats available")
	ErrAlreadyCancelled       = errors.New("booking already cancelled")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrGatewayUnavailable     = errors.New("payment gateway unavailable")
	ErrGatewayTimeout         = errors.New("payment gateway timeout")
	ErrGatewayRejected        = errors.New("payment gateway rejected request")
	ErrUnknownReference       = errors.New("unknown transaction reference")
	ErrSignatureInvalid       = errors.New("webhook signature invalid")
)

// HTTPStatus maps a core error to an HTTP status code.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrSignatureInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownReference):
		return http.StatusNotFound
	case errors.Is(err, ErrInsufficientSeats):
		return http.StatusConflict
	case errors.Is(err, ErrAlreadyCancelled), errors.Is(err, ErrInvalidStateTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrGatewayTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrGatewayUnavailable), errors.Is(err, ErrGatewayRejected):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryable reports whether the caller may safely retry the operation.
// A gateway timeout never corrupts local state, so it is always retryable.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrGatewayTimeout) || errors.Is(err, ErrGatewayUnavailable)
}
