package types

import (
	"context"
	"errors"
)

// ErrorKind classifies every failure the payment core can report.
type ErrorKind string

const (
	KindProviderUnavailable ErrorKind = "PROVIDER_UNAVAILABLE"
	KindUserRejected        ErrorKind = "USER_REJECTED"
	KindNotConnected        ErrorKind = "NOT_CONNECTED"
	KindBusy                ErrorKind = "BUSY"
	KindInvalidAmount       ErrorKind = "INVALID_AMOUNT"
	KindInvalidRequest      ErrorKind = "INVALID_REQUEST"
	KindNetworkError        ErrorKind = "NETWORK_ERROR"
	KindSubmissionFailed    ErrorKind = "SUBMISSION_FAILED"
	KindConfirmationTimeout ErrorKind = "CONFIRMATION_TIMEOUT"
	KindOnChainFailure      ErrorKind = "ON_CHAIN_FAILURE"
	KindCancelled           ErrorKind = "CANCELLED"
)

// PaymentError carries a kind plus the provider's original error, if any.
type PaymentError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// Is matches any PaymentError of the same kind, so the sentinels below
// work with errors.Is.
func (e *PaymentError) Is(target error) bool {
	t, ok := target.(*PaymentError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Detail returns the preserved provider message when there is one.
func (e *PaymentError) Detail() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewPaymentError wraps err under the given kind.
func NewPaymentError(kind ErrorKind, message string, err error) *PaymentError {
	return &PaymentError{Kind: kind, Message: message, Err: err}
}

var (
	ErrProviderUnavailable = &PaymentError{Kind: KindProviderUnavailable, Message: "wallet provider unavailable"}
	ErrUserRejected        = &PaymentError{Kind: KindUserRejected, Message: "request rejected by user"}
	ErrNotConnected        = &PaymentError{Kind: KindNotConnected, Message: "wallet not connected"}
	ErrBusy                = &PaymentError{Kind: KindBusy, Message: "another operation is in progress"}
	ErrInvalidAmount       = &PaymentError{Kind: KindInvalidAmount, Message: "invalid amount"}
	ErrInvalidRequest      = &PaymentError{Kind: KindInvalidRequest, Message: "invalid payment request"}
	ErrNetworkError        = &PaymentError{Kind: KindNetworkError, Message: "network error"}
	ErrSubmissionFailed    = &PaymentError{Kind: KindSubmissionFailed, Message: "transaction submission failed"}
	ErrConfirmationTimeout = &PaymentError{Kind: KindConfirmationTimeout, Message: "confirmation timed out"}
	ErrOnChainFailure      = &PaymentError{Kind: KindOnChainFailure, Message: "transaction failed on chain"}
	ErrCancelled           = &PaymentError{Kind: KindCancelled, Message: "cancelled"}
)

// KindOf extracts the kind of err. Bare context errors are classified as
// cancellation or timeout; anything else unknown reports "".
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	switch {
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return KindConfirmationTimeout
	}
	return ""
}
