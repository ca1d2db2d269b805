package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error so callers can render a message without
// parsing error text.
type Kind string

const (
	KindInvalidRange      Kind = "InvalidRange"
	KindOutOfWorkingHours Kind = "OutOfWorkingHours"
	KindSlotOverlap       Kind = "SlotOverlap"
	KindSlotFull          Kind = "SlotFull"
	KindAlreadyAssigned   Kind = "AlreadyAssigned"
	KindSameSlot          Kind = "SameSlot"
	KindSameConsultant    Kind = "SameConsultant"
	KindInvalidState      Kind = "InvalidState"
	KindTerminalState     Kind = "TerminalState"
	KindMissingResult     Kind = "MissingResult"
	KindNotFound          Kind = "NotFound"
	KindValidation        Kind = "Validation"
	KindPastDate          Kind = "PastDate"
	KindConflict          Kind = "Conflict"
	KindPaymentFailed     Kind = "PaymentFailed"
	KindInternal          Kind = "Internal"
)

// AppError represents an application error
type AppError struct {
	Kind    Kind                   `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError of the same kind, so errors.Is(err, errors.ErrSlotFull) works
// regardless of message and details.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// StatusCode maps the error kind onto an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindInvalidRange, KindPastDate, KindSameSlot, KindSameConsultant:
		return http.StatusBadRequest
	case KindOutOfWorkingHours, KindInvalidState, KindTerminalState, KindMissingResult:
		return http.StatusUnprocessableEntity
	case KindSlotOverlap, KindSlotFull, KindAlreadyAssigned, KindConflict:
		return http.StatusConflict
	case KindPaymentFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WithDetail returns the error with an extra detail attached.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidRange      = &AppError{Kind: KindInvalidRange}
	ErrOutOfWorkingHours = &AppError{Kind: KindOutOfWorkingHours}
	ErrSlotOverlap       = &AppError{Kind: KindSlotOverlap}
	ErrSlotFull          = &AppError{Kind: KindSlotFull}
	ErrAlreadyAssigned   = &AppError{Kind: KindAlreadyAssigned}
	ErrSameSlot          = &AppError{Kind: KindSameSlot}
	ErrSameConsultant    = &AppError{Kind: KindSameConsultant}
	ErrInvalidState      = &AppError{Kind: KindInvalidState}
	ErrTerminalState     = &AppError{Kind: KindTerminalState}
	ErrMissingResult     = &AppError{Kind: KindMissingResult}
	ErrNotFound          = &AppError{Kind: KindNotFound}
	ErrValidation        = &AppError{Kind: KindValidation}
	ErrPastDate          = &AppError{Kind: KindPastDate}
	ErrConflict          = &AppError{Kind: KindConflict}
	ErrPaymentFailed     = &AppError{Kind: KindPaymentFailed}
)

// New creates an error of the given kind.
func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// Error constructors
func NotFound(resource string, err error) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func Validation(message string, err error) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Message: message,
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Kind:    KindInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// KindOf reports the kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// As is errors.As from the standard library, re-exported so callers importing this
// package under the name errors keep access to it.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Is is errors.Is from the standard library.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}
