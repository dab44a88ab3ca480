package inventory

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// Kind classifies every failure the engine can return.
type Kind string

const (
	KindInsufficientStock  Kind = "InsufficientStock"
	KindNotFound           Kind = "NotFound"
	KindImmutableRecord    Kind = "ImmutableRecord"
	KindValidation         Kind = "ValidationError"
	KindInvariantViolation Kind = "InvariantViolation"
)

// Error is returned by every engine operation. The transaction that produced it
// has already been rolled back.
type Error struct {
	Kind      Kind            `json:"error"`
	Message   string          `json:"message"`
	Item      string          `json:"item,omitempty"`
	Requested decimal.Decimal `json:"requested"`
	Available decimal.Decimal `json:"available"`
	Err       error           `json:"-"`
}

// Sentinels for errors.Is; only the Kind is compared.
var (
	ErrInsufficientStock  = &Error{Kind: KindInsufficientStock}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrImmutableRecord    = &Error{Kind: KindImmutableRecord}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrInvariantViolation = &Error{Kind: KindInvariantViolation}
)

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Shortfall is how much more stock the request needed.
func (e *Error) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}

// HTTPStatus maps the kind onto the status the REST layer returns.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindInsufficientStock:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindImmutableRecord:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func InsufficientStock(item string, requested, available decimal.Decimal) *Error {
	return &Error{
		Kind:      KindInsufficientStock,
		Message:   fmt.Sprintf("insufficient stock for %s: need %s, have %s", item, requested.String(), available.String()),
		Item:      item,
		Requested: requested,
		Available: available,
	}
}

func NotFound(resource string, id uint) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s %d not found", resource, id),
		Item:    fmt.Sprintf("%s:%d", resource, id),
	}
}

func ImmutableRecord(format string, args ...any) *Error {
	return &Error{Kind: KindImmutableRecord, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func InvariantViolation(format string, args ...any) *Error {
	return &Error{Kind: KindInvariantViolation, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts the engine error from err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
