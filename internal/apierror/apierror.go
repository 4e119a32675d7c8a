// Package apierror provides standardized error response structures for the API
// and the domain error taxonomy shared by services and handlers.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail    string `json:"detail"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Code: string(CodeValidation), Fields: fields}
}

// ── Domain errors ─────────────────────────────────────────────────────────────

// Code identifies a domain failure kind independently of its message.
type Code string

const (
	CodeValidation          Code = "validation_error"
	CodeUnbalancedPayments  Code = "unbalanced_payments"
	CodeInsufficientStock   Code = "insufficient_stock"
	CodeSessionAlreadyOpen  Code = "session_already_open"
	CodeSessionNotOpen      Code = "session_not_open"
	CodeAlreadyCancelled    Code = "already_cancelled"
	CodeConcurrencyConflict Code = "concurrency_conflict"
	CodeNotFound            Code = "not_found"
)

// Error is a domain failure. Services return it (possibly wrapped) and handlers
// translate it to an HTTP status through its Code.
type Error struct {
	Code   Code
	Detail string
	Fields map[string]string
}

func (e *Error) Error() string { return e.Detail }

// Is matches by Code so callers can write errors.Is(err, apierror.ErrValidation).
// UnbalancedPayments is a kind of validation failure and matches both sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code == e.Code {
		return true
	}
	return t.Code == CodeValidation && e.Code == CodeUnbalancedPayments
}

// Retryable reports whether the whole operation may be safely retried.
func (e *Error) Retryable() bool { return e.Code == CodeConcurrencyConflict }

// Sentinels for errors.Is comparisons. Never return them directly with a
// custom message; use the constructors below.
var (
	ErrValidation          = &Error{Code: CodeValidation, Detail: "error de validación"}
	ErrUnbalancedPayments  = &Error{Code: CodeUnbalancedPayments, Detail: "los pagos no suman el total de la venta"}
	ErrInsufficientStock   = &Error{Code: CodeInsufficientStock, Detail: "stock insuficiente"}
	ErrSessionAlreadyOpen  = &Error{Code: CodeSessionAlreadyOpen, Detail: "ya existe una sesión abierta para esta caja"}
	ErrSessionNotOpen      = &Error{Code: CodeSessionNotOpen, Detail: "la sesión de caja no está abierta"}
	ErrAlreadyCancelled    = &Error{Code: CodeAlreadyCancelled, Detail: "la venta ya está anulada"}
	ErrConcurrencyConflict = &Error{Code: CodeConcurrencyConflict, Detail: "conflicto de concurrencia, reintente la operación"}
	ErrNotFound            = &Error{Code: CodeNotFound, Detail: "recurso no encontrado"}
)

// Validation builds a ValidationError with a formatted message.
func Validation(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Detail: fmt.Sprintf(format, args...)}
}

// ValidationField builds a ValidationError pointing at a single request field.
func ValidationField(field, format string, args ...any) *Error {
	return &Error{
		Code:   CodeValidation,
		Detail: fmt.Sprintf(format, args...),
		Fields: map[string]string{field: fmt.Sprintf(format, args...)},
	}
}

func UnbalancedPayments(total, pagado decimal.Decimal) *Error {
	return &Error{
		Code:   CodeUnbalancedPayments,
		Detail: fmt.Sprintf("los pagos (%s) no coinciden con el total de la venta (%s)", pagado.StringFixed(2), total.StringFixed(2)),
		Fields: map[string]string{"total": total.StringFixed(2), "pagado": pagado.StringFixed(2)},
	}
}

func InsufficientStock(presentacionID uuid.UUID, disponible, solicitado decimal.Decimal) *Error {
	return &Error{
		Code: CodeInsufficientStock,
		Detail: fmt.Sprintf("stock insuficiente para la presentación %s: disponible %s, solicitado %s",
			presentacionID, disponible.String(), solicitado.String()),
		Fields: map[string]string{"presentacion_id": presentacionID.String()},
	}
}

func SessionAlreadyOpen(cajaID uuid.UUID) *Error {
	return &Error{
		Code:   CodeSessionAlreadyOpen,
		Detail: ErrSessionAlreadyOpen.Detail,
		Fields: map[string]string{"caja_id": cajaID.String()},
	}
}

func SessionNotOpen(sesionID uuid.UUID) *Error {
	return &Error{
		Code:   CodeSessionNotOpen,
		Detail: ErrSessionNotOpen.Detail,
		Fields: map[string]string{"sesion_caja_id": sesionID.String()},
	}
}

func AlreadyCancelled(ventaID uuid.UUID) *Error {
	return &Error{
		Code:   CodeAlreadyCancelled,
		Detail: ErrAlreadyCancelled.Detail,
		Fields: map[string]string{"venta_id": ventaID.String()},
	}
}

func ConcurrencyConflict(detail string) *Error {
	if detail == "" {
		detail = ErrConcurrencyConflict.Detail
	}
	return &Error{Code: CodeConcurrencyConflict, Detail: detail}
}

func NotFound(detail string) *Error {
	return &Error{Code: CodeNotFound, Detail: detail}
}

// As extracts the domain error from a wrapped chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
