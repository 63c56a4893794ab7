// Package fe contiene las reglas de dominio del comprobante electrónico costarricense:
// normalización de estados, clasificación del pedido, referencias de notas de crédito,
// consecutivo y clave, y validaciones previas a la firma.
package fe

import (
	"errors"
	"fmt"
)

// ErrInvalidDocument agrupa los errores de validación de un comprobante.
var ErrInvalidDocument = errors.New("comprobante inválido para Hacienda")

// Códigos de error de validación.
const (
	CodeNotFinalized        = "order_not_finalized"
	CodeMissingTaxID        = "missing_issuer_tax_id"
	CodeNoPayments          = "no_payments"
	CodeTotalMismatch       = "total_mismatch"
	CodePaymentMetadata     = "payment_method_metadata"
	CodeIncompleteReference = "incomplete_reference"
	CodeTicketTrackBlocked  = "ticket_track_blocked"
	CodeIdempotencyMismatch = "idempotency_key_mismatch"
	CodeInvalidSequence     = "invalid_sequence"
	CodeInvalidIssuerCodes  = "invalid_issuer_codes"
	CodeAuthorityRejected   = "authority_rejected"
	CodeMissingClave        = "missing_clave"
	CodeNotApplicable       = "not_applicable"
)

// ValidationError precondición no cumplida. Es terminal para el intento actual:
// reintentar no corrige datos incorrectos.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap permite errors.Is(err, ErrInvalidDocument).
func (e *ValidationError) Unwrap() error { return ErrInvalidDocument }

// NewValidationError construye un ValidationError.
func NewValidationError(code, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError indica si err (o alguno de sus envueltos) es de validación.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrInvalidDocument)
}

// ValidationCode devuelve el código del primer ValidationError en la cadena, o "validation".
func ValidationCode(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return "validation"
}
