package fe

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
)

// TotalTolerance diferencia máxima aceptada entre subtotal+impuesto y total.
var TotalTolerance = decimal.NewFromFloat(0.01)

// EmissionInput datos que se validan antes de firmar.
type EmissionInput struct {
	Order          *entity.Order
	Company        *entity.Company
	PrimaryPayment *entity.PaymentMethod // método del pago principal (nil si no hay pagos)
	DocumentType   entity.DocumentType
	Reference      entity.Reference
}

// ValidateForEmission comprueba las precondiciones del comprobante:
// pedido finalizado, emisor con identificación, sucursal y terminal válidas, al menos un pago, totales que cuadran,
// método de pago principal con códigos FE y, para notas de crédito, referencia completa.
// Devuelve errors.Join de ErrInvalidDocument y cada ValidationError encontrado.
func ValidateForEmission(in EmissionInput) error {
	if in.Order == nil {
		return fmt.Errorf("%w: pedido nulo", ErrInvalidDocument)
	}
	var errs []error

	if !in.Order.IsFinalized() {
		errs = append(errs, NewValidationError(CodeNotFinalized, "el pedido %s está en estado %q", in.Order.ID, in.Order.State))
	}
	if in.Company == nil || in.Company.TaxID == "" {
		errs = append(errs, NewValidationError(CodeMissingTaxID, "el emisor no tiene identificación tributaria"))
	}
	if in.Company != nil {
		errs = append(errs, issuerCodeErrors(in.Company)...)
	}
	if len(in.Order.Payments) == 0 {
		errs = append(errs, NewValidationError(CodeNoPayments, "el pedido %s no tiene pagos", in.Order.ID))
	} else if in.PrimaryPayment == nil ||
		in.PrimaryPayment.FEPaymentMethodCode == "" || in.PrimaryPayment.FESaleConditionCode == "" {
		errs = append(errs, NewValidationError(CodePaymentMetadata, "el método de pago principal no tiene código FE de medio de pago y condición de venta"))
	}
	if err := ReconcileTotals(in.Order); err != nil {
		errs = append(errs, err)
	}
	if in.DocumentType == entity.DocumentTypeCreditNote && !in.Reference.IsComplete() {
		errs = append(errs, NewValidationError(CodeIncompleteReference, "la nota de crédito no tiene referencia completa al documento original"))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidDocument}, errs...)...)
	}
	return nil
}

// ReconcileTotals verifica que suma(subtotales) + impuesto = total (± TotalTolerance).
// Sin líneas se compara total - impuesto contra sí mismo, es decir siempre cuadra.
func ReconcileTotals(o *entity.Order) error {
	subtotal := o.AmountTotal.Sub(o.AmountTax)
	if len(o.Lines) > 0 {
		subtotal = decimal.Zero
		for _, l := range o.Lines {
			subtotal = subtotal.Add(l.Subtotal)
		}
	}
	computed := subtotal.Add(o.AmountTax)
	if computed.Sub(o.AmountTotal).Abs().GreaterThan(TotalTolerance) {
		return NewValidationError(CodeTotalMismatch, "subtotal (%s) + impuesto (%s) = %s no coincide con el total %s",
			subtotal.StringFixed(2), o.AmountTax.StringFixed(2), computed.StringFixed(2), o.AmountTotal.StringFixed(2))
	}
	return nil
}
