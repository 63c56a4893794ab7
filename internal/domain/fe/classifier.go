package fe

import (
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
	"github.com/jhoicas/pos-einvoice-cr/pkg/hacienda"
)

// ClassifyInput datos necesarios para decidir qué comprobante requiere un pedido.
type ClassifyInput struct {
	Order      *entity.Order
	FEEnabled  bool                       // bandera del perfil POS
	Accounting *entity.AccountingDocument // nil si no hay documento contable
}

// Classify decide el tipo de comprobante:
//   - FE deshabilitada en el punto de venta → not_applicable
//   - documento contable real (out_invoice/out_refund no anulado) → invoice / credit_note
//   - monto negativo o líneas que devuelven otras líneas → credit_note
//   - pedido finalizado → ticket
//
// Devuelve "" si el pedido aún no está finalizado.
func Classify(in ClassifyInput) entity.DocumentType {
	if in.Order == nil {
		return ""
	}
	if !in.FEEnabled {
		return entity.DocumentTypeNotApplicable
	}
	if in.Accounting.IsRealInvoice() {
		return in.Accounting.DocumentType()
	}
	if !in.Order.IsFinalized() {
		return ""
	}
	if in.Order.AmountTotal.IsNegative() || in.Order.HasRefundLines() {
		return entity.DocumentTypeCreditNote
	}
	return entity.DocumentTypeTicket
}

// ShouldEmitFromOrder indica si el pedido debe emitir desde su propio registro (tiquete o
// nota de crédito POS): finalizado, sin documento contable real y no terminal, salvo force.
func ShouldEmitFromOrder(order *entity.Order, acct *entity.AccountingDocument, force bool) bool {
	if order == nil || !order.IsFinalized() {
		return false
	}
	if acct.IsRealInvoice() {
		return false
	}
	if force {
		return order.FE.Status != entity.StatusNotApplicable
	}
	return !IsTerminal(order.FE.Status)
}

// EnsureOrderTrack rechaza cualquier emisión desde el pedido cuando ya existe un documento
// contable real: los dos tracks son mutuamente excluyentes.
func EnsureOrderTrack(order *entity.Order, acct *entity.AccountingDocument) error {
	if acct.IsRealInvoice() {
		return NewValidationError(CodeTicketTrackBlocked,
			"el pedido %s tiene el documento contable %s; la emisión corresponde al track de factura",
			order.ID, acct.Name)
	}
	return nil
}

// DocumentCode código de tipo de comprobante para consecutivo y referencia.
func DocumentCode(t entity.DocumentType) string {
	switch t {
	case entity.DocumentTypeTicket:
		return hacienda.DocCodeTiquete
	case entity.DocumentTypeCreditNote:
		return hacienda.DocCodeNotaCredito
	default:
		return hacienda.DocCodeFactura
	}
}
