package entity

import "time"

// Tipos de movimiento contable que cuentan como factura real.
const (
	MoveTypeOutInvoice = "out_invoice"
	MoveTypeOutRefund  = "out_refund"
)

// AccountingDocument vista tipada (solo lectura) del documento contable vinculado a un pedido.
// Los campos FE son opcionales: el servicio contable puede no haberlos calculado aún.
type AccountingDocument struct {
	ID          string
	Name        string // ej: "FAC/2024/0001"
	MoveType    string
	State       string // draft, posted, cancel
	InvoiceDate *time.Time
	FEStatus    *string
	FEClave     *string
	FEConsec    *string
	FEErrorCode *string
}

// IsRealInvoice indica si es una factura o nota de crédito de cliente no anulada.
func (d *AccountingDocument) IsRealInvoice() bool {
	if d == nil {
		return false
	}
	if d.MoveType != MoveTypeOutInvoice && d.MoveType != MoveTypeOutRefund {
		return false
	}
	return d.State != "cancel"
}

// DocumentType tipo FE que corresponde al documento contable.
func (d *AccountingDocument) DocumentType() DocumentType {
	if d.MoveType == MoveTypeOutRefund {
		return DocumentTypeCreditNote
	}
	return DocumentTypeInvoice
}
