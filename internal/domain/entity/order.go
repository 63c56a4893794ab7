package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del pedido POS.
const (
	OrderStateDraft    = "draft"
	OrderStatePaid     = "paid"
	OrderStateDone     = "done"
	OrderStateInvoiced = "invoiced"
	OrderStateCancel   = "cancel"
)

// FinalizedOrderStates estados a partir de los cuales el pedido entra al flujo FE.
var FinalizedOrderStates = []string{OrderStatePaid, OrderStateDone, OrderStateInvoiced}

// Order pedido POS finalizado. Tras la finalización solo cambian sus campos FE.
type Order struct {
	ID                   string
	Name                 string // referencia POS (ej: "Shop/0001")
	CompanyID            string
	ConfigID             string // perfil del punto de venta
	CustomerID           string // vacío = cliente general
	AccountingDocumentID string // factura/NC contable vinculada (vacío si no hay)
	State                string
	DateOrder            time.Time
	AmountTotal          decimal.Decimal
	AmountTax            decimal.Decimal
	CurrencyCode         string
	Lines                []OrderLine
	Payments             []Payment
	FE                   ElectronicDocument
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsFinalized indica si el pedido está pagado, cerrado o facturado.
func (o *Order) IsFinalized() bool {
	for _, s := range FinalizedOrderStates {
		if o.State == s {
			return true
		}
	}
	return false
}

// HasRefundLines indica si alguna línea devuelve una línea de otro pedido.
func (o *Order) HasRefundLines() bool {
	for _, l := range o.Lines {
		if l.RefundedLineID != "" {
			return true
		}
	}
	return false
}

// RefundedLineIDs líneas de otros pedidos referenciadas por este pedido.
func (o *Order) RefundedLineIDs() []string {
	var ids []string
	for _, l := range o.Lines {
		if l.RefundedLineID != "" {
			ids = append(ids, l.RefundedLineID)
		}
	}
	return ids
}

// OrderLine línea de detalle del pedido.
type OrderLine struct {
	ID             string
	OrderID        string
	ProductCode    string
	Name           string
	Qty            decimal.Decimal
	UOM            string // "Unid" por defecto
	PriceUnit      decimal.Decimal
	Discount       decimal.Decimal // porcentaje 0-100
	Subtotal       decimal.Decimal // sin impuestos
	SubtotalIncl   decimal.Decimal // con impuestos
	Taxes          []LineTax
	RefundedLineID string // línea original devuelta (notas de crédito)
}

// LineTax impuesto aplicado a una línea.
type LineTax struct {
	Code string          // 01 IVA, etc.
	Rate decimal.Decimal // porcentaje
	Name string
}

// Payment pago registrado en el pedido.
type Payment struct {
	ID              string
	Amount          decimal.Decimal
	PaymentMethodID string
}
