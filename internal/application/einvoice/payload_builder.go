package einvoice

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/fe"
	"github.com/jhoicas/pos-einvoice-cr/pkg/hacienda"
)

// Party emisor o receptor del comprobante.
type Party struct {
	Name               string
	IdentificationType string
	TaxID              string
	Email              string
	Phone              string
}

// PayloadLine línea de DetalleServicio.
type PayloadLine struct {
	Number    int
	Code      string
	Detail    string
	Qty       decimal.Decimal
	Unit      string
	UnitPrice decimal.Decimal
	Total     decimal.Decimal // cantidad * precio
	Discount  decimal.Decimal // Total - SubTotal
	Subtotal  decimal.Decimal
	TaxCode   string
	TaxRate   decimal.Decimal
	Tax       decimal.Decimal
	LineTotal decimal.Decimal
}

// Summary ResumenFactura.
type Summary struct {
	CurrencyCode  string
	ExchangeRate  decimal.Decimal
	TaxedTotal    decimal.Decimal
	ExemptTotal   decimal.Decimal
	SaleTotal     decimal.Decimal
	DiscountTotal decimal.Decimal
	NetSaleTotal  decimal.Decimal
	TaxTotal      decimal.Decimal
	GrandTotal    decimal.Decimal
}

// Payload representación del comprobante independiente del backend y del formato.
type Payload struct {
	DocumentType    entity.DocumentType
	DocCode         string
	Clave           string
	Consecutivo     string
	IdempotencyKey  string
	IssueDate       time.Time
	ActivityCode    string
	Issuer          Party
	Receiver        Party
	GeneralCustomer bool
	SaleCondition   string
	PaymentMethods  []string
	Lines           []PayloadLine
	Summary         Summary
	Reference       *entity.Reference
}

// PayloadInput datos del pedido ya cargados.
type PayloadInput struct {
	Order          *entity.Order
	Company        *entity.Company
	Customer       *entity.Customer                 // nil = cliente general
	PaymentMethods map[string]*entity.PaymentMethod // por ID
	DocumentType   entity.DocumentType
}

// BuildPayload arma el payload a partir del pedido y su registro FE (clave y consecutivo
// ya asignados). En notas de crédito los montos se expresan en valor absoluto.
func BuildPayload(in PayloadInput) (*Payload, error) {
	o := in.Order
	if o == nil || in.Company == nil {
		return nil, fmt.Errorf("einvoice: payload sin pedido o emisor")
	}
	if o.FE.Clave == "" || o.FE.Consecutivo == "" {
		return nil, fmt.Errorf("einvoice: el pedido %s no tiene clave ni consecutivo asignados", o.ID)
	}

	issueDate := o.DateOrder
	if issueDate.IsZero() {
		issueDate = time.Now()
	}

	p := &Payload{
		DocumentType:   in.DocumentType,
		DocCode:        fe.DocumentCode(in.DocumentType),
		Clave:          o.FE.Clave,
		Consecutivo:    o.FE.Consecutivo,
		IdempotencyKey: o.FE.IdempotencyKey,
		IssueDate:      issueDate.In(fe.CostaRica),
		ActivityCode:   in.Company.EconomicActivity,
		Issuer: Party{
			Name:               in.Company.Name,
			IdentificationType: identificationType(in.Company.IdentificationType, in.Company.TaxID),
			TaxID:              hacienda.OnlyDigits(in.Company.TaxID),
			Email:              in.Company.Email,
			Phone:              hacienda.OnlyDigits(in.Company.Phone),
		},
	}

	if c := in.Customer; c != nil && c.Name != "" {
		p.Receiver = Party{
			Name:               c.Name,
			IdentificationType: identificationType(c.IdentificationType, c.TaxID),
			TaxID:              hacienda.OnlyDigits(c.TaxID),
			Email:              c.Email,
			Phone:              hacienda.OnlyDigits(c.Phone),
		}
	} else {
		p.Receiver = Party{Name: hacienda.GeneralCustomerName}
		p.GeneralCustomer = true
	}

	// Condición de venta: la del último pago que la tenga; medio de pago por cada pago.
	p.SaleCondition = hacienda.SaleConditionContado
	for _, pay := range o.Payments {
		code := hacienda.PaymentMethodEfectivo
		if m := in.PaymentMethods[pay.PaymentMethodID]; m != nil {
			if m.FESaleConditionCode != "" {
				p.SaleCondition = m.FESaleConditionCode
			}
			if m.FEPaymentMethodCode != "" {
				code = m.FEPaymentMethodCode
			}
		}
		p.PaymentMethods = append(p.PaymentMethods, code)
	}
	if len(p.PaymentMethods) == 0 {
		p.PaymentMethods = []string{hacienda.PaymentMethodEfectivo}
	}

	abs := in.DocumentType == entity.DocumentTypeCreditNote
	amount := func(d decimal.Decimal) decimal.Decimal {
		if abs {
			return d.Abs()
		}
		return d
	}

	s := Summary{
		CurrencyCode: o.CurrencyCode,
		ExchangeRate: decimal.RequireFromString(hacienda.ExchangeRateDefault),
	}
	if s.CurrencyCode == "" {
		s.CurrencyCode = hacienda.CurrencyCRC
	}

	for i, l := range o.Lines {
		total := amount(l.Qty.Mul(l.PriceUnit))
		subtotal := amount(l.Subtotal)
		line := PayloadLine{
			Number:    i + 1,
			Code:      firstNonEmpty(l.ProductCode, l.ID),
			Detail:    l.Name,
			Qty:       l.Qty.Abs(),
			Unit:      firstNonEmpty(l.UOM, hacienda.UnitDefault),
			UnitPrice: l.PriceUnit,
			Total:     total,
			Discount:  total.Sub(subtotal),
			Subtotal:  subtotal,
			TaxCode:   hacienda.TaxCodeIVA,
			Tax:       amount(l.SubtotalIncl.Sub(l.Subtotal)),
			LineTotal: amount(l.SubtotalIncl),
		}
		if len(l.Taxes) > 0 {
			line.TaxCode = firstNonEmpty(l.Taxes[0].Code, hacienda.TaxCodeIVA)
			line.TaxRate = l.Taxes[0].Rate
		}
		p.Lines = append(p.Lines, line)

		if line.Tax.IsZero() {
			s.ExemptTotal = s.ExemptTotal.Add(line.Total)
		} else {
			s.TaxedTotal = s.TaxedTotal.Add(line.Total)
		}
		s.DiscountTotal = s.DiscountTotal.Add(line.Discount)
	}

	s.TaxTotal = amount(o.AmountTax)
	s.GrandTotal = amount(o.AmountTotal)
	if len(o.Lines) == 0 {
		s.TaxedTotal = s.GrandTotal.Sub(s.TaxTotal)
	}
	s.SaleTotal = s.TaxedTotal.Add(s.ExemptTotal)
	s.NetSaleTotal = s.SaleTotal.Sub(s.DiscountTotal)
	p.Summary = s

	if in.DocumentType == entity.DocumentTypeCreditNote && !o.FE.Reference.IsEmpty() {
		ref := o.FE.Reference
		p.Reference = &ref
	}
	return p, nil
}

func identificationType(declared, taxID string) string {
	if declared != "" {
		return declared
	}
	return hacienda.GuessIdentificationType(taxID)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
