package fe

import (
	"sort"
	"time"

	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
	"github.com/jhoicas/pos-einvoice-cr/pkg/hacienda"
)

// OriginCandidate pedido cuyas líneas son devueltas por la nota de crédito, junto con su
// documento contable (si lo tiene).
type OriginCandidate struct {
	Order      *entity.Order
	Accounting *entity.AccountingDocument
}

// ReferenceOptions valores suministrados por el operador; vacíos usan los valores por defecto.
type ReferenceOptions struct {
	ReasonCode string
	ReasonText string
}

// SelectOrigin elige el pedido original más reciente por fecha (empate: mayor ID).
func SelectOrigin(candidates []OriginCandidate) *OriginCandidate {
	valid := make([]OriginCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Order != nil {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	sort.SliceStable(valid, func(i, j int) bool {
		a, b := valid[i].Order, valid[j].Order
		if !a.DateOrder.Equal(b.DateOrder) {
			return a.DateOrder.After(b.DateOrder)
		}
		return a.ID > b.ID
	})
	return &valid[0]
}

// ResolveReference arma el bloque InformacionReferencia a partir del pedido original.
// Si no hay número o fecha resolubles devuelve una referencia vacía y false: la emisión
// de la nota de crédito no debe continuar con datos a medias.
func ResolveReference(candidates []OriginCandidate, opts ReferenceOptions) (entity.Reference, bool) {
	origin := SelectOrigin(candidates)
	if origin == nil {
		return entity.Reference{}, false
	}

	number := firstNonEmpty(origin.Order.FE.Clave, origin.Order.FE.Consecutivo)
	if number == "" && origin.Accounting != nil {
		number = firstNonEmpty(strValue(origin.Accounting.FEClave), strValue(origin.Accounting.FEConsec), origin.Accounting.Name)
	}
	issueDate := originIssueDate(origin)
	if number == "" || issueDate.IsZero() {
		return entity.Reference{}, false
	}

	ref := entity.Reference{
		DocumentTypeCode: ReferenceTypeCode(originDocumentType(origin)),
		Number:           number,
		IssueDate:        issueDate,
		ReasonCode:       firstNonEmpty(opts.ReasonCode, hacienda.ReferenceCodeAnula),
		ReasonText:       firstNonEmpty(opts.ReasonText, hacienda.DefaultReferenceReason),
	}
	return ref, true
}

// ReferenceTypeCode invoice→01, ticket→04, credit_note→03; cualquier otro → 01.
func ReferenceTypeCode(t entity.DocumentType) string {
	switch t {
	case entity.DocumentTypeTicket:
		return hacienda.DocCodeTiquete
	case entity.DocumentTypeCreditNote:
		return hacienda.DocCodeNotaCredito
	default:
		return hacienda.DocCodeFactura
	}
}

func originDocumentType(origin *OriginCandidate) entity.DocumentType {
	if origin.Accounting.IsRealInvoice() {
		return origin.Accounting.DocumentType()
	}
	return origin.Order.FE.DocumentType
}

func originIssueDate(origin *OriginCandidate) time.Time {
	if !origin.Order.DateOrder.IsZero() {
		return origin.Order.DateOrder
	}
	if origin.Accounting != nil && origin.Accounting.InvoiceDate != nil {
		return *origin.Accounting.InvoiceDate
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func strValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
