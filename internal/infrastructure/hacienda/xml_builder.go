package hacienda

import (
	"bytes"
	"fmt"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-einvoice-cr/internal/application/einvoice"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/fe"
)

// Namespaces de los esquemas 4.4 de comprobantes electrónicos.
const (
	nsBase       = "https://cdn.comprobanteselectronicos.go.cr/xml-schemas/v4.4/"
	NsTicket     = nsBase + "tiqueteElectronico"
	NsInvoice    = nsBase + "facturaElectronica"
	NsCreditNote = nsBase + "notaCreditoElectronica"
	nsXsd        = "http://www.w3.org/2001/XMLSchema"
	nsXsi        = "http://www.w3.org/2001/XMLSchema-instance"

	// Formato de FechaEmision (hora de Costa Rica con offset explícito).
	issueDateLayout = "2006-01-02T15:04:05-07:00"
	amountDecimals  = 5
)

var _ einvoice.DocumentRenderer = (*XMLBuilderService)(nil)

// XMLBuilderService construye el XML 4.4 del comprobante (sin firma).
type XMLBuilderService struct{}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{}
}

// Render genera TiqueteElectronico, FacturaElectronica o NotaCreditoElectronica según el tipo.
func (s *XMLBuilderService) Render(p *einvoice.Payload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("hacienda: payload vacío")
	}
	rootName, ns, err := rootFor(p.DocumentType)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	root := doc.CreateElement(rootName)
	root.CreateAttr("xmlns", ns)
	root.CreateAttr("xmlns:xsd", nsXsd)
	root.CreateAttr("xmlns:xsi", nsXsi)

	text(root, "Clave", p.Clave)
	if p.ActivityCode != "" {
		text(root, "CodigoActividad", p.ActivityCode)
	}
	text(root, "NumeroConsecutivo", p.Consecutivo)
	text(root, "FechaEmision", p.IssueDate.In(fe.CostaRica).Format(issueDateLayout))

	writeIssuer(root.CreateElement("Emisor"), p.Issuer)
	writeReceiver(root.CreateElement("Receptor"), p.Receiver, p.GeneralCustomer)

	text(root, "CondicionVenta", p.SaleCondition)
	for _, code := range p.PaymentMethods {
		text(root, "MedioPago", code)
	}

	detail := root.CreateElement("DetalleServicio")
	for _, l := range p.Lines {
		writeLine(detail.CreateElement("LineaDetalle"), l)
	}

	writeSummary(root.CreateElement("ResumenFactura"), p.Summary)

	if p.Reference != nil {
		ref := root.CreateElement("InformacionReferencia")
		text(ref, "TipoDoc", p.Reference.DocumentTypeCode)
		text(ref, "Numero", p.Reference.Number)
		text(ref, "FechaEmision", p.Reference.IssueDate.In(fe.CostaRica).Format(issueDateLayout))
		text(ref, "Codigo", p.Reference.ReasonCode)
		text(ref, "Razon", p.Reference.ReasonText)
	} else if p.DocumentType == entity.DocumentTypeCreditNote {
		return nil, fmt.Errorf("hacienda: nota de crédito %s sin InformacionReferencia", p.Consecutivo)
	}

	doc.Indent(2)
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("hacienda: serializar XML: %w", err)
	}
	return buf.Bytes(), nil
}

func rootFor(t entity.DocumentType) (string, string, error) {
	switch t {
	case entity.DocumentTypeTicket:
		return "TiqueteElectronico", NsTicket, nil
	case entity.DocumentTypeInvoice:
		return "FacturaElectronica", NsInvoice, nil
	case entity.DocumentTypeCreditNote:
		return "NotaCreditoElectronica", NsCreditNote, nil
	}
	return "", "", fmt.Errorf("hacienda: tipo de comprobante sin esquema: %q", t)
}

func writeIssuer(e *etree.Element, p einvoice.Party) {
	text(e, "Nombre", p.Name)
	id := e.CreateElement("Identificacion")
	text(id, "Tipo", p.IdentificationType)
	text(id, "Numero", p.TaxID)
	if p.Phone != "" {
		tel := e.CreateElement("Telefono")
		text(tel, "CodigoPais", "506")
		text(tel, "NumTelefono", p.Phone)
	}
	if p.Email != "" {
		text(e, "CorreoElectronico", p.Email)
	}
}

// El cliente general lleva solo el nombre.
func writeReceiver(e *etree.Element, p einvoice.Party, general bool) {
	if general {
		text(e, "Nombre", p.Name)
		return
	}
	text(e, "Nombre", p.Name)
	if p.TaxID != "" {
		id := e.CreateElement("Identificacion")
		text(id, "Tipo", p.IdentificationType)
		text(id, "Numero", p.TaxID)
	}
	if p.Email != "" {
		text(e, "CorreoElectronico", p.Email)
	}
}

func writeLine(e *etree.Element, l einvoice.PayloadLine) {
	text(e, "NumeroLinea", fmt.Sprintf("%d", l.Number))
	if l.Code != "" {
		text(e, "Codigo", l.Code)
	}
	text(e, "Cantidad", amount(l.Qty))
	text(e, "UnidadMedida", l.Unit)
	text(e, "Detalle", l.Detail)
	text(e, "PrecioUnitario", amount(l.UnitPrice))
	text(e, "MontoTotal", amount(l.Total))
	if !l.Discount.IsZero() {
		d := e.CreateElement("Descuento")
		text(d, "MontoDescuento", amount(l.Discount))
		text(d, "NaturalezaDescuento", "Descuento comercial")
	}
	text(e, "SubTotal", amount(l.Subtotal))
	if !l.Tax.IsZero() {
		tax := e.CreateElement("Impuesto")
		text(tax, "Codigo", l.TaxCode)
		text(tax, "CodigoTarifa", ivaRateCode(l.TaxRate))
		text(tax, "Tarifa", l.TaxRate.StringFixed(2))
		text(tax, "Monto", amount(l.Tax))
	}
	text(e, "MontoTotalLinea", amount(l.LineTotal))
}

func writeSummary(e *etree.Element, s einvoice.Summary) {
	cur := e.CreateElement("CodigoTipoMoneda")
	text(cur, "CodigoMoneda", s.CurrencyCode)
	text(cur, "TipoCambio", amount(s.ExchangeRate))
	text(e, "TotalGravado", amount(s.TaxedTotal))
	text(e, "TotalExento", amount(s.ExemptTotal))
	text(e, "TotalVenta", amount(s.SaleTotal))
	text(e, "TotalDescuentos", amount(s.DiscountTotal))
	text(e, "TotalVentaNeta", amount(s.NetSaleTotal))
	text(e, "TotalImpuesto", amount(s.TaxTotal))
	text(e, "TotalComprobante", amount(s.GrandTotal))
}

// ivaRateCode código de tarifa IVA (nota 8.1 del anexo) según el porcentaje.
func ivaRateCode(rate decimal.Decimal) string {
	switch rate.StringFixed(0) {
	case "0":
		return "01"
	case "1":
		return "02"
	case "2":
		return "03"
	case "4":
		return "04"
	case "8":
		return "07"
	default:
		return "08"
	}
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(amountDecimals)
}

func text(parent *etree.Element, tag, value string) *etree.Element {
	e := parent.CreateElement(tag)
	e.SetText(value)
	return e
}
