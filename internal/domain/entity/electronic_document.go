package entity

import "time"

// DocumentType tipo de comprobante electrónico que genera un pedido POS.
type DocumentType string

const (
	DocumentTypeTicket        DocumentType = "ticket"         // Tiquete Electrónico (TE)
	DocumentTypeInvoice       DocumentType = "invoice"        // Factura Electrónica (FE)
	DocumentTypeCreditNote    DocumentType = "credit_note"    // Nota de Crédito (NC)
	DocumentTypeNotApplicable DocumentType = "not_applicable" // FE deshabilitada en el punto de venta
)

// Status estado canónico del comprobante frente a Hacienda.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusPending       Status = "pending"
	StatusSending       Status = "sending"
	StatusSent          Status = "sent"
	StatusProcessing    Status = "processing"
	StatusAccepted      Status = "accepted"
	StatusRejected      Status = "rejected"
	StatusError         Status = "error"
	StatusErrorRetry    Status = "error_retry"
	StatusComplete      Status = "complete"
	StatusNotApplicable Status = "not_applicable"
)

// Tipos de adjunto del comprobante.
const (
	AttachmentKindDocument = "document" // XML firmado enviado a Hacienda
	AttachmentKindResponse = "response" // XML de respuesta (acuse) de Hacienda
)

// Reference bloque InformacionReferencia de una nota de crédito.
// Se considera completo solo si los cinco campos tienen valor.
type Reference struct {
	DocumentTypeCode string    // 01 FE, 03 NC, 04 TE
	Number           string    // clave, consecutivo o nombre del documento contable
	IssueDate        time.Time // fecha de emisión del documento original
	ReasonCode       string    // 01 anula documento de referencia, etc.
	ReasonText       string
}

// IsComplete indica si todos los campos obligatorios de la referencia están presentes.
func (r Reference) IsComplete() bool {
	return r.DocumentTypeCode != "" && r.Number != "" && !r.IssueDate.IsZero() &&
		r.ReasonCode != "" && r.ReasonText != ""
}

// IsEmpty indica si la referencia no fue resuelta.
func (r Reference) IsEmpty() bool {
	return r == Reference{}
}

// ElectronicDocument registro de emisión asociado a un pedido (track tiquete) o
// replicado desde el documento contable (track factura). Nunca se elimina.
type ElectronicDocument struct {
	DocumentType       DocumentType
	Status             Status
	ErrorCode          string
	LastError          string
	Clave              string // 50 caracteres, ver fe.BuildClave
	Consecutivo        string // 20 dígitos, ver fe.BuildConsecutivo
	IdempotencyKey     string // único por compañía
	RetryCount         int
	NextTry            *time.Time
	LastSendDate       *time.Time
	XMLAttachment      string // handle en el almacén de adjuntos
	ResponseAttachment string
	Reference          Reference
}

// HasIdentifiers indica si prepare ya asignó clave, consecutivo e idempotencia.
func (d *ElectronicDocument) HasIdentifiers() bool {
	return d.IdempotencyKey != "" && d.Consecutivo != "" && d.Clave != ""
}
