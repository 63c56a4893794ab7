package dto

import (
	"time"

	"github.com/jhoicas/pos-einvoice-cr/internal/application/einvoice"
)

// ForceRequest cuerpo de POST /api/orders/:id/fe/send y /process.
type ForceRequest struct {
	Force bool `json:"force"`
}

// BatchRequest cuerpo de los endpoints cron. Limit 0 = valor por defecto del servicio.
type BatchRequest struct {
	Limit int `json:"limit" validate:"gte=0,lte=1000"`
}

// ReferenceResponse InformacionReferencia de una nota de crédito.
type ReferenceResponse struct {
	DocumentTypeCode string    `json:"document_type_code"`
	Number           string    `json:"number"`
	IssueDate        time.Time `json:"issue_date"`
	ReasonCode       string    `json:"reason_code"`
	ReasonText       string    `json:"reason_text"`
}

// DocumentResponse registro FE de un pedido.
type DocumentResponse struct {
	OrderID            string             `json:"order_id"`
	Track              string             `json:"track"`
	DocumentType       string             `json:"document_type"`
	Status             string             `json:"status"`
	Clave              string             `json:"clave,omitempty"`
	Consecutivo        string             `json:"consecutivo,omitempty"`
	IdempotencyKey     string             `json:"idempotency_key,omitempty"`
	RetryCount         int                `json:"retry_count"`
	NextTry            *time.Time         `json:"next_try,omitempty"`
	LastSendDate       *time.Time         `json:"last_send_date,omitempty"`
	ErrorCode          string             `json:"error_code,omitempty"`
	LastError          string             `json:"last_error,omitempty"`
	XMLAttachment      string             `json:"xml_attachment,omitempty"`
	ResponseAttachment string             `json:"response_attachment,omitempty"`
	Reference          *ReferenceResponse `json:"reference,omitempty"`
}

// NewDocumentResponse mapea la vista del servicio FE.
func NewDocumentResponse(v *einvoice.DocumentView) DocumentResponse {
	d := v.Document
	out := DocumentResponse{
		OrderID:            v.OrderID,
		Track:              v.Track,
		DocumentType:       string(d.DocumentType),
		Status:             string(d.Status),
		Clave:              d.Clave,
		Consecutivo:        d.Consecutivo,
		IdempotencyKey:     d.IdempotencyKey,
		RetryCount:         d.RetryCount,
		NextTry:            d.NextTry,
		LastSendDate:       d.LastSendDate,
		ErrorCode:          d.ErrorCode,
		LastError:          d.LastError,
		XMLAttachment:      d.XMLAttachment,
		ResponseAttachment: d.ResponseAttachment,
	}
	if d.Reference.Number != "" {
		out.Reference = &ReferenceResponse{
			DocumentTypeCode: d.Reference.DocumentTypeCode,
			Number:           d.Reference.Number,
			IssueDate:        d.Reference.IssueDate,
			ReasonCode:       d.Reference.ReasonCode,
			ReasonText:       d.Reference.ReasonText,
		}
	}
	return out
}

// ClassifyResponse resultado de POST /api/orders/:id/fe/classify.
type ClassifyResponse struct {
	OrderID      string `json:"order_id"`
	DocumentType string `json:"document_type"`
}

// SendResponse resultado de POST /api/orders/:id/fe/send.
type SendResponse struct {
	OrderID string `json:"order_id"`
	Sent    bool   `json:"sent"`
}

// StatusResponse resultado de POST /api/orders/:id/fe/check-status.
type StatusResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// BatchResponse resultado de un lote cron.
type BatchResponse struct {
	einvoice.BatchResult
}
