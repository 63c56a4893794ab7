package repository

import (
	"context"

	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
)

// SequenceAllocator entrega el siguiente valor del consecutivo por (compañía, tipo).
// Next es atómico y durable: dos llamadas concurrentes nunca reciben el mismo valor.
type SequenceAllocator interface {
	Next(ctx context.Context, companyID string, docType entity.DocumentType) (int64, error)
}
