package repository

import (
	"context"

	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
)

// CompanyRepository define el puerto de persistencia para Company (emisor).
type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Company, error)

	// UpdateLastConsecutivo guarda el último consecutivo emitido por tipo de comprobante
	// (solo la secuencia, sin ceros a la izquierda).
	UpdateLastConsecutivo(ctx context.Context, companyID string, docType entity.DocumentType, seq string) error
}

// PosConfigRepository perfiles de punto de venta.
type PosConfigRepository interface {
	GetByID(ctx context.Context, id string) (*entity.PosConfig, error)
}
