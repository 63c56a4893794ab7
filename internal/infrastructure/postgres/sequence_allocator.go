package postgres

import (
	"context"

	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/repository"
)

var _ repository.SequenceAllocator = (*SequenceAllocator)(nil)

// SequenceAllocator contador del consecutivo en fe_sequences. El upsert toma el lock de la
// fila (compañía, tipo), así dos transacciones concurrentes nunca reciben el mismo valor.
type SequenceAllocator struct {
	q Querier
}

// NewSequenceAllocator construye el asignador. Pasar pool o tx (Querier).
func NewSequenceAllocator(q Querier) *SequenceAllocator {
	return &SequenceAllocator{q: q}
}

// Next incrementa y devuelve el siguiente valor; el primero de cada par es 1.
func (a *SequenceAllocator) Next(ctx context.Context, companyID string, docType entity.DocumentType) (int64, error) {
	const query = `
		INSERT INTO fe_sequences (company_id, document_type, last_value, updated_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (company_id, document_type)
		DO UPDATE SET last_value = fe_sequences.last_value + 1, updated_at = now()
		RETURNING last_value`
	var next int64
	if err := a.q.QueryRow(ctx, query, companyID, string(docType)).Scan(&next); err != nil {
		return 0, classify("next fe sequence", err)
	}
	return next, nil
}

// Current último valor entregado (0 si nunca se asignó).
func (a *SequenceAllocator) Current(ctx context.Context, companyID string, docType entity.DocumentType) (int64, error) {
	var seq entity.DocumentSequence
	err := a.q.QueryRow(ctx, `
		SELECT company_id, document_type, last_value, updated_at
		  FROM fe_sequences WHERE company_id = $1 AND document_type = $2`,
		companyID, string(docType)).Scan(&seq.CompanyID, &seq.DocumentType, &seq.LastValue, &seq.UpdatedAt)
	if isNoRows(err) {
		return 0, nil
	}
	if err != nil {
		return 0, classify("get fe sequence", err)
	}
	return seq.LastValue, nil
}
