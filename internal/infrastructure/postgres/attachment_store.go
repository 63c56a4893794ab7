package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jhoicas/pos-einvoice-cr/internal/application/einvoice"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain"
)

const attachmentHandlePrefix = "pg:"

var _ einvoice.AttachmentStore = (*AttachmentStore)(nil)

// AttachmentStore guarda los XML en la tabla fe_attachments. Cada Store inserta una fila nueva.
type AttachmentStore struct {
	q Querier
}

// NewAttachmentStore construye el adaptador.
func NewAttachmentStore(q Querier) *AttachmentStore {
	return &AttachmentStore{q: q}
}

// Store implementa einvoice.AttachmentStore.
func (s *AttachmentStore) Store(ctx context.Context, owner einvoice.AttachmentOwner, data []byte, kind string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: adjunto vacío", domain.ErrInvalidInput)
	}
	id := uuid.New()
	_, err := s.q.Exec(ctx,
		`INSERT INTO fe_attachments (id, company_id, order_id, kind, data) VALUES ($1, $2, $3, $4, $5)`,
		id.String(), owner.CompanyID, owner.OrderID, kind, data)
	if err != nil {
		return "", classify("store attachment", err)
	}
	return attachmentHandlePrefix + id.String(), nil
}

// Load implementa einvoice.AttachmentStore.
func (s *AttachmentStore) Load(ctx context.Context, handle string) ([]byte, error) {
	raw, ok := strings.CutPrefix(handle, attachmentHandlePrefix)
	if !ok {
		return nil, fmt.Errorf("%w: handle de adjunto %q", domain.ErrInvalidInput, handle)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: handle de adjunto %q", domain.ErrInvalidInput, handle)
	}
	var data []byte
	if err := s.q.QueryRow(ctx, `SELECT data FROM fe_attachments WHERE id = $1`, id.String()).Scan(&data); err != nil {
		return nil, classify("load attachment", err)
	}
	return data, nil
}
