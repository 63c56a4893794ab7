package repository

import (
	"context"

	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
)

// AccountingDocumentRepository acceso al documento contable vinculado a un pedido (track factura).
// La emisión del documento contable la hace el servicio contable; aquí solo se marca y se lee.
type AccountingDocumentRepository interface {
	// GetByID devuelve la vista tipada; domain.ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*entity.AccountingDocument, error)

	// MarkPending deja el documento en cola FE con los metadatos de pago del pedido.
	// No modifica documentos en estado final.
	MarkPending(ctx context.Context, id, paymentMethodCode, saleConditionCode string) error

	// RequestSend solicita el envío inmediato y devuelve el estado resultante.
	RequestSend(ctx context.Context, id string, force bool) (*entity.AccountingDocument, error)
}
