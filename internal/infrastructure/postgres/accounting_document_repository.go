package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/pos-einvoice-cr/internal/domain"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/repository"
)

var _ repository.AccountingDocumentRepository = (*AccountingDocumentRepo)(nil)

// AccountingDocumentRepo lectura y marcado de account_documents. La emisión real de la
// factura la hace el servicio contable, que consume fe_send_requested_at.
type AccountingDocumentRepo struct {
	q Querier
}

// NewAccountingDocumentRepository construye el adaptador.
func NewAccountingDocumentRepository(q Querier) *AccountingDocumentRepo {
	return &AccountingDocumentRepo{q: q}
}

const accountingColumns = `id, name, move_type, state, invoice_date, fe_status, fe_clave, fe_consecutivo, fe_error_code`

// Estados del servicio contable que ya no se tocan.
var accountingFinalStatuses = []string{"aceptado", "rechazado", "accepted", "rejected"}

// GetByID obtiene la vista tipada del documento contable.
func (r *AccountingDocumentRepo) GetByID(ctx context.Context, id string) (*entity.AccountingDocument, error) {
	return r.get(ctx, `SELECT `+accountingColumns+` FROM account_documents WHERE id = $1`, id)
}

// MarkPending encola el documento con los metadatos de pago del pedido.
func (r *AccountingDocumentRepo) MarkPending(ctx context.Context, id, paymentMethodCode, saleConditionCode string) error {
	query := `
		UPDATE account_documents
		SET fe_status              = COALESCE(fe_status, 'pendiente'),
		    fe_payment_method_code = COALESCE($2, fe_payment_method_code),
		    fe_sale_condition_code = COALESCE($3, fe_sale_condition_code),
		    updated_at             = now()
		WHERE id = $1
		  AND (fe_status IS NULL OR lower(fe_status) <> ALL($4))`
	cmd, err := r.q.Exec(ctx, query, id, nullIfEmpty(paymentMethodCode), nullIfEmpty(saleConditionCode), accountingFinalStatuses)
	if err != nil {
		return classify("mark accounting document pending", err)
	}
	if cmd.RowsAffected() == 0 {
		// Estado final o inexistente: solo lo segundo es error.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// RequestSend registra la solicitud de envío y devuelve el documento actualizado.
func (r *AccountingDocumentRepo) RequestSend(ctx context.Context, id string, force bool) (*entity.AccountingDocument, error) {
	query := `
		UPDATE account_documents
		SET fe_send_requested_at = now(),
		    fe_force_send        = $2,
		    fe_status            = COALESCE(fe_status, 'pendiente'),
		    updated_at           = now()
		WHERE id = $1
		  AND ($2 OR fe_status IS NULL OR lower(fe_status) <> ALL($3))
		RETURNING ` + accountingColumns
	doc, err := r.get(ctx, query, id, force, accountingFinalStatuses)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	// Sin fila actualizada: documento final (se devuelve tal cual) o inexistente.
	return r.GetByID(ctx, id)
}

func (r *AccountingDocumentRepo) get(ctx context.Context, query string, args ...any) (*entity.AccountingDocument, error) {
	var d entity.AccountingDocument
	err := r.q.QueryRow(ctx, query, args...).Scan(
		&d.ID, &d.Name, &d.MoveType, &d.State, &d.InvoiceDate,
		&d.FEStatus, &d.FEClave, &d.FEConsec, &d.FEErrorCode,
	)
	if err != nil {
		return nil, classify(fmt.Sprintf("get accounting document %v", args[0]), err)
	}
	return &d, nil
}
