package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-einvoice-cr/internal/domain"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo implementación de OrderRepository (usable con pool o tx).
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

const orderColumns = `
	id, name, company_id, config_id, customer_id, account_document_id, state, date_order,
	amount_total, amount_tax, currency_code,
	fe_document_type, fe_status, fe_error_code, fe_last_error, fe_clave, fe_consecutivo,
	fe_idempotency_key, fe_retry_count, fe_next_try, fe_last_send_date,
	fe_xml_attachment, fe_response_attachment,
	fe_ref_document_type, fe_ref_number, fe_ref_issue_date, fe_ref_reason_code, fe_ref_reason_text,
	created_at, updated_at`

// GetByID obtiene un pedido completo (líneas y pagos).
func (r *OrderRepo) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM pos_orders WHERE id = $1`, id))
	if err != nil {
		return nil, classify("get pos order", err)
	}
	if err := r.loadDetails(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// LockByID carga el pedido con SELECT ... FOR UPDATE. En modo NOWAIT un bloqueo ajeno
// llega como 55P03; en SKIP LOCKED la fila simplemente no aparece y hay que distinguir
// "no existe" de "tomada".
func (r *OrderRepo) LockByID(ctx context.Context, id string, mode repository.LockMode) (*entity.Order, error) {
	lock := "FOR UPDATE NOWAIT"
	if mode == repository.LockSkipLocked {
		lock = "FOR UPDATE SKIP LOCKED"
	}
	o, err := scanOrder(r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM pos_orders WHERE id = $1 `+lock, id))
	if err != nil {
		if isNoRows(err) && mode == repository.LockSkipLocked {
			var exists bool
			if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pos_orders WHERE id = $1)`, id).Scan(&exists); err != nil {
				return nil, classify("lock pos order", err)
			}
			if exists {
				return nil, fmt.Errorf("lock pos order %s: %w", id, domain.ErrConcurrentUpdate)
			}
		}
		return nil, classify("lock pos order", err)
	}
	if err := r.loadDetails(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateFE escribe solo las columnas fe_* del pedido.
func (r *OrderRepo) UpdateFE(ctx context.Context, orderID string, doc *entity.ElectronicDocument) error {
	query := `
		UPDATE pos_orders
		SET fe_document_type       = $2,
		    fe_status              = $3,
		    fe_error_code          = $4,
		    fe_last_error          = $5,
		    fe_clave               = $6,
		    fe_consecutivo         = $7,
		    fe_idempotency_key     = $8,
		    fe_retry_count         = $9,
		    fe_next_try            = $10,
		    fe_last_send_date      = $11,
		    fe_xml_attachment      = $12,
		    fe_response_attachment = $13,
		    fe_ref_document_type   = $14,
		    fe_ref_number          = $15,
		    fe_ref_issue_date      = $16,
		    fe_ref_reason_code     = $17,
		    fe_ref_reason_text     = $18,
		    updated_at             = now()
		WHERE id = $1`
	var refDate *time.Time
	if !doc.Reference.IssueDate.IsZero() {
		d := doc.Reference.IssueDate
		refDate = &d
	}
	cmd, err := r.q.Exec(ctx, query,
		orderID,
		nullIfEmpty(string(doc.DocumentType)),
		nullIfEmpty(string(doc.Status)),
		nullIfEmpty(doc.ErrorCode),
		nullIfEmpty(doc.LastError),
		nullIfEmpty(doc.Clave),
		nullIfEmpty(doc.Consecutivo),
		nullIfEmpty(doc.IdempotencyKey),
		doc.RetryCount,
		doc.NextTry,
		doc.LastSendDate,
		nullIfEmpty(doc.XMLAttachment),
		nullIfEmpty(doc.ResponseAttachment),
		nullIfEmpty(doc.Reference.DocumentTypeCode),
		nullIfEmpty(doc.Reference.Number),
		refDate,
		nullIfEmpty(doc.Reference.ReasonCode),
		nullIfEmpty(doc.Reference.ReasonText),
	)
	if err != nil {
		return classify("update pos order fe", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update pos order fe %s: %w", orderID, domain.ErrNotFound)
	}
	return nil
}

// ListDueForSend cola de envío: pendientes o con reintento vencido, en pedidos finalizados.
func (r *OrderRepo) ListDueForSend(ctx context.Context, now time.Time, limit int) ([]string, error) {
	return r.listDue(ctx, "list due for send", []string{
		string(entity.StatusPending), string(entity.StatusErrorRetry),
	}, now, limit)
}

// ListDueForStatus cola de consulta: enviados o en proceso cuyo siguiente sondeo venció.
func (r *OrderRepo) ListDueForStatus(ctx context.Context, now time.Time, limit int) ([]string, error) {
	return r.listDue(ctx, "list due for status", []string{
		string(entity.StatusSent), string(entity.StatusProcessing),
	}, now, limit)
}

func (r *OrderRepo) listDue(ctx context.Context, op string, statuses []string, now time.Time, limit int) ([]string, error) {
	query := `
		SELECT id FROM pos_orders
		 WHERE fe_status = ANY($1)
		   AND (fe_next_try IS NULL OR fe_next_try <= $2)
		   AND state = ANY($3)
		 ORDER BY fe_next_try ASC NULLS FIRST, id ASC
		 LIMIT $4`
	rows, err := r.q.Query(ctx, query, statuses, now, entity.FinalizedOrderStates, limit)
	if err != nil {
		return nil, classify(op, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, classify(op, err)
	}
	return ids, nil
}

// FindRefundOrigins pedidos dueños de las líneas indicadas (sin detalle).
func (r *OrderRepo) FindRefundOrigins(ctx context.Context, lineIDs []string) ([]*entity.Order, error) {
	if len(lineIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT ` + orderColumns + ` FROM pos_orders
		 WHERE id IN (SELECT DISTINCT order_id FROM pos_order_lines WHERE id = ANY($1))
		 ORDER BY id`
	rows, err := r.q.Query(ctx, query, lineIDs)
	if err != nil {
		return nil, classify("find refund origins", err)
	}
	defer rows.Close()

	var list []*entity.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, classify("scan refund origin", err)
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

func (r *OrderRepo) loadDetails(ctx context.Context, o *entity.Order) error {
	lineRows, err := r.q.Query(ctx, `
		SELECT id, order_id, product_code, name, qty, uom, price_unit, discount,
		       subtotal, subtotal_incl, tax_code, tax_rate, tax_name, refunded_line_id
		  FROM pos_order_lines WHERE order_id = $1 ORDER BY id`, o.ID)
	if err != nil {
		return classify("list pos order lines", err)
	}
	defer lineRows.Close()
	for lineRows.Next() {
		var (
			l                          entity.OrderLine
			productCode, uom, refunded *string
			taxCode, taxName           *string
			rate                       decimal.NullDecimal
		)
		if err := lineRows.Scan(&l.ID, &l.OrderID, &productCode, &l.Name, &l.Qty, &uom, &l.PriceUnit,
			&l.Discount, &l.Subtotal, &l.SubtotalIncl, &taxCode, &rate, &taxName, &refunded); err != nil {
			return classify("scan pos order line", err)
		}
		l.ProductCode, l.UOM, l.RefundedLineID = deref(productCode), deref(uom), deref(refunded)
		if taxCode != nil || rate.Valid {
			l.Taxes = []entity.LineTax{{Code: deref(taxCode), Rate: rate.Decimal, Name: deref(taxName)}}
		}
		o.Lines = append(o.Lines, l)
	}
	if err := lineRows.Err(); err != nil {
		return classify("list pos order lines", err)
	}

	payRows, err := r.q.Query(ctx, `
		SELECT id, amount, payment_method_id FROM pos_payments WHERE order_id = $1 ORDER BY id`, o.ID)
	if err != nil {
		return classify("list pos payments", err)
	}
	defer payRows.Close()
	for payRows.Next() {
		var p entity.Payment
		if err := payRows.Scan(&p.ID, &p.Amount, &p.PaymentMethodID); err != nil {
			return classify("scan pos payment", err)
		}
		o.Payments = append(o.Payments, p)
	}
	return classify("list pos payments", payRows.Err())
}

func scanOrder(row pgx.Row) (*entity.Order, error) {
	var (
		o                                                entity.Order
		customerID, acctID, currency                     *string
		docType, status, errCode, lastErr, clave, consec *string
		idemKey, xmlAtt, respAtt                         *string
		refType, refNumber, refReasonCode, refReasonText *string
		refDate                                          *time.Time
	)
	err := row.Scan(
		&o.ID, &o.Name, &o.CompanyID, &o.ConfigID, &customerID, &acctID, &o.State, &o.DateOrder,
		&o.AmountTotal, &o.AmountTax, &currency,
		&docType, &status, &errCode, &lastErr, &clave, &consec,
		&idemKey, &o.FE.RetryCount, &o.FE.NextTry, &o.FE.LastSendDate,
		&xmlAtt, &respAtt,
		&refType, &refNumber, &refDate, &refReasonCode, &refReasonText,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.CustomerID, o.AccountingDocumentID, o.CurrencyCode = deref(customerID), deref(acctID), deref(currency)
	o.FE.DocumentType = entity.DocumentType(deref(docType))
	o.FE.Status = entity.Status(deref(status))
	o.FE.ErrorCode, o.FE.LastError = deref(errCode), deref(lastErr)
	o.FE.Clave, o.FE.Consecutivo, o.FE.IdempotencyKey = deref(clave), deref(consec), deref(idemKey)
	o.FE.XMLAttachment, o.FE.ResponseAttachment = deref(xmlAtt), deref(respAtt)
	o.FE.Reference = entity.Reference{
		DocumentTypeCode: deref(refType),
		Number:           deref(refNumber),
		ReasonCode:       deref(refReasonCode),
		ReasonText:       deref(refReasonText),
	}
	if refDate != nil {
		o.FE.Reference.IssueDate = *refDate
	}
	return &o, nil
}
