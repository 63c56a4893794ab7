package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/pos-einvoice-cr/internal/application/einvoice"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/repository"
)

var _ einvoice.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunOrder abre una transacción, bloquea la fila del pedido (NOWAIT o SKIP LOCKED según mode)
// y ejecuta fn con repos atados a la tx. Commit si fn no falla; Rollback en cualquier otro caso.
func (r *TxRunner) RunOrder(ctx context.Context, orderID string, mode repository.LockMode,
	fn func(repos einvoice.TxRepos, order *entity.Order) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	orders := NewOrderRepository(tx)
	order, err := orders.LockByID(ctx, orderID, mode)
	if err != nil {
		return err
	}

	repos := einvoice.TxRepos{
		Orders:    orders,
		Sequences: NewSequenceAllocator(tx),
		Companies: NewCompanyRepository(tx),
	}
	if err := fn(repos, order); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}
