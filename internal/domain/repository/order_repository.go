package repository

import (
	"context"
	"time"

	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
)

// LockMode modo de bloqueo de la fila del pedido dentro de una transacción.
type LockMode int

const (
	// LockNoWait falla de inmediato si otra transacción tiene la fila (acciones manuales).
	LockNoWait LockMode = iota
	// LockSkipLocked omite la fila si está bloqueada (cron).
	LockSkipLocked
)

// OrderRepository define el puerto de persistencia de pedidos POS y su registro FE.
// Tras la finalización solo se escriben las columnas fe_*.
type OrderRepository interface {
	// GetByID devuelve el pedido con líneas y pagos. domain.ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*entity.Order, error)

	// LockByID carga y bloquea la fila del pedido. Si la fila está tomada por otra
	// transacción devuelve domain.ErrConcurrentUpdate.
	LockByID(ctx context.Context, id string, mode LockMode) (*entity.Order, error)

	// UpdateFE persiste el registro de emisión. Una clave de idempotencia repetida en la
	// compañía devuelve domain.ErrAlreadySubmitted.
	UpdateFE(ctx context.Context, orderID string, doc *entity.ElectronicDocument) error

	// ListDueForSend IDs de pedidos finalizados en pending/error_retry cuyo next_try venció,
	// ordenados por next_try (nulos primero) e ID.
	ListDueForSend(ctx context.Context, now time.Time, limit int) ([]string, error)

	// ListDueForStatus IDs de pedidos en sent/processing cuyo next_try venció.
	ListDueForStatus(ctx context.Context, now time.Time, limit int) ([]string, error)

	// FindRefundOrigins pedidos dueños de las líneas devueltas, sin líneas ni pagos.
	FindRefundOrigins(ctx context.Context, lineIDs []string) ([]*entity.Order, error)
}
