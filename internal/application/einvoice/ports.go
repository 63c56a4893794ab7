package einvoice

import (
	"context"
	"time"

	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/repository"
)

// TxRepos repositorios atados a la transacción que tiene bloqueado el pedido.
type TxRepos struct {
	Orders    repository.OrderRepository
	Sequences repository.SequenceAllocator
	Companies repository.CompanyRepository
}

// TxRunner ejecuta fn dentro de una transacción con la fila del pedido bloqueada.
// Si la fila no está disponible devuelve domain.ErrConcurrentUpdate sin llamar a fn.
// Un error de fn provoca rollback.
type TxRunner interface {
	RunOrder(ctx context.Context, orderID string, mode repository.LockMode,
		fn func(repos TxRepos, order *entity.Order) error) error
}

// AttachmentOwner dueño de un adjunto XML.
type AttachmentOwner struct {
	CompanyID string
	OrderID   string
}

// AttachmentStore guarda XML firmados y respuestas. Los adjuntos nunca se sobrescriben:
// cada Store crea un objeto nuevo y devuelve su handle.
type AttachmentStore interface {
	Store(ctx context.Context, owner AttachmentOwner, data []byte, kind string) (string, error)
	Load(ctx context.Context, handle string) ([]byte, error)
}

// DocumentRenderer convierte el payload en el XML del comprobante (sin firmar).
type DocumentRenderer interface {
	Render(p *Payload) ([]byte, error)
}

// Locker lease por lote para que una sola réplica recorra la cola a la vez.
// ok=false indica que otro proceso tiene el lease.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// Clock permite fijar la hora en tests.
type Clock func() time.Time
