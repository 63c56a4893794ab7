package einvoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/pos-einvoice-cr/internal/domain"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/repository"
)

// Valores por defecto de los lotes.
const (
	DefaultBatchLimit = 50
	DefaultLeaseTTL   = 5 * time.Minute
)

// Claves de lease de los lotes.
const (
	LeaseSendPending  = "fe:cron:send-pending"
	LeaseCheckPending = "fe:cron:check-pending"
)

// BatchResult resumen de un lote cron.
type BatchResult struct {
	Scanned   int  `json:"scanned"`
	Succeeded int  `json:"succeeded"`
	Skipped   int  `json:"skipped"`
	Failed    int  `json:"failed"`
	Locked    bool `json:"locked"` // otro proceso tenía el lease; no se recorrió la cola
}

// CronSendPending envía los pedidos en pending/error_retry cuyo next_try venció.
// Cada pedido corre en su propia transacción; un fallo nunca aborta el lote.
func (s *Service) CronSendPending(ctx context.Context, limit int) (BatchResult, error) {
	return s.runBatch(ctx, "send-pending", LeaseSendPending, limit, s.orders.ListDueForSend,
		func(ctx context.Context, id string) error {
			_, err := s.sendNow(ctx, id, false, repository.LockSkipLocked)
			return err
		})
}

// CronCheckPending consulta el estado de los pedidos en sent/processing.
func (s *Service) CronCheckPending(ctx context.Context, limit int) (BatchResult, error) {
	return s.runBatch(ctx, "check-pending", LeaseCheckPending, limit, s.orders.ListDueForStatus,
		func(ctx context.Context, id string) error {
			_, err := s.checkStatus(ctx, id, repository.LockSkipLocked)
			return err
		})
}

func (s *Service) runBatch(
	ctx context.Context,
	name, lease string,
	limit int,
	list func(ctx context.Context, now time.Time, limit int) ([]string, error),
	step func(ctx context.Context, orderID string) error,
) (BatchResult, error) {
	var res BatchResult
	if limit <= 0 {
		limit = s.opts.BatchLimit
	}
	log := s.log.Component("cron").With().Str("batch", name).Logger()

	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, lease, s.opts.LeaseTTL)
		if err != nil {
			return res, fmt.Errorf("lease %s: %w", lease, err)
		}
		if !ok {
			log.Debug().Msg("lease tomado por otro proceso, lote omitido")
			res.Locked = true
			return res, nil
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Warn().Err(err).Msg("no se pudo liberar el lease")
			}
		}()
	}

	ids, err := list(ctx, s.opts.Now(), limit)
	if err != nil {
		return res, fmt.Errorf("cola %s: %w", name, err)
	}
	res.Scanned = len(ids)

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		err := s.safeStep(ctx, id, step)
		switch {
		case err == nil:
			res.Succeeded++
		case errors.Is(err, domain.ErrConcurrentUpdate):
			res.Skipped++
			log.Debug().Str("order_id", id).Msg("pedido bloqueado por otra transacción, omitido")
		default:
			res.Failed++
			log.Warn().Err(err).Str("order_id", id).Msg("pedido con error en el lote")
		}
	}

	log.Info().Int("scanned", res.Scanned).Int("succeeded", res.Succeeded).
		Int("skipped", res.Skipped).Int("failed", res.Failed).Msg("lote FE terminado")
	return res, nil
}

// safeStep convierte un panic de un pedido en error para no abortar el lote.
func (s *Service) safeStep(ctx context.Context, id string, step func(context.Context, string) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic procesando pedido %s: %v", id, r)
		}
	}()
	return step(ctx, id)
}
