// Package scheduler dispara los lotes cron FE en intervalos fijos dentro del proceso.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jhoicas/pos-einvoice-cr/internal/application/einvoice"
	"github.com/jhoicas/pos-einvoice-cr/pkg/logger"
)

// ErrInvalidConfig intervalos o límites no válidos.
var ErrInvalidConfig = errors.New("scheduler: configuración inválida")

// Batcher lo implementa *einvoice.Service.
type Batcher interface {
	CronSendPending(ctx context.Context, limit int) (einvoice.BatchResult, error)
	CronCheckPending(ctx context.Context, limit int) (einvoice.BatchResult, error)
}

// Config intervalos de los lotes. Intervalo 0 deshabilita el lote.
type Config struct {
	SendInterval   time.Duration
	StatusInterval time.Duration
	BatchLimit     int
	RunTimeout     time.Duration
}

// Validate revisa la configuración.
func (c Config) Validate() error {
	if c.SendInterval < 0 || c.StatusInterval < 0 || c.BatchLimit < 0 || c.RunTimeout < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Scheduler corre un loop por lote. El lease de cada lote lo controla el servicio FE,
// así que varias réplicas pueden tener el scheduler activo.
type Scheduler struct {
	cfg     Config
	batcher Batcher
	log     *logger.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New crea el scheduler.
func New(cfg Config, batcher Batcher, log *logger.Logger) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	if cfg.RunTimeout == 0 {
		cfg.RunTimeout = 5 * time.Minute
	}
	return &Scheduler{cfg: cfg, batcher: batcher, log: log.Component("scheduler")}, nil
}

// Start lanza los loops. Llamar Start dos veces no hace nada.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)

	if s.cfg.SendInterval > 0 {
		s.wg.Add(1)
		go s.loop(ctx, "send-pending", s.cfg.SendInterval, s.batcher.CronSendPending)
	}
	if s.cfg.StatusInterval > 0 {
		s.wg.Add(1)
		go s.loop(ctx, "check-pending", s.cfg.StatusInterval, s.batcher.CronCheckPending)
	}
	s.log.Info().Dur("send_interval", s.cfg.SendInterval).Dur("status_interval", s.cfg.StatusInterval).
		Msg("scheduler FE iniciado")
}

// Stop cancela los loops y espera el lote en curso o el vencimiento de ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info().Msg("scheduler FE detenido")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) loop(ctx context.Context, name string, every time.Duration,
	run func(context.Context, int) (einvoice.BatchResult, error)) {
	defer s.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, name, run)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, name string, run func(context.Context, int) (einvoice.BatchResult, error)) {
	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	res, err := run(runCtx, s.cfg.BatchLimit)
	if err != nil {
		s.log.Error().Err(err).Str("batch", name).Msg("lote FE fallido")
		return
	}
	if res.Scanned > 0 {
		s.log.Debug().Str("batch", name).Int("scanned", res.Scanned).Int("failed", res.Failed).Msg("lote FE")
	}
}
