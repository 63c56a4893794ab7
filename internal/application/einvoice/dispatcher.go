package einvoice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jhoicas/pos-einvoice-cr/pkg/logger"
)

// Capable lo implementan los backends que conocen de antemano qué operaciones soportan.
// Un backend que no lo implementa se asume capaz de todo.
type Capable interface {
	Supports(op string) bool
}

// DispatchError ningún backend de la cadena soportó la operación. Es un error de
// configuración: no se registra como reintento del documento.
type DispatchError struct {
	Op    string
	Tried []string
}

func (e *DispatchError) Error() string {
	if len(e.Tried) == 0 {
		return fmt.Sprintf("%s: operación %q sin backends configurados", ErrNoCompatibleBackend, e.Op)
	}
	return fmt.Sprintf("%s: operación %q, probados: %s", ErrNoCompatibleBackend, e.Op, strings.Join(e.Tried, ", "))
}

// Unwrap permite errors.Is(err, ErrNoCompatibleBackend).
func (e *DispatchError) Unwrap() error { return ErrNoCompatibleBackend }

// Dispatcher prueba la cadena de backends en orden; el primero que soporte la operación responde.
type Dispatcher struct {
	chain []Backend
	log   *logger.Logger
}

// NewDispatcher construye el despachador con la cadena ya resuelta (ver Registry.Chain).
func NewDispatcher(chain []Backend, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{chain: chain, log: log}
}

// Backends nombres de la cadena, en orden.
func (d *Dispatcher) Backends() []string {
	names := make([]string, len(d.chain))
	for i, b := range d.chain {
		names[i] = b.Name()
	}
	return names
}

// Discover devuelve el primer backend capaz de op.
func (d *Dispatcher) Discover(op string) (Backend, error) {
	tried := make([]string, 0, len(d.chain))
	for _, b := range d.chain {
		if supports(b, op) {
			return b, nil
		}
		tried = append(tried, b.Name())
	}
	return nil, &DispatchError{Op: op, Tried: tried}
}

// Send envía el comprobante por el primer backend que lo soporte.
func (d *Dispatcher) Send(ctx context.Context, req *SendRequest) (*BackendResult, error) {
	return d.dispatch(ctx, OpSend, req.OrderID, func(b Backend) (*BackendResult, error) {
		return b.Send(ctx, req)
	})
}

// CheckStatus consulta el estado por el primer backend que lo soporte.
func (d *Dispatcher) CheckStatus(ctx context.Context, req *StatusRequest) (*BackendResult, error) {
	return d.dispatch(ctx, OpCheckStatus, req.OrderID, func(b Backend) (*BackendResult, error) {
		return b.CheckStatus(ctx, req)
	})
}

func (d *Dispatcher) dispatch(ctx context.Context, op, orderID string, call func(Backend) (*BackendResult, error)) (*BackendResult, error) {
	tried := make([]string, 0, len(d.chain))
	for _, b := range d.chain {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tried = append(tried, b.Name())
		if !supports(b, op) {
			continue
		}
		res, err := call(b)
		if errors.Is(err, ErrOperationUnsupported) {
			d.log.Debug().Str("backend", b.Name()).Str("op", op).Str("order_id", orderID).Msg("backend no soporta la operación")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("backend %s: %w", b.Name(), err)
		}
		if res == nil {
			res = &BackendResult{}
		}
		if res.Backend == "" {
			res.Backend = b.Name()
		}
		return res, nil
	}
	return nil, &DispatchError{Op: op, Tried: tried}
}

func supports(b Backend, op string) bool {
	if c, ok := b.(Capable); ok {
		return c.Supports(op)
	}
	return true
}
