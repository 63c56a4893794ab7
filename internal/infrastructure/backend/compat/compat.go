// Package compat adapta implementaciones heredadas de firma y envío cuyo nombre de método
// no es fijo. Los métodos se resuelven por reflexión y el resultado se expone como un
// einvoice.Backend más de la cadena.
package compat

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/jhoicas/pos-einvoice-cr/internal/application/einvoice"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain"
	"github.com/jhoicas/pos-einvoice-cr/pkg/logger"
)

// Nombres candidatos por operación, en orden de preferencia.
var (
	DefaultSendMethods   = []string{"EnqueueFromPosOrder", "SendFromPosOrder", "ProcessPosOrder", "SendToHacienda"}
	DefaultStatusMethods = []string{"CheckStatusFromPosOrder", "CheckStatus", "GetPosOrderStatus"}

	sendKeywords      = []string{"send", "hacienda"}
	preferredKeywords = []string{"xml", "electronic"}
)

var (
	ctxType     = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType     = reflect.TypeOf((*error)(nil)).Elem()
	sendReqType = reflect.TypeOf((*einvoice.SendRequest)(nil))
	statReqType = reflect.TypeOf((*einvoice.StatusRequest)(nil))
	resultType  = reflect.TypeOf((*einvoice.BackendResult)(nil))
	stringType  = reflect.TypeOf("")
)

// convención de llamada de un método resuelto
type convention int

const (
	conventionRich    convention = iota + 1 // (ctx, *Request) (*BackendResult, error)
	conventionMinimal                       // (ctx, orderID string) (string, error)
)

type resolved struct {
	name   string
	method reflect.Value
	conv   convention
}

// Option configura el adaptador.
type Option func(*Backend)

// WithSendMethods reemplaza los nombres candidatos de envío.
func WithSendMethods(names ...string) Option {
	return func(b *Backend) { b.sendNames = names }
}

// WithStatusMethods reemplaza los nombres candidatos de consulta.
func WithStatusMethods(names ...string) Option {
	return func(b *Backend) { b.statusNames = names }
}

// WithStrictDiscovery si ningún candidato existe, busca métodos de envío por palabras clave.
func WithStrictDiscovery() Option {
	return func(b *Backend) { b.strict = true }
}

// WithLogger logger del adaptador.
func WithLogger(log *logger.Logger) Option {
	return func(b *Backend) { b.log = log }
}

var (
	_ einvoice.Backend = (*Backend)(nil)
	_ einvoice.Capable = (*Backend)(nil)
)

// Backend envuelve un objeto heredado.
type Backend struct {
	name        string
	target      reflect.Value
	sendNames   []string
	statusNames []string
	strict      bool
	log         *logger.Logger

	once     sync.Once
	resolved map[string]*resolved
	tried    map[string][]string
}

// New crea el adaptador para target (normalmente un puntero).
func New(name string, target any, opts ...Option) *Backend {
	b := &Backend{
		name:        name,
		target:      reflect.ValueOf(target),
		sendNames:   DefaultSendMethods,
		statusNames: DefaultStatusMethods,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.log == nil {
		b.log = logger.Nop()
	}
	b.log = b.log.Component("fe-compat")
	return b
}

// Register envuelve target y lo agrega al registro bajo name, listo para nombrarse en
// FE_BACKENDS. Falla si el objeto no expone ningún método de envío ni de consulta.
func Register(r *einvoice.Registry, name string, target any, opts ...Option) (*Backend, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: backend heredado '%s' sin objeto", domain.ErrInvalidInput, name)
	}
	b := New(name, target, opts...)
	if !b.Supports(einvoice.OpSend) && !b.Supports(einvoice.OpCheckStatus) {
		return nil, fmt.Errorf("%w: '%s' (probados: %s)", einvoice.ErrNoCompatibleBackend, name,
			strings.Join(append(b.Tried(einvoice.OpSend), b.Tried(einvoice.OpCheckStatus)...), ", "))
	}
	if err := r.Register(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Name implementa einvoice.Backend.
func (b *Backend) Name() string { return b.name }

// Supports implementa einvoice.Capable.
func (b *Backend) Supports(op string) bool {
	b.resolve()
	return b.resolved[op] != nil
}

// Tried nombres de método evaluados para op (diagnóstico).
func (b *Backend) Tried(op string) []string {
	b.resolve()
	return append([]string(nil), b.tried[op]...)
}

// Method nombre del método resuelto para op, vacío si no hay.
func (b *Backend) Method(op string) string {
	b.resolve()
	if r := b.resolved[op]; r != nil {
		return r.name
	}
	return ""
}

// Send implementa einvoice.Backend.
func (b *Backend) Send(ctx context.Context, req *einvoice.SendRequest) (*einvoice.BackendResult, error) {
	return b.call(ctx, einvoice.OpSend, reflect.ValueOf(req), req.OrderID, req.Clave)
}

// CheckStatus implementa einvoice.Backend.
func (b *Backend) CheckStatus(ctx context.Context, req *einvoice.StatusRequest) (*einvoice.BackendResult, error) {
	return b.call(ctx, einvoice.OpCheckStatus, reflect.ValueOf(req), req.OrderID, req.Clave)
}

func (b *Backend) call(ctx context.Context, op string, req reflect.Value, orderID, clave string) (*einvoice.BackendResult, error) {
	b.resolve()
	r := b.resolved[op]
	if r == nil {
		return nil, fmt.Errorf("%w: %s sin método para %s (probados: %s)",
			einvoice.ErrOperationUnsupported, b.name, op, strings.Join(b.tried[op], ", "))
	}

	var arg reflect.Value
	if r.conv == conventionRich {
		arg = req
	} else {
		arg = reflect.ValueOf(orderID)
	}
	out := r.method.Call([]reflect.Value{reflect.ValueOf(ctx), arg})
	if errV := out[1]; !errV.IsNil() {
		return nil, errV.Interface().(error)
	}

	b.log.Debug().Str("method", r.name).Str("order_id", orderID).Msg("llamada a backend heredado")
	if r.conv == conventionRich {
		res, _ := out[0].Interface().(*einvoice.BackendResult)
		if res == nil {
			res = &einvoice.BackendResult{}
		}
		if res.Clave == "" {
			res.Clave = clave
		}
		return res, nil
	}
	return &einvoice.BackendResult{Status: out[0].String(), Clave: clave}, nil
}

func (b *Backend) resolve() {
	b.once.Do(func() {
		b.resolved = map[string]*resolved{}
		b.tried = map[string][]string{}

		sendNames := b.sendNames
		if b.strict {
			sendNames = append(append([]string(nil), sendNames...), discover(b.target.Type(), sendKeywords, preferredKeywords)...)
		}
		b.resolved[einvoice.OpSend], b.tried[einvoice.OpSend] = b.lookup(sendNames, sendReqType)
		b.resolved[einvoice.OpCheckStatus], b.tried[einvoice.OpCheckStatus] = b.lookup(b.statusNames, statReqType)

		for op, r := range b.resolved {
			if r == nil {
				b.log.Debug().Str("backend", b.name).Str("op", op).Strs("tried", b.tried[op]).Msg("operación sin método compatible")
			}
		}
	})
}

func (b *Backend) lookup(names []string, reqType reflect.Type) (*resolved, []string) {
	tried := make([]string, 0, len(names))
	if !b.target.IsValid() {
		return nil, tried
	}
	seen := map[string]bool{}
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		tried = append(tried, name)
		m := b.target.MethodByName(name)
		if !m.IsValid() {
			continue
		}
		if conv := conventionOf(m.Type(), reqType); conv != 0 {
			return &resolved{name: name, method: m, conv: conv}, tried
		}
	}
	return nil, tried
}

func conventionOf(t reflect.Type, reqType reflect.Type) convention {
	if t.NumIn() != 2 || t.NumOut() != 2 {
		return 0
	}
	if t.In(0) != ctxType || t.Out(1) != errType {
		return 0
	}
	switch {
	case t.In(1) == reqType && t.Out(0) == resultType:
		return conventionRich
	case t.In(1) == stringType && t.Out(0) == stringType:
		return conventionMinimal
	}
	return 0
}

// discover métodos exportados cuyo nombre contiene todas las palabras requeridas;
// primero los que además contienen alguna preferida.
func discover(t reflect.Type, required, preferred []string) []string {
	type candidate struct {
		name  string
		score int
	}
	var found []candidate
	for i := 0; i < t.NumMethod(); i++ {
		name := t.Method(i).Name
		lower := strings.ToLower(name)
		ok := true
		for _, kw := range required {
			if !strings.Contains(lower, kw) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		score := 0
		for _, kw := range preferred {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		found = append(found, candidate{name: name, score: score})
	}
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].score != found[j].score {
			return found[i].score > found[j].score
		}
		return found[i].name < found[j].name
	})
	names := make([]string, len(found))
	for i, c := range found {
		names[i] = c.name
	}
	return names
}
