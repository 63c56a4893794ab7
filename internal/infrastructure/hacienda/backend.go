package hacienda

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/pos-einvoice-cr/internal/application/einvoice"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/fe"
	"github.com/jhoicas/pos-einvoice-cr/pkg/logger"
)

// Nombres de las estrategias integradas.
const (
	BackendHacienda = "hacienda"
	BackendLocal    = "local"
)

// AuthorityClient API de recepción de Hacienda (lo implementa *Client).
type AuthorityClient interface {
	Send(ctx context.Context, sub *Submission) (*RawResponse, error)
	Poll(ctx context.Context, clave string) (*RawResponse, error)
}

var _ einvoice.Backend = (*APIBackend)(nil)

// APIBackend envía directo al API REST de Hacienda.
type APIBackend struct {
	client AuthorityClient
}

// NewAPIBackend construye la estrategia "hacienda".
func NewAPIBackend(client AuthorityClient) *APIBackend {
	return &APIBackend{client: client}
}

// Name implementa einvoice.Backend.
func (b *APIBackend) Name() string { return BackendHacienda }

// Send implementa einvoice.Backend.
func (b *APIBackend) Send(ctx context.Context, req *einvoice.SendRequest) (*einvoice.BackendResult, error) {
	sub := &Submission{
		Clave:     req.Clave,
		Date:      req.IssueDate,
		Issuer:    Identification{Type: req.Issuer.IdentificationType, Number: req.Issuer.TaxID},
		SignedXML: req.SignedXML,
	}
	if req.Receiver.TaxID != "" {
		sub.Receiver = &Identification{Type: req.Receiver.IdentificationType, Number: req.Receiver.TaxID}
	}
	raw, err := b.client.Send(ctx, sub)
	if err != nil {
		return nil, err
	}
	return &einvoice.BackendResult{
		Backend:     BackendHacienda,
		Status:      raw.Status,
		Clave:       req.Clave,
		Consecutivo: req.Consecutivo,
		TrackID:     req.Clave,
		Message:     raw.Message,
		ResponseXML: raw.ResponseXML,
	}, nil
}

// CheckStatus implementa einvoice.Backend.
func (b *APIBackend) CheckStatus(ctx context.Context, req *einvoice.StatusRequest) (*einvoice.BackendResult, error) {
	raw, err := b.client.Poll(ctx, req.Clave)
	if err != nil {
		return nil, err
	}
	return &einvoice.BackendResult{
		Backend:     BackendHacienda,
		Status:      raw.Status,
		Clave:       raw.Clave,
		TrackID:     raw.Clave,
		Message:     raw.Message,
		ResponseXML: raw.ResponseXML,
	}, nil
}

var _ einvoice.Backend = (*LocalBackend)(nil)

// LocalBackend simulación para desarrollo: no sale a la red. El envío queda "enviado" y la
// primera consulta posterior lo da por aceptado.
type LocalBackend struct {
	log *logger.Logger
	now func() time.Time

	mu   sync.Mutex
	sent map[string]time.Time // clave → fecha de envío
}

// NewLocalBackend construye la estrategia "local".
func NewLocalBackend(log *logger.Logger) *LocalBackend {
	if log == nil {
		log = logger.Nop()
	}
	return &LocalBackend{log: log.Component("fe-local"), now: time.Now, sent: map[string]time.Time{}}
}

// Name implementa einvoice.Backend.
func (b *LocalBackend) Name() string { return BackendLocal }

// Send implementa einvoice.Backend.
func (b *LocalBackend) Send(_ context.Context, req *einvoice.SendRequest) (*einvoice.BackendResult, error) {
	if req.Clave == "" {
		return nil, fe.NewValidationError(fe.CodeMissingClave, "envío local sin clave")
	}
	b.mu.Lock()
	b.sent[req.Clave] = b.now()
	b.mu.Unlock()

	b.log.Info().Str("order_id", req.OrderID).Str("clave", req.Clave).Msg("envío simulado (local)")
	return &einvoice.BackendResult{
		Backend:     BackendLocal,
		Status:      "sent",
		Clave:       req.Clave,
		Consecutivo: req.Consecutivo,
		TrackID:     "LOCAL-" + req.Clave[len(req.Clave)-min(8, len(req.Clave)):],
		Message:     "modo local: no se envió a Hacienda",
	}, nil
}

// CheckStatus implementa einvoice.Backend.
func (b *LocalBackend) CheckStatus(_ context.Context, req *einvoice.StatusRequest) (*einvoice.BackendResult, error) {
	b.mu.Lock()
	_, ok := b.sent[req.Clave]
	b.mu.Unlock()
	status := "aceptado"
	if !ok {
		// Enviado por otra instancia o antes de reiniciar: se asume aceptado igual.
		b.log.Debug().Str("clave", req.Clave).Msg("clave desconocida en modo local")
	}
	return &einvoice.BackendResult{
		Backend: BackendLocal,
		Status:  status,
		Clave:   req.Clave,
		TrackID: req.Clave,
		Message: fmt.Sprintf("modo local: %s", strings.ToLower(status)),
	}, nil
}
