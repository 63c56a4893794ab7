package einvoice

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
)

// Operaciones que un backend puede soportar.
const (
	OpSend        = "send"
	OpCheckStatus = "check_status"
)

var (
	// ErrOperationUnsupported lo devuelve un backend que no implementa la operación pedida.
	// El despachador prueba el siguiente backend.
	ErrOperationUnsupported = errors.New("operación no soportada por el backend")

	// ErrNoCompatibleBackend ningún backend configurado soporta la operación.
	ErrNoCompatibleBackend = errors.New("no hay backend FE compatible")

	// ErrBackendAlreadyRegistered nombre de backend repetido en el registro.
	ErrBackendAlreadyRegistered = errors.New("backend FE ya registrado")

	// ErrTransient fallo de transporte o de la autoridad que amerita reintento.
	ErrTransient = errors.New("fallo transitorio del backend FE")
)

// Backend estrategia de envío y consulta del comprobante ante Hacienda.
type Backend interface {
	Name() string
	Send(ctx context.Context, req *SendRequest) (*BackendResult, error)
	CheckStatus(ctx context.Context, req *StatusRequest) (*BackendResult, error)
}

// SendRequest comprobante firmado listo para enviar.
type SendRequest struct {
	OrderID        string
	OrderName      string
	CompanyID      string
	DocumentType   entity.DocumentType
	Clave          string
	Consecutivo    string
	IdempotencyKey string
	IssueDate      time.Time
	Issuer         Party
	Receiver       Party
	SignedXML      []byte
	Force          bool
}

// StatusRequest consulta de estado por clave.
type StatusRequest struct {
	OrderID   string
	CompanyID string
	Clave     string
}

// BackendResult respuesta del backend. Status es el token crudo: lo normaliza el llamador.
type BackendResult struct {
	Backend     string
	Status      string
	Clave       string
	Consecutivo string
	TrackID     string
	Message     string
	ResponseXML []byte
}
