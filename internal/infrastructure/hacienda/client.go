package hacienda

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/jhoicas/pos-einvoice-cr/internal/application/einvoice"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/fe"
	"github.com/jhoicas/pos-einvoice-cr/pkg/logger"
)

// ── Constantes de entorno ──────────────────────────────────────────────────────

const (
	// EnvStaging ambiente de pruebas (sandbox) de Hacienda.
	EnvStaging = "stag"
	// EnvProduction ambiente de producción.
	EnvProduction = "prod"

	apiURLStaging = "https://api-sandbox.comprobanteselectronicos.go.cr/recepcion/v1/"
	apiURLProd    = "https://api.comprobanteselectronicos.go.cr/recepcion/v1/"
	idpURLStaging = "https://idp.comprobanteselectronicos.go.cr/auth/realms/rut-stag/protocol/openid-connect/token"
	idpURLProd    = "https://idp.comprobanteselectronicos.go.cr/auth/realms/rut/protocol/openid-connect/token"

	defaultTimeout = 60 * time.Second
	headerCause    = "X-Error-Cause"
)

// ── Tipos ────────────────────────────────────────────────────────────────────

// Identification tipo y número de identificación en el cuerpo de /recepcion.
type Identification struct {
	Type   string `json:"tipoIdentificacion"`
	Number string `json:"numeroIdentificacion"`
}

// Submission comprobante firmado listo para POST /recepcion.
type Submission struct {
	Clave     string
	Date      time.Time
	Issuer    Identification
	Receiver  *Identification // nil para cliente general
	SignedXML []byte
}

// RawResponse respuesta de Hacienda sin normalizar: Status trae el ind-estado tal cual.
type RawResponse struct {
	Clave       string
	Status      string
	Message     string
	ResponseXML []byte
	HTTPStatus  int
}

type recepcionRequest struct {
	Clave          string          `json:"clave"`
	Fecha          string          `json:"fecha"`
	Emisor         Identification  `json:"emisor"`
	Receptor       *Identification `json:"receptor,omitempty"`
	ComprobanteXML string          `json:"comprobanteXml"`
}

type recepcionStatus struct {
	Clave        string `json:"clave"`
	Fecha        string `json:"fecha"`
	IndEstado    string `json:"ind-estado"`
	RespuestaXML string `json:"respuesta-xml"`
}

// ── Cliente ──────────────────────────────────────────────────────────────────

// ClientConfig parámetros del API de recepción y del IdP.
type ClientConfig struct {
	Environment     string // stag | prod
	APIURL          string // vacío = según Environment
	IdPURL          string
	ClientID        string // api-stag | api-prod
	Username        string
	Password        string
	Timeout         time.Duration
	BreakerFailures int
	BreakerCooldown time.Duration
}

// Client REST de recepción de comprobantes con token OAuth2 (password grant) y circuit breaker.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *CircuitBreaker
	log     *logger.Logger
}

// NewClient arma el cliente con el token source del IdP de Hacienda.
func NewClient(cfg ClientConfig, log *logger.Logger) (*Client, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("hacienda: usuario y contraseña del API son obligatorios")
	}
	apiURL, idpURL, clientID := cfg.APIURL, cfg.IdPURL, cfg.ClientID
	if cfg.Environment == EnvProduction {
		apiURL, idpURL = firstNonEmpty(apiURL, apiURLProd), firstNonEmpty(idpURL, idpURLProd)
		clientID = firstNonEmpty(clientID, "api-prod")
	} else {
		apiURL, idpURL = firstNonEmpty(apiURL, apiURLStaging), firstNonEmpty(idpURL, idpURLStaging)
		clientID = firstNonEmpty(clientID, "api-stag")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	oauthCfg := &oauth2.Config{
		ClientID: clientID,
		Endpoint: oauth2.Endpoint{TokenURL: idpURL, AuthStyle: oauth2.AuthStyleInParams},
	}
	base := &http.Client{Timeout: timeout}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	src := oauth2.ReuseTokenSource(nil, &passwordTokenSource{
		ctx: tokenCtx, cfg: oauthCfg, username: cfg.Username, password: cfg.Password,
	})
	hc := oauth2.NewClient(tokenCtx, src)
	hc.Timeout = timeout

	return NewClientWithHTTP(apiURL, hc, NewCircuitBreaker(cfg.BreakerFailures, cfg.BreakerCooldown), log), nil
}

// NewClientWithHTTP cliente con un http.Client ya autenticado (tests, proxies).
func NewClientWithHTTP(baseURL string, hc *http.Client, breaker *CircuitBreaker, log *logger.Logger) *Client {
	if breaker == nil {
		breaker = NewCircuitBreaker(0, 0)
	}
	if log == nil {
		log = logger.Nop()
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{baseURL: baseURL, http: hc, breaker: breaker, log: log.Component("hacienda")}
}

// passwordTokenSource pide un token nuevo con usuario y contraseña. El refresh token del IdP
// dura poco más que el access token, así que no se usa.
type passwordTokenSource struct {
	ctx                context.Context
	cfg                *oauth2.Config
	username, password string
}

func (s *passwordTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.cfg.PasswordCredentialsToken(s.ctx, s.username, s.password)
	if err != nil {
		return nil, fmt.Errorf("%w: token IdP: %v", einvoice.ErrTransient, err)
	}
	return tok, nil
}

// Send POST /recepcion. 202 = recibido; Hacienda procesa de forma asíncrona.
func (c *Client) Send(ctx context.Context, sub *Submission) (*RawResponse, error) {
	if sub == nil || sub.Clave == "" || len(sub.SignedXML) == 0 {
		return nil, fe.NewValidationError(fe.CodeMissingClave, "envío sin clave o sin XML firmado")
	}
	body, err := json.Marshal(recepcionRequest{
		Clave:          sub.Clave,
		Fecha:          sub.Date.In(fe.CostaRica).Format("2006-01-02T15:04:05-07:00"),
		Emisor:         sub.Issuer,
		Receptor:       sub.Receiver,
		ComprobanteXML: base64.StdEncoding.EncodeToString(sub.SignedXML),
	})
	if err != nil {
		return nil, fmt.Errorf("hacienda: serializar envío: %w", err)
	}

	var out *RawResponse
	err = c.breaker.Execute(func() error {
		status, header, respBody, err := c.do(ctx, http.MethodPost, "recepcion", body)
		if err != nil {
			return err
		}
		if err := classifyStatus(status, header.Get(headerCause), respBody); err != nil {
			return err
		}
		out = &RawResponse{Clave: sub.Clave, Status: "recibido", HTTPStatus: status}
		return nil
	}, isTransient)
	if err != nil {
		c.log.Warn().Err(err).Str("clave", sub.Clave).Msg("envío a Hacienda fallido")
		return nil, err
	}
	c.log.Info().Str("clave", sub.Clave).Int("http_status", out.HTTPStatus).Msg("comprobante recibido por Hacienda")
	return out, nil
}

// Poll GET /recepcion/{clave}.
func (c *Client) Poll(ctx context.Context, clave string) (*RawResponse, error) {
	if clave == "" {
		return nil, fe.NewValidationError(fe.CodeMissingClave, "consulta sin clave")
	}
	var out *RawResponse
	err := c.breaker.Execute(func() error {
		status, header, respBody, err := c.do(ctx, http.MethodGet, "recepcion/"+url.PathEscape(clave), nil)
		if err != nil {
			return err
		}
		if status == http.StatusNotFound {
			// Aún no registrado del lado de Hacienda.
			return fmt.Errorf("%w: clave %s sin registro en Hacienda", einvoice.ErrTransient, clave)
		}
		if err := classifyStatus(status, header.Get(headerCause), respBody); err != nil {
			return err
		}
		var st recepcionStatus
		if err := json.Unmarshal(respBody, &st); err != nil {
			return fmt.Errorf("%w: respuesta de estado inválida: %v", einvoice.ErrTransient, err)
		}
		out = &RawResponse{Clave: firstNonEmpty(st.Clave, clave), Status: st.IndEstado, HTTPStatus: status}
		if st.RespuestaXML != "" {
			xmlBytes, err := base64.StdEncoding.DecodeString(st.RespuestaXML)
			if err != nil {
				return fmt.Errorf("%w: respuesta-xml no es base64: %v", einvoice.ErrTransient, err)
			}
			out.ResponseXML = xmlBytes
			out.Message = detailMessage(xmlBytes)
		}
		return nil
	}, isTransient)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (int, http.Header, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("hacienda: crear request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, nil, nil, err
		}
		return 0, nil, nil, fmt.Errorf("%w: %s %s: %v", einvoice.ErrTransient, method, path, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: leer respuesta: %v", einvoice.ErrTransient, err)
	}
	return resp.StatusCode, resp.Header, respBody, nil
}

// classifyStatus 2xx ok; duplicado → ErrAlreadySubmitted; resto de 4xx → rechazo de
// validación; 401/403/408/429/5xx → transitorio.
func classifyStatus(status int, cause string, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	msg := firstNonEmpty(cause, strings.TrimSpace(string(body)), http.StatusText(status))
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden,
		status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", einvoice.ErrTransient, status, msg)
	case isDuplicate(msg):
		return fmt.Errorf("hacienda: %s: %w", msg, domain.ErrAlreadySubmitted)
	}
	return fe.NewValidationError(fe.CodeAuthorityRejected, "HTTP %d: %s", status, msg)
}

func isDuplicate(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "ya fue recibido") || strings.Contains(m, "ya existe") ||
		strings.Contains(m, "already")
}

func isTransient(err error) bool {
	return errors.Is(err, einvoice.ErrTransient)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
