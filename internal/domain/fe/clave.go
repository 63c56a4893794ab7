// Consecutivo y clave numérica del comprobante electrónico (Hacienda, versión 4.4).
// Formatos de ancho fijo: cualquier desviación provoca rechazo del comprobante.

package fe

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
	"github.com/jhoicas/pos-einvoice-cr/pkg/hacienda"
)

// Longitudes de los componentes.
const (
	BranchLen       = 3
	TerminalLen     = 5
	DocCodeLen      = 2
	SequenceLen     = 10
	ConsecutivoLen  = BranchLen + TerminalLen + DocCodeLen + SequenceLen // 20
	TaxIDLen        = 12
	SecurityCodeLen = 8
	ClaveLen        = 3 + 6 + TaxIDLen + ConsecutivoLen + 1 + SecurityCodeLen // 50
)

// CostaRica zona horaria de emisión (UTC-6, sin horario de verano).
var CostaRica = time.FixedZone("America/Costa_Rica", -6*60*60)

// MaxSequence mayor valor representable en 10 dígitos.
const MaxSequence int64 = 9_999_999_999

// ClaveParams datos para construir la clave numérica.
type ClaveParams struct {
	IssueDate    time.Time
	IssuerTaxID  string // solo se usan los dígitos
	Consecutivo  string // 20 dígitos
	Situation    string // 1 normal, 2 contingencia, 3 sin internet
	SecurityCode string // 8 dígitos
}

// BuildConsecutivo arma sucursal(3) + terminal(5) + tipo(2) + secuencia(10).
func BuildConsecutivo(branch, terminal, docCode string, seq int64) (string, error) {
	if seq <= 0 || seq > MaxSequence {
		return "", NewValidationError(CodeInvalidSequence, "secuencia %d fuera de rango (1..%d)", seq, MaxSequence)
	}
	b, err := padDigits("sucursal", branch, BranchLen)
	if err != nil {
		return "", NewValidationError(CodeInvalidSequence, "%v", err)
	}
	t, err := padDigits("terminal", terminal, TerminalLen)
	if err != nil {
		return "", NewValidationError(CodeInvalidSequence, "%v", err)
	}
	if len(docCode) != DocCodeLen || hacienda.OnlyDigits(docCode) != docCode {
		return "", NewValidationError(CodeInvalidSequence, "tipo de comprobante %q inválido", docCode)
	}
	return b + t + docCode + fmt.Sprintf("%0*d", SequenceLen, seq), nil
}

// ValidateIssuerCodes revisa sucursal, terminal e identificación del emisor.
// Debe pasar antes de pedir el siguiente número de la secuencia: un número tomado
// sin consecutivo armado queda como hueco.
func ValidateIssuerCodes(c *entity.Company) error {
	return errors.Join(issuerCodeErrors(c)...)
}

func issuerCodeErrors(c *entity.Company) []error {
	if c == nil {
		return []error{NewValidationError(CodeInvalidIssuerCodes, "emisor nulo")}
	}
	var errs []error
	if _, err := padDigits("sucursal", c.BranchCode, BranchLen); err != nil {
		errs = append(errs, NewValidationError(CodeInvalidIssuerCodes, "%v", err))
	}
	if _, err := padDigits("terminal", c.TerminalCode, TerminalLen); err != nil {
		errs = append(errs, NewValidationError(CodeInvalidIssuerCodes, "%v", err))
	}
	if c.TaxID != "" {
		if _, err := padDigits("identificación del emisor", c.TaxID, TaxIDLen); err != nil {
			errs = append(errs, NewValidationError(CodeInvalidIssuerCodes, "%v", err))
		}
	}
	return errs
}

// BuildClave arma 506 + ddmmyy + identificación(12) + consecutivo(20) + situación(1) + seguridad(8).
func BuildClave(p ClaveParams) (string, error) {
	if p.IssueDate.IsZero() {
		return "", NewValidationError(CodeInvalidSequence, "fecha de emisión obligatoria para la clave")
	}
	taxID, err := padDigits("identificación del emisor", p.IssuerTaxID, TaxIDLen)
	if err != nil {
		return "", NewValidationError(CodeMissingTaxID, "%v", err)
	}
	if len(p.Consecutivo) != ConsecutivoLen || hacienda.OnlyDigits(p.Consecutivo) != p.Consecutivo {
		return "", NewValidationError(CodeInvalidSequence, "consecutivo %q debe tener %d dígitos", p.Consecutivo, ConsecutivoLen)
	}
	situation := p.Situation
	if situation == "" {
		situation = hacienda.SituationNormal
	}
	if !hacienda.ValidSituations[situation] {
		return "", NewValidationError(CodeInvalidSequence, "situación %q inválida", situation)
	}
	if len(p.SecurityCode) != SecurityCodeLen || hacienda.OnlyDigits(p.SecurityCode) != p.SecurityCode {
		return "", NewValidationError(CodeInvalidSequence, "código de seguridad %q debe tener %d dígitos", p.SecurityCode, SecurityCodeLen)
	}

	var sb strings.Builder
	sb.Grow(ClaveLen)
	sb.WriteString(hacienda.CountryCode)
	sb.WriteString(p.IssueDate.In(CostaRica).Format("020106"))
	sb.WriteString(taxID)
	sb.WriteString(p.Consecutivo)
	sb.WriteString(situation)
	sb.WriteString(p.SecurityCode)
	return sb.String(), nil
}

// NewSecurityCode genera 8 dígitos aleatorios.
func NewSecurityCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100_000_000))
	if err != nil {
		return "", fmt.Errorf("fe: generar código de seguridad: %w", err)
	}
	return fmt.Sprintf("%0*d", SecurityCodeLen, n.Int64()), nil
}

// SequenceFromConsecutivo extrae la secuencia sin ceros a la izquierda
// ("00100001040000000099" → "99").
func SequenceFromConsecutivo(consecutivo string) (string, error) {
	if len(consecutivo) != ConsecutivoLen {
		return "", fmt.Errorf("fe: consecutivo %q debe tener %d dígitos", consecutivo, ConsecutivoLen)
	}
	n, err := strconv.ParseInt(consecutivo[ConsecutivoLen-SequenceLen:], 10, 64)
	if err != nil {
		return "", fmt.Errorf("fe: secuencia inválida en %q: %w", consecutivo, err)
	}
	return strconv.FormatInt(n, 10), nil
}

// DocCodeFromConsecutivo devuelve las posiciones 9-10 (tipo de comprobante).
func DocCodeFromConsecutivo(consecutivo string) string {
	if len(consecutivo) != ConsecutivoLen {
		return ""
	}
	return consecutivo[BranchLen+TerminalLen : BranchLen+TerminalLen+DocCodeLen]
}

// BuildIdempotencyKey POS-{compañía}-{perfil}-{nombre del pedido | id}.
func BuildIdempotencyKey(companyID, configID, orderName, orderID string) string {
	ref := orderName
	if ref == "" {
		ref = orderID
	}
	return fmt.Sprintf("POS-%s-%s-%s", companyID, configID, ref)
}

func padDigits(field, value string, width int) (string, error) {
	digits := hacienda.OnlyDigits(value)
	if digits == "" {
		return "", fmt.Errorf("fe: %s vacío", field)
	}
	if len(digits) > width {
		return "", fmt.Errorf("fe: %s %q excede %d dígitos", field, value, width)
	}
	return strings.Repeat("0", width-len(digits)) + digits, nil
}
