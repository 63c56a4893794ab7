package fe

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
)

// statusSynonyms vocabulario de Hacienda y de los backends (sin tildes, minúsculas).
var statusSynonyms = map[string]entity.Status{
	"aceptado": entity.StatusAccepted,
	"aceptada": entity.StatusAccepted,
	"accepted": entity.StatusAccepted,
	"aprobado": entity.StatusAccepted,
	"approval": entity.StatusAccepted,
	"approved": entity.StatusAccepted,

	"rechazado": entity.StatusRejected,
	"rechazada": entity.StatusRejected,
	"rejected":  entity.StatusRejected,
	"denegado":  entity.StatusRejected,

	"error":   entity.StatusError,
	"failed":  entity.StatusError,
	"fallido": entity.StatusError,

	"enviado":  entity.StatusSent,
	"sent":     entity.StatusSent,
	"recibido": entity.StatusSent,
	"received": entity.StatusSent,

	"procesando": entity.StatusProcessing,
	"processing": entity.StatusProcessing,

	"pendiente": entity.StatusPending,
	"to_send":   entity.StatusPending,
	"pending":   entity.StatusPending,

	"draft":    entity.StatusDraft,
	"borrador": entity.StatusDraft,

	"sending":  entity.StatusSending,
	"enviando": entity.StatusSending,

	"error_retry": entity.StatusErrorRetry,
	"reintento":   entity.StatusErrorRetry,

	"complete":   entity.StatusComplete,
	"completado": entity.StatusComplete,

	"not_applicable": entity.StatusNotApplicable,
	"no_aplica":      entity.StatusNotApplicable,
}

// NormalizeStatus traduce un estado libre (español/inglés, sin importar mayúsculas ni tildes)
// al vocabulario canónico. Para tokens desconocidos devuelve StatusSent si defaultStatus,
// si no el estado actual, y por último StatusPending. Nunca falla.
func NormalizeStatus(token string, current entity.Status, defaultStatus bool) entity.Status {
	if s, ok := statusSynonyms[foldToken(token)]; ok {
		return s
	}
	if defaultStatus {
		return entity.StatusSent
	}
	if current != "" {
		return current
	}
	return entity.StatusPending
}

// IsTerminal estados que detienen el reprocesamiento salvo reenvío forzado.
func IsTerminal(s entity.Status) bool {
	switch s {
	case entity.StatusAccepted, entity.StatusRejected, entity.StatusNotApplicable:
		return true
	}
	return false
}

// IsFinal estados definitivos del lado de Hacienda (guardia de idempotencia).
func IsFinal(s entity.Status) bool {
	switch s {
	case entity.StatusAccepted, entity.StatusRejected, entity.StatusComplete:
		return true
	}
	return false
}

func foldToken(token string) string {
	s := strings.ToLower(strings.TrimSpace(token))
	if s == "" {
		return s
	}
	// transform.Chain tiene estado interno: uno por llamada.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
