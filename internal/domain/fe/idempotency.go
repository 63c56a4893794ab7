package fe

import (
	"sort"

	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
)

// Razones de la guardia de idempotencia.
const (
	ReasonOK                  = "ok"
	ReasonAlreadyProcessed    = "already_processed"
	ReasonIdempotencyMismatch = "idempotency_key_mismatch"
)

// CheckIdempotency decide si el documento puede enviarse con la clave de idempotencia dada.
// Un documento con clave ya asignada por Hacienda y enviado, o en estado final, se considera
// procesado; una clave distinta a la registrada indica un pedido mezclado.
func CheckIdempotency(doc *entity.ElectronicDocument, key string) (bool, string) {
	if key != "" && doc.IdempotencyKey != "" && doc.IdempotencyKey != key {
		return false, ReasonIdempotencyMismatch
	}
	if IsFinal(doc.Status) {
		return false, ReasonAlreadyProcessed
	}
	if doc.Clave != "" && doc.LastSendDate != nil &&
		(doc.Status == entity.StatusSent || doc.Status == entity.StatusProcessing) {
		return false, ReasonAlreadyProcessed
	}
	return true, ReasonOK
}

// PrimaryPayment pago de mayor monto absoluto; en empate, el de menor ID.
func PrimaryPayment(payments []entity.Payment) *entity.Payment {
	if len(payments) == 0 {
		return nil
	}
	sorted := make([]entity.Payment, len(payments))
	copy(sorted, payments)
	sort.SliceStable(sorted, func(i, j int) bool {
		ai, aj := sorted[i].Amount.Abs(), sorted[j].Amount.Abs()
		if !ai.Equal(aj) {
			return ai.GreaterThan(aj)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return &sorted[0]
}
