package einvoice

import (
	"time"

	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/fe"
)

// SyncFromAccounting copia al registro FE del pedido el estado del documento contable.
// Es el único punto que traduce el vocabulario del servicio contable al canónico.
// Devuelve true si algún campo cambió.
func SyncFromAccounting(doc *entity.ElectronicDocument, acct *entity.AccountingDocument) bool {
	if doc == nil || !acct.IsRealInvoice() {
		return false
	}
	before := *doc

	doc.DocumentType = acct.DocumentType()
	if acct.FEStatus != nil {
		doc.Status = fe.NormalizeStatus(*acct.FEStatus, doc.Status, false)
	} else if doc.Status == "" {
		doc.Status = entity.StatusPending
	}
	if acct.FEClave != nil && *acct.FEClave != "" {
		doc.Clave = *acct.FEClave
	}
	if acct.FEConsec != nil && *acct.FEConsec != "" {
		doc.Consecutivo = *acct.FEConsec
	}
	if acct.FEErrorCode != nil {
		doc.ErrorCode = *acct.FEErrorCode
	}
	if fe.IsTerminal(doc.Status) || doc.Status == entity.StatusComplete {
		doc.NextTry = nil
	}
	// El pedido no reintenta por su cuenta en el track factura.
	doc.RetryCount = 0

	return !sameDocument(before, *doc)
}

// scheduleInvoiceTrackPoll reprograma el pedido del track factura: mientras la factura
// no llegue a un estado final se vuelve a mirar cada StatusPollInterval.
// El código de error sincronizado desde contabilidad se conserva.
func scheduleInvoiceTrackPoll(doc *entity.ElectronicDocument, now time.Time) {
	if fe.IsTerminal(doc.Status) || doc.Status == entity.StatusComplete {
		doc.NextTry = nil
		return
	}
	next := now.Add(fe.StatusPollInterval)
	doc.NextTry = &next
}

func sameDocument(a, b entity.ElectronicDocument) bool {
	return a.DocumentType == b.DocumentType &&
		a.Status == b.Status &&
		a.Clave == b.Clave &&
		a.Consecutivo == b.Consecutivo &&
		a.ErrorCode == b.ErrorCode &&
		a.RetryCount == b.RetryCount &&
		(a.NextTry == nil) == (b.NextTry == nil)
}
