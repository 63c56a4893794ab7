package einvoice_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/pos-einvoice-cr/internal/application/einvoice"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
)

func TestSyncFromAccounting(t *testing.T) {
	status, clave, consec, code := "Aceptado", "506K", "00100001010000000007", "0"
	next := time.Now()
	doc := entity.ElectronicDocument{Status: entity.StatusSent, NextTry: &next, RetryCount: 2}

	changed := einvoice.SyncFromAccounting(&doc, &entity.AccountingDocument{
		ID: "inv-1", MoveType: entity.MoveTypeOutInvoice, State: "posted",
		FEStatus: &status, FEClave: &clave, FEConsec: &consec, FEErrorCode: &code,
	})
	assert.True(t, changed)
	assert.Equal(t, entity.DocumentTypeInvoice, doc.DocumentType)
	assert.Equal(t, entity.StatusAccepted, doc.Status)
	assert.Equal(t, clave, doc.Clave)
	assert.Equal(t, consec, doc.Consecutivo)
	assert.Equal(t, "0", doc.ErrorCode)
	assert.Nil(t, doc.NextTry)
	assert.Zero(t, doc.RetryCount)
}

func TestSyncFromAccounting_CamposOpcionales(t *testing.T) {
	doc := entity.ElectronicDocument{}
	changed := einvoice.SyncFromAccounting(&doc, &entity.AccountingDocument{MoveType: entity.MoveTypeOutRefund, State: "posted"})
	assert.True(t, changed)
	assert.Equal(t, entity.DocumentTypeCreditNote, doc.DocumentType)
	assert.Equal(t, entity.StatusPending, doc.Status)

	unknown := "???"
	einvoice.SyncFromAccounting(&doc, &entity.AccountingDocument{MoveType: entity.MoveTypeOutRefund, State: "posted", FEStatus: &unknown})
	assert.Equal(t, entity.StatusPending, doc.Status, "estado desconocido conserva el actual")

	assert.False(t, einvoice.SyncFromAccounting(&doc, nil))
	assert.False(t, einvoice.SyncFromAccounting(&doc, &entity.AccountingDocument{MoveType: entity.MoveTypeOutInvoice, State: "cancel"}))
}
