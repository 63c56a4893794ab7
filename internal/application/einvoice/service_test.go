package einvoice_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-einvoice-cr/internal/application/einvoice"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/fe"
)

func TestTicketFlow_EnviaYConsultaEstado(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.db.put(ticketOrder("o-1", "Shop/0001"))

	require.NoError(t, f.svc.ProcessAfterFinalization(ctx, "o-1", false))
	o := f.db.order("o-1")
	assert.Equal(t, entity.DocumentTypeTicket, o.FE.DocumentType)
	assert.Equal(t, entity.StatusPending, o.FE.Status)
	assert.Equal(t, "POS-c-1-cfg-1-Shop/0001", o.FE.IdempotencyKey)
	require.NotNil(t, o.FE.NextTry)
	assert.Equal(t, baseNow, *o.FE.NextTry)

	sent, err := f.svc.SendNow(ctx, "o-1", false)
	require.NoError(t, err)
	assert.True(t, sent)

	o = f.db.order("o-1")
	assert.Equal(t, "00100001040000000001", o.FE.Consecutivo)
	assert.Equal(t, "04", o.FE.Consecutivo[8:10])
	assert.Len(t, o.FE.Clave, fe.ClaveLen)
	assert.Equal(t, "506"+"150324"+"003101123456"+o.FE.Consecutivo+"1"+"00000001", o.FE.Clave)
	assert.Equal(t, entity.StatusSent, o.FE.Status)
	assert.Zero(t, o.FE.RetryCount)
	assert.Empty(t, o.FE.LastError)
	require.NotNil(t, o.FE.LastSendDate)
	assert.Equal(t, baseNow, *o.FE.LastSendDate)
	require.NotNil(t, o.FE.NextTry)
	assert.Equal(t, baseNow.Add(5*time.Minute), *o.FE.NextTry)
	assert.NotEmpty(t, o.FE.XMLAttachment)
	assert.NotEmpty(t, o.FE.ResponseAttachment)
	assert.Equal(t, "1", f.db.lastConsec["c-1/ticket"])

	require.Equal(t, 1, f.backend.sendCount())
	req := f.backend.sends[0]
	assert.Equal(t, o.FE.Clave, req.Clave)
	assert.Contains(t, string(req.SignedXML), "<Signature/>")
	assert.Equal(t, "3101123456", req.Issuer.TaxID)

	f.backend.statusFn = func(*einvoice.StatusRequest) (*einvoice.BackendResult, error) {
		return &einvoice.BackendResult{Status: "aceptado", ResponseXML: []byte("<MensajeHacienda/>")}, nil
	}
	f.now = baseNow.Add(5 * time.Minute)
	status, err := f.svc.CheckStatus(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAccepted, status)

	o = f.db.order("o-1")
	assert.Equal(t, entity.StatusAccepted, o.FE.Status)
	assert.Nil(t, o.FE.NextTry)
}

func TestSendNow_EsIdempotente(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.db.put(ticketOrder("o-1", "Shop/0001"))
	require.NoError(t, f.svc.ProcessAfterFinalization(ctx, "o-1", false))

	for i := 0; i < 3; i++ {
		sent, err := f.svc.SendNow(ctx, "o-1", false)
		require.NoError(t, err)
		assert.True(t, sent)
	}
	assert.Equal(t, 1, f.backend.sendCount())
	assert.Equal(t, 1, f.signer.count())

	// Reprocesar tras la finalización no reencola.
	require.NoError(t, f.svc.ProcessAfterFinalization(ctx, "o-1", false))
	assert.Equal(t, entity.StatusSent, f.db.order("o-1").FE.Status)
}

func TestSendNow_ForzadoReenviaConMismosIdentificadores(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.db.put(ticketOrder("o-1", "Shop/0001"))
	require.NoError(t, f.svc.ProcessAfterFinalization(ctx, "o-1", false))
	_, err := f.svc.SendNow(ctx, "o-1", false)
	require.NoError(t, err)
	first := f.db.order("o-1").FE

	sent, err := f.svc.ForceResend(ctx, "o-1")
	require.NoError(t, err)
	assert.True(t, sent)

	again := f.db.order("o-1").FE
	assert.Equal(t, first.Clave, again.Clave)
	assert.Equal(t, first.Consecutivo, again.Consecutivo)
	assert.Equal(t, 2, f.backend.sendCount())
	assert.Equal(t, 2, f.signer.count())
	assert.NotEqual(t, first.XMLAttachment, again.XMLAttachment, "los adjuntos no se sobrescriben")
}

func TestSendNow_FallosDeTransporteConBackoff(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.db.put(ticketOrder("o-1", "Shop/0001"))
	require.NoError(t, f.svc.ProcessAfterFinalization(ctx, "o-1", false))

	f.backend.sendFn = func(*einvoice.SendRequest) (*einvoice.BackendResult, error) {
		return nil, errors.New("dial tcp: i/o timeout")
	}

	var consecutivo string
	for i, wantDelay := range []time.Duration{5 * time.Minute, 10 * time.Minute, 15 * time.Minute} {
		sent, err := f.svc.SendNow(ctx, "o-1", false)
		assert.False(t, sent)
		require.ErrorIs(t, err, einvoice.ErrTransient)

		o := f.db.order("o-1")
		assert.Equal(t, entity.StatusErrorRetry, o.FE.Status)
		assert.Equal(t, i+1, o.FE.RetryCount)
		assert.Equal(t, einvoice.ErrorCodeTransport, o.FE.ErrorCode)
		assert.Contains(t, o.FE.LastError, "i/o timeout")
		require.NotNil(t, o.FE.NextTry)
		assert.Equal(t, wantDelay, o.FE.NextTry.Sub(f.now))

		if consecutivo == "" {
			consecutivo = o.FE.Consecutivo
		}
		assert.Equal(t, consecutivo, o.FE.Consecutivo, "los reintentos no asignan otro consecutivo")
		f.now = *o.FE.NextTry
	}
	assert.Equal(t, 1, f.signer.count(), "el XML firmado se reutiliza")

	f.backend.sendFn = nil
	sent, err := f.svc.SendNow(ctx, "o-1", false)
	require.NoError(t, err)
	assert.True(t, sent)
	o := f.db.order("o-1")
	assert.Equal(t, entity.StatusSent, o.FE.Status)
	assert.Zero(t, o.FE.RetryCount)
	assert.Empty(t, o.FE.LastError)
	assert.Empty(t, o.FE.ErrorCode)
}

func TestSendNow_ErrorDeValidacionNoReintenta(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.db.companies["c-1"].TaxID = ""
	f.db.put(ticketOrder("o-1", "Shop/0001"))
	require.NoError(t, f.svc.ProcessAfterFinalization(ctx, "o-1", false))

	sent, err := f.svc.SendNow(ctx, "o-1", false)
	assert.False(t, sent)
	require.ErrorIs(t, err, fe.ErrInvalidDocument)
	assert.Equal(t, fe.CodeMissingTaxID, fe.ValidationCode(err))

	o := f.db.order("o-1")
	assert.Equal(t, entity.StatusError, o.FE.Status)
	assert.Equal(t, fe.CodeMissingTaxID, o.FE.ErrorCode)
	assert.Nil(t, o.FE.NextTry)
	assert.Empty(t, o.FE.Consecutivo)
	assert.Zero(t, f.backend.sendCount())

	// error no es enviable sin force
	sent, err = f.svc.SendNow(ctx, "o-1", false)
	assert.NoError(t, err)
	assert.False(t, sent)
}

func TestPrepare_AsignaIdentificadoresUnaSolaVez(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.db.put(ticketOrder("o-1", "Shop/0001"))
	require.NoError(t, f.svc.ProcessAfterFinalization(ctx, "o-1", false))

	p1, err := f.svc.Prepare(ctx, "o-1")
	require.NoError(t, err)
	p2, err := f.svc.Prepare(ctx, "o-1")
	require.NoError(t, err)

	assert.Equal(t, p1.Clave, p2.Clave)
	assert.Equal(t, p1.Consecutivo, p2.Consecutivo)
	assert.Equal(t, p1.IdempotencyKey, p2.IdempotencyKey)
	require.NotNil(t, p1.Payload)
	assert.True(t, p1.Payload.GeneralCustomer)
	assert.Equal(t, int64(1), f.db.seq["c-1/ticket"])
}

func TestTracksMutuamenteExcluyentes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.accounting.docs["inv-1"] = &entity.AccountingDocument{
		ID: "inv-1", Name: "FAC/2024/0001", MoveType: entity.MoveTypeOutInvoice, State: "posted",
	}
	o := ticketOrder("o-1", "Shop/0001")
	o.AccountingDocumentID = "inv-1"
	o.State = entity.OrderStateInvoiced
	f.db.put(o)

	require.NoError(t, f.svc.ProcessAfterFinalization(ctx, "o-1", false))
	assert.Equal(t, []string{"inv-1"}, f.accounting.marked)
	got := f.db.order("o-1")
	assert.Equal(t, entity.DocumentTypeInvoice, got.FE.DocumentType)
	assert.Equal(t, entity.StatusPending, got.FE.Status)

	_, err := f.svc.Prepare(ctx, "o-1")
	require.Error(t, err)
	assert.Equal(t, fe.CodeTicketTrackBlocked, fe.ValidationCode(err))
	got = f.db.order("o-1")
	assert.Equal(t, entity.StatusPending, got.FE.Status, "el registro del track factura no se toca")
	assert.Empty(t, got.FE.Consecutivo)

	clave := "50601012400310112345600100001010000000001100000001"
	f.accounting.docs["inv-1"].FEClave = &clave
	f.accounting.sendStatus = "aceptada"
	sent, err := f.svc.SendNow(ctx, "o-1", false)
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, []string{"inv-1"}, f.accounting.sendRequest)
	assert.Zero(t, f.backend.sendCount(), "el pedido nunca envía tiquete")

	got = f.db.order("o-1")
	assert.Equal(t, entity.StatusAccepted, got.FE.Status)
	assert.Equal(t, clave, got.FE.Clave)

	view, err := f.svc.Document(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, einvoice.TrackInvoice, view.Track)
}

func refundOrder(id string, refundedLine string) *entity.Order {
	o := ticketOrder(id, "Shop/0002")
	o.AmountTotal = decimal.RequireFromString("-1130")
	o.AmountTax = decimal.RequireFromString("-130")
	o.Lines[0].Qty = decimal.NewFromInt(-1)
	o.Lines[0].Subtotal = decimal.RequireFromString("-1000")
	o.Lines[0].SubtotalIncl = decimal.RequireFromString("-1130")
	o.Lines[0].RefundedLineID = refundedLine
	o.Payments[0].Amount = decimal.RequireFromString("-1130")
	return o
}

func TestCreditNoteFlow_ReferenciaAlTiqueteOriginal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	d1 := time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)
	origin := ticketOrder("o-1", "Shop/0001")
	origin.DateOrder = d1
	origin.FE = entity.ElectronicDocument{DocumentType: entity.DocumentTypeTicket, Status: entity.StatusAccepted, Clave: "K1"}
	f.db.put(origin)
	f.db.put(refundOrder("o-2", "o-1-l1"))

	require.NoError(t, f.svc.ProcessAfterFinalization(ctx, "o-2", false))
	o := f.db.order("o-2")
	assert.Equal(t, entity.DocumentTypeCreditNote, o.FE.DocumentType)
	assert.Equal(t, entity.Reference{
		DocumentTypeCode: "04",
		Number:           "K1",
		IssueDate:        d1,
		ReasonCode:       "01",
		ReasonText:       "return of merchandise",
	}, o.FE.Reference)

	prepared, err := f.svc.Prepare(ctx, "o-2")
	require.NoError(t, err)
	assert.Equal(t, "00100001030000000001", prepared.Consecutivo)
	require.NotNil(t, prepared.Payload.Reference)
	assert.Equal(t, "K1", prepared.Payload.Reference.Number)
	assert.True(t, prepared.Payload.Summary.GrandTotal.Equal(decimal.RequireFromString("1130")), "montos en valor absoluto")

	sent, err := f.svc.SendNow(ctx, "o-2", false)
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, entity.DocumentTypeCreditNote, f.backend.sends[0].DocumentType)
}

func TestCreditNote_SinReferenciaSeDifiere(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	origin := ticketOrder("o-1", "Shop/0001")
	origin.DateOrder = time.Time{}
	f.db.put(origin)
	f.db.put(refundOrder("o-2", "o-1-l1"))

	require.NoError(t, f.svc.ProcessAfterFinalization(ctx, "o-2", false))
	assert.True(t, f.db.order("o-2").FE.Reference.IsEmpty())

	sent, err := f.svc.SendNow(ctx, "o-2", false)
	assert.False(t, sent)
	assert.Equal(t, fe.CodeIncompleteReference, fe.ValidationCode(err))

	o := f.db.order("o-2")
	assert.Equal(t, entity.StatusPending, o.FE.Status)
	assert.Equal(t, fe.CodeIncompleteReference, o.FE.ErrorCode)
	assert.NotEmpty(t, o.FE.LastError)
	require.NotNil(t, o.FE.NextTry)
	assert.Empty(t, o.FE.Clave)
	assert.Zero(t, f.backend.sendCount())
}

func TestProcessAfterFinalization_FEDeshabilitada(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.configs["cfg-2"] = &entity.PosConfig{ID: "cfg-2", CompanyID: "c-1", FEEnabled: false}
	o := ticketOrder("o-1", "Shop/0001")
	o.ConfigID = "cfg-2"
	f.db.put(o)

	require.NoError(t, f.svc.ProcessAfterFinalization(ctx, "o-1", false))
	got := f.db.order("o-1")
	assert.Equal(t, entity.StatusNotApplicable, got.FE.Status)
	assert.Equal(t, entity.DocumentTypeNotApplicable, got.FE.DocumentType)

	docType, err := f.svc.Classify(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentTypeNotApplicable, docType)

	sent, err := f.svc.SendNow(ctx, "o-1", true)
	assert.NoError(t, err)
	assert.False(t, sent)
	assert.Zero(t, f.backend.sendCount())
}

func TestProcessAfterFinalization_PedidoNoFinalizado(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := ticketOrder("o-1", "Shop/0001")
	o.State = entity.OrderStateDraft
	f.db.put(o)

	require.NoError(t, f.svc.ProcessAfterFinalization(ctx, "o-1", false))
	assert.Empty(t, f.db.order("o-1").FE.Status)
}

func TestProcessAfterFinalization_ClaveDeIdempotenciaDuplicada(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := ticketOrder("o-1", "Shop/0001")
	first.FE.IdempotencyKey = "POS-c-1-cfg-1-Shop/0001"
	first.FE.Status = entity.StatusAccepted
	f.db.put(first)
	f.db.put(ticketOrder("o-9", "Shop/0001"))

	require.NoError(t, f.svc.ProcessAfterFinalization(ctx, "o-9", false))
	assert.Empty(t, f.db.order("o-9").FE.Status, "la violación de unicidad se trata como ya enviado")
}

func TestSendNow_ClaveDeIdempotenciaDistinta(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := ticketOrder("o-1", "Shop/0001")
	o.FE = entity.ElectronicDocument{
		DocumentType:   entity.DocumentTypeTicket,
		Status:         entity.StatusPending,
		IdempotencyKey: "POS-c-1-cfg-1-Shop/9999",
	}
	f.db.put(o)

	sent, err := f.svc.SendNow(ctx, "o-1", false)
	require.NoError(t, err)
	assert.False(t, sent)
	got := f.db.order("o-1")
	assert.Equal(t, fe.CodeIdempotencyMismatch, got.FE.ErrorCode)
	assert.Zero(t, f.backend.sendCount())
}

type incapableBackend struct{ fakeBackend }

func (*incapableBackend) Supports(string) bool { return false }

func TestSendNow_SinBackendCompatible(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.build(&incapableBackend{fakeBackend{name: "legacy"}})
	f.db.put(ticketOrder("o-1", "Shop/0001"))
	require.NoError(t, f.svc.ProcessAfterFinalization(ctx, "o-1", false))

	sent, err := f.svc.SendNow(ctx, "o-1", false)
	assert.False(t, sent)
	var de *einvoice.DispatchError
	require.ErrorAs(t, err, &de)
	assert.ErrorIs(t, err, einvoice.ErrNoCompatibleBackend)
	assert.Equal(t, []string{"legacy"}, de.Tried)

	o := f.db.order("o-1")
	assert.Equal(t, entity.StatusPending, o.FE.Status, "error de configuración: no cuenta como reintento")
	assert.Zero(t, o.FE.RetryCount)
}

func TestCheckStatus_SinClave(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.db.put(ticketOrder("o-1", "Shop/0001"))

	_, err := f.svc.CheckStatus(ctx, "o-1")
	assert.Equal(t, fe.CodeMissingClave, fe.ValidationCode(err))
}

func TestCheckStatus_FalloTransitorioMantieneEstado(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.db.put(ticketOrder("o-1", "Shop/0001"))
	require.NoError(t, f.svc.ProcessAfterFinalization(ctx, "o-1", false))
	_, err := f.svc.SendNow(ctx, "o-1", false)
	require.NoError(t, err)

	f.backend.statusFn = func(*einvoice.StatusRequest) (*einvoice.BackendResult, error) {
		return nil, errors.New("503 service unavailable")
	}
	f.now = baseNow.Add(10 * time.Minute)
	status, err := f.svc.CheckStatus(ctx, "o-1")
	require.ErrorIs(t, err, einvoice.ErrTransient)
	assert.Equal(t, entity.StatusSent, status)
	o := f.db.order("o-1")
	assert.Equal(t, entity.StatusSent, o.FE.Status)
	assert.Equal(t, f.now.Add(fe.StatusPollInterval), *o.FE.NextTry)
}

func TestConcurrencia_ConsecutivosUnicos(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	const n = 20
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("o-%02d", i)
		f.db.put(ticketOrder(id, "Shop/"+id))
		require.NoError(t, f.svc.ProcessAfterFinalization(ctx, id, false))
	}

	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.svc.SendNow(ctx, id, false)
			assert.NoError(t, err)
		}(fmt.Sprintf("o-%02d", i))
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 1; i <= n; i++ {
		c := f.db.order(fmt.Sprintf("o-%02d", i)).FE.Consecutivo
		require.Len(t, c, fe.ConsecutivoLen)
		assert.False(t, seen[c], "consecutivo repetido %s", c)
		seen[c] = true
	}
	assert.Equal(t, int64(n), f.db.seq["c-1/ticket"])
}

func TestConcurrencia_MismoPedidoSeEnviaUnaVez(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.db.put(ticketOrder("o-1", "Shop/0001"))
	require.NoError(t, f.svc.ProcessAfterFinalization(ctx, "o-1", false))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.SendNow(ctx, "o-1", false)
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrConcurrentUpdate)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, f.backend.sendCount())
}

func TestSendNow_CodigosDelEmisorInvalidosNoConsumenSecuencia(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.db.companies["c-1"].BranchCode = "1234"
	f.db.put(ticketOrder("o-1", "Shop/0001"))
	f.db.put(ticketOrder("o-2", "Shop/0002"))
	require.NoError(t, f.svc.ProcessAfterFinalization(ctx, "o-1", false))

	sent, err := f.svc.SendNow(ctx, "o-1", false)
	require.Error(t, err)
	assert.False(t, sent)
	assert.Equal(t, fe.CodeInvalidIssuerCodes, fe.ValidationCode(err))

	o := f.db.order("o-1")
	assert.Equal(t, entity.StatusError, o.FE.Status)
	assert.Equal(t, fe.CodeInvalidIssuerCodes, o.FE.ErrorCode)
	assert.Empty(t, o.FE.Consecutivo)
	assert.Empty(t, o.FE.Clave)
	assert.Zero(t, f.db.seq["c-1/ticket"], "el número no se toma si el consecutivo no se puede armar")
	assert.Zero(t, f.backend.sendCount())

	f.db.companies["c-1"].BranchCode = "1"
	require.NoError(t, f.svc.ProcessAfterFinalization(ctx, "o-2", false))
	sent, err = f.svc.SendNow(ctx, "o-2", false)
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, "00100001040000000001", f.db.order("o-2").FE.Consecutivo, "sin huecos en la secuencia")
}

// linkInvoice asocia una factura contable a un pedido que ya estaba en la cola como tiquete.
func linkInvoice(t *testing.T, f *fixture, orderID, invoiceID, feStatus string) {
	t.Helper()
	st := feStatus
	f.accounting.docs[invoiceID] = &entity.AccountingDocument{
		ID: invoiceID, Name: "FAC/2024/0001", MoveType: entity.MoveTypeOutInvoice, State: "posted", FEStatus: &st,
	}
	o := f.db.order(orderID)
	o.AccountingDocumentID = invoiceID
	o.State = entity.OrderStateInvoiced
	f.db.put(o)
}

func TestSendNow_FacturaVinculadaDespuesDeEncolarTiquete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.db.put(ticketOrder("o-1", "Shop/0001"))
	require.NoError(t, f.svc.ProcessAfterFinalization(ctx, "o-1", false))
	require.Equal(t, entity.DocumentTypeTicket, f.db.order("o-1").FE.DocumentType)

	linkInvoice(t, f, "o-1", "inv-1", "pendiente")
	f.accounting.sendStatus = "enviado"

	sent, err := f.svc.SendNow(ctx, "o-1", false)
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, []string{"inv-1"}, f.accounting.sendRequest)
	assert.Zero(t, f.backend.sendCount(), "con factura vinculada el tiquete no sale")
	assert.Zero(t, f.db.seq["c-1/ticket"])

	o := f.db.order("o-1")
	assert.Equal(t, entity.DocumentTypeInvoice, o.FE.DocumentType)
	assert.Equal(t, entity.StatusSent, o.FE.Status)
	require.NotNil(t, o.FE.NextTry)
	assert.Equal(t, baseNow.Add(fe.StatusPollInterval), *o.FE.NextTry)
}

func TestCheckStatus_TrackFacturaReprogramaConsulta(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.db.put(ticketOrder("o-1", "Shop/0001"))
	require.NoError(t, f.svc.ProcessAfterFinalization(ctx, "o-1", false))
	linkInvoice(t, f, "o-1", "inv-1", "enviado")

	status, err := f.svc.CheckStatus(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSent, status)

	o := f.db.order("o-1")
	require.NotNil(t, o.FE.NextTry)
	assert.Equal(t, baseNow.Add(fe.StatusPollInterval), *o.FE.NextTry)

	// Mismo instante: el pedido no vuelve a la cola de consulta
	res, err := f.svc.CronCheckPending(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, res.Scanned)

	f.now = baseNow.Add(fe.StatusPollInterval)
	res, err = f.svc.CronCheckPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scanned)

	*f.accounting.docs["inv-1"].FEStatus = "aceptada"
	f.now = baseNow.Add(2 * fe.StatusPollInterval)
	status, err = f.svc.CheckStatus(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAccepted, status)
	assert.Nil(t, f.db.order("o-1").FE.NextTry)
}
