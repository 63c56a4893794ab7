package einvoice_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-einvoice-cr/internal/application/einvoice"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
)

func TestCronSendPending_AislaFallosPorPedido(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ok := ticketOrder("o-1", "Shop/0001")
	badPayment := ticketOrder("o-2", "Shop/0002")
	badPayment.Payments[0].PaymentMethodID = "pm-desconocido"
	locked := ticketOrder("o-3", "Shop/0003")
	for _, o := range []*entity.Order{ok, badPayment, locked} {
		f.db.put(o)
		require.NoError(t, f.svc.ProcessAfterFinalization(ctx, o.ID, false))
	}

	// Otra transacción tiene la fila de o-3.
	rowLock := f.db.rowLock("o-3")
	rowLock.Lock()
	res, err := f.svc.CronSendPending(ctx, 0)
	rowLock.Unlock()
	require.NoError(t, err)

	assert.Equal(t, einvoice.BatchResult{Scanned: 3, Succeeded: 1, Skipped: 1, Failed: 1}, res)
	assert.Equal(t, entity.StatusSent, f.db.order("o-1").FE.Status)
	assert.Equal(t, entity.StatusError, f.db.order("o-2").FE.Status)
	assert.Equal(t, entity.StatusPending, f.db.order("o-3").FE.Status)

	// Siguiente pasada: solo queda o-3.
	res, err = f.svc.CronSendPending(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scanned)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, entity.StatusSent, f.db.order("o-3").FE.Status)
}

func TestCronSendPending_RespetaNextTry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := ticketOrder("o-1", "Shop/0001")
	future := baseNow.Add(time.Hour)
	o.FE = entity.ElectronicDocument{Status: entity.StatusErrorRetry, NextTry: &future, RetryCount: 2}
	f.db.put(o)

	res, err := f.svc.CronSendPending(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, res.Scanned)

	f.now = future
	res, err = f.svc.CronSendPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
}

func TestCronSendPending_LeaseTomado(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.db.put(ticketOrder("o-1", "Shop/0001"))
	require.NoError(t, f.svc.ProcessAfterFinalization(ctx, "o-1", false))
	f.locker.held[einvoice.LeaseSendPending] = true

	res, err := f.svc.CronSendPending(ctx, 0)
	require.NoError(t, err)
	assert.True(t, res.Locked)
	assert.Zero(t, res.Scanned)
	assert.Zero(t, f.backend.sendCount())
}

func TestCronCheckPending_HastaEstadoTerminal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.db.put(ticketOrder("o-1", "Shop/0001"))
	require.NoError(t, f.svc.ProcessAfterFinalization(ctx, "o-1", false))
	_, err := f.svc.SendNow(ctx, "o-1", false)
	require.NoError(t, err)

	answers := []string{"procesando", "aceptado"}
	f.backend.statusFn = func(*einvoice.StatusRequest) (*einvoice.BackendResult, error) {
		st := answers[0]
		answers = answers[1:]
		return &einvoice.BackendResult{Status: st}, nil
	}

	// Antes de los 5 minutos no se consulta.
	res, err := f.svc.CronCheckPending(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, res.Scanned)

	f.now = baseNow.Add(5 * time.Minute)
	res, err = f.svc.CronCheckPending(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, entity.StatusProcessing, f.db.order("o-1").FE.Status)

	f.now = f.now.Add(5 * time.Minute)
	_, err = f.svc.CronCheckPending(ctx, 0)
	require.NoError(t, err)
	o := f.db.order("o-1")
	assert.Equal(t, entity.StatusAccepted, o.FE.Status)
	assert.Nil(t, o.FE.NextTry)

	res, err = f.svc.CronCheckPending(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, res.Scanned)
}
