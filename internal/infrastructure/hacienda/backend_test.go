package hacienda

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-einvoice-cr/internal/application/einvoice"
)

type fakeAuthority struct {
	sent   *Submission
	status string
}

func (f *fakeAuthority) Send(_ context.Context, sub *Submission) (*RawResponse, error) {
	f.sent = sub
	return &RawResponse{Clave: sub.Clave, Status: "recibido"}, nil
}

func (f *fakeAuthority) Poll(_ context.Context, clave string) (*RawResponse, error) {
	return &RawResponse{Clave: clave, Status: f.status, Message: "ok"}, nil
}

func TestAPIBackend(t *testing.T) {
	auth := &fakeAuthority{status: "rechazado"}
	b := NewAPIBackend(auth)
	assert.Equal(t, BackendHacienda, b.Name())

	res, err := b.Send(context.Background(), &einvoice.SendRequest{
		Clave:       testClave,
		Consecutivo: "00100001040000000001",
		IssueDate:   time.Now(),
		Issuer:      einvoice.Party{IdentificationType: "02", TaxID: "3101123456"},
		Receiver:    einvoice.Party{Name: "Cliente general"},
		SignedXML:   []byte("<x/>"),
	})
	require.NoError(t, err)
	assert.Equal(t, "recibido", res.Status)
	assert.Equal(t, testClave, res.TrackID)
	assert.Nil(t, auth.sent.Receiver, "cliente general sin receptor")

	res, err = b.CheckStatus(context.Background(), &einvoice.StatusRequest{Clave: testClave})
	require.NoError(t, err)
	assert.Equal(t, "rechazado", res.Status)
}

func TestLocalBackend(t *testing.T) {
	b := NewLocalBackend(nil)
	res, err := b.Send(context.Background(), &einvoice.SendRequest{OrderID: "o-1", Clave: testClave})
	require.NoError(t, err)
	assert.Equal(t, "sent", res.Status)
	assert.Equal(t, "LOCAL-00000001", res.TrackID)

	res, err = b.CheckStatus(context.Background(), &einvoice.StatusRequest{Clave: testClave})
	require.NoError(t, err)
	assert.Equal(t, "aceptado", res.Status)

	_, err = b.Send(context.Background(), &einvoice.SendRequest{})
	assert.Error(t, err)
}
