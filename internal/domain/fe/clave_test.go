package fe_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-einvoice-cr/internal/domain/fe"
)

// ──────────────────────────────────────────────────────────────────────────────
// Vector de referencia:
//
//	Consecutivo = "001" + "00001" + "04" + "0000000001"
//	Clave       = "506" + "010124" + "003101123456" + Consecutivo + "1" + "00000001"
// ──────────────────────────────────────────────────────────────────────────────

const (
	testConsecutivo = "00100001040000000001"
	testClave       = "506" + "010124" + "003101123456" + testConsecutivo + "1" + "00000001"
)

func TestBuildConsecutivo_VectorExacto(t *testing.T) {
	c, err := fe.BuildConsecutivo("1", "1", "04", 1)
	require.NoError(t, err)
	assert.Equal(t, testConsecutivo, c)
	assert.Len(t, c, fe.ConsecutivoLen)
	assert.Equal(t, "04", fe.DocCodeFromConsecutivo(c))
}

func TestBuildConsecutivo_Invalidos(t *testing.T) {
	_, err := fe.BuildConsecutivo("1234", "1", "04", 1)
	assert.Error(t, err, "sucursal de 4 dígitos")
	_, err = fe.BuildConsecutivo("1", "1", "4", 1)
	assert.Error(t, err, "tipo de comprobante de un dígito")
	_, err = fe.BuildConsecutivo("1", "1", "04", 0)
	assert.Error(t, err)
	_, err = fe.BuildConsecutivo("1", "1", "04", fe.MaxSequence+1)
	assert.True(t, fe.IsValidationError(err))
}

func TestBuildClave_VectorExacto(t *testing.T) {
	clave, err := fe.BuildClave(fe.ClaveParams{
		IssueDate:    time.Date(2024, 1, 1, 12, 0, 0, 0, fe.CostaRica),
		IssuerTaxID:  "3-101-123456",
		Consecutivo:  testConsecutivo,
		Situation:    "1",
		SecurityCode: "00000001",
	})
	require.NoError(t, err)
	assert.Equal(t, testClave, clave)
	assert.Len(t, clave, fe.ClaveLen)
	assert.Equal(t, 50, fe.ClaveLen)
}

func TestBuildClave_FechaEnHoraDeCostaRica(t *testing.T) {
	// 2024-01-02 03:00 UTC sigue siendo 1 de enero en Costa Rica
	clave, err := fe.BuildClave(fe.ClaveParams{
		IssueDate:    time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC),
		IssuerTaxID:  "3101123456",
		Consecutivo:  testConsecutivo,
		SecurityCode: "00000001",
	})
	require.NoError(t, err)
	assert.Equal(t, "010124", clave[3:9])
	assert.Equal(t, "1", clave[41:42], "situación por defecto: normal")
}

func TestBuildClave_Invalidos(t *testing.T) {
	base := fe.ClaveParams{
		IssueDate:    time.Now(),
		IssuerTaxID:  "3101123456",
		Consecutivo:  testConsecutivo,
		SecurityCode: "12345678",
	}

	p := base
	p.IssuerTaxID = ""
	_, err := fe.BuildClave(p)
	assert.True(t, fe.IsValidationError(err))

	p = base
	p.Consecutivo = "123"
	_, err = fe.BuildClave(p)
	assert.Error(t, err)

	p = base
	p.SecurityCode = "12AB5678"
	_, err = fe.BuildClave(p)
	assert.Error(t, err)

	p = base
	p.Situation = "9"
	_, err = fe.BuildClave(p)
	assert.Error(t, err)
}

func TestNewSecurityCode(t *testing.T) {
	code, err := fe.NewSecurityCode()
	require.NoError(t, err)
	assert.Len(t, code, fe.SecurityCodeLen)
	assert.Regexp(t, `^[0-9]{8}$`, code)
}

func TestSequenceFromConsecutivo(t *testing.T) {
	seq, err := fe.SequenceFromConsecutivo("00100001040000000099")
	require.NoError(t, err)
	assert.Equal(t, "99", seq)

	seq, err = fe.SequenceFromConsecutivo("00100001040000000123")
	require.NoError(t, err)
	assert.Equal(t, "123", seq)

	_, err = fe.SequenceFromConsecutivo("99")
	assert.Error(t, err)
}

func TestBuildIdempotencyKey(t *testing.T) {
	assert.Equal(t, "POS-1-7-Shop/0001", fe.BuildIdempotencyKey("1", "7", "Shop/0001", "42"))
	assert.Equal(t, "POS-1-7-42", fe.BuildIdempotencyKey("1", "7", "", "42"))
}
