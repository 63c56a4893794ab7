package hacienda_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/pos-einvoice-cr/pkg/hacienda"
)

func TestValidateTaxID(t *testing.T) {
	assert.NoError(t, hacienda.ValidateTaxID(hacienda.IdentificationFisica, "1-0234-0567"))
	assert.NoError(t, hacienda.ValidateTaxID(hacienda.IdentificationJuridica, "3-101-123456"))
	assert.NoError(t, hacienda.ValidateTaxID(hacienda.IdentificationDIMEX, "155812345678"))
	assert.Error(t, hacienda.ValidateTaxID(hacienda.IdentificationFisica, "3101123456"))
	assert.Error(t, hacienda.ValidateTaxID(hacienda.IdentificationJuridica, ""))
	assert.Error(t, hacienda.ValidateTaxID("99", "310112345"))
}

func TestGuessIdentificationType(t *testing.T) {
	assert.Equal(t, hacienda.IdentificationFisica, hacienda.GuessIdentificationType("102340567"))
	assert.Equal(t, hacienda.IdentificationJuridica, hacienda.GuessIdentificationType("3-101-123456"))
	assert.Equal(t, hacienda.IdentificationDIMEX, hacienda.GuessIdentificationType("15581234567"))
	assert.Equal(t, "", hacienda.GuessIdentificationType("123"))
}
