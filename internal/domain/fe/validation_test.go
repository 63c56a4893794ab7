package fe_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/fe"
)

func validEmission() fe.EmissionInput {
	return fe.EmissionInput{
		Order: &entity.Order{
			ID:          "o-1",
			State:       entity.OrderStatePaid,
			AmountTotal: decimal.RequireFromString("1130"),
			AmountTax:   decimal.RequireFromString("130"),
			Lines:       []entity.OrderLine{{ID: "l-1", Subtotal: decimal.RequireFromString("1000")}},
			Payments:    []entity.Payment{{ID: "p-1", Amount: decimal.RequireFromString("1130"), PaymentMethodID: "pm-1"}},
		},
		Company:        &entity.Company{ID: "c-1", TaxID: "3101123456", BranchCode: "1", TerminalCode: "1"},
		PrimaryPayment: &entity.PaymentMethod{ID: "pm-1", FEPaymentMethodCode: "01", FESaleConditionCode: "01"},
		DocumentType:   entity.DocumentTypeTicket,
	}
}

func codesOf(err error) []string {
	var codes []string
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			var ve *fe.ValidationError
			if errors.As(e, &ve) {
				codes = append(codes, ve.Code)
			}
		}
	}
	return codes
}

func TestValidateForEmission_OK(t *testing.T) {
	require.NoError(t, fe.ValidateForEmission(validEmission()))
}

func TestValidateForEmission_AcumulaErrores(t *testing.T) {
	in := validEmission()
	in.Company.TaxID = ""
	in.Order.AmountTotal = decimal.RequireFromString("2000")
	in.PrimaryPayment.FESaleConditionCode = ""

	err := fe.ValidateForEmission(in)
	require.Error(t, err)
	assert.ErrorIs(t, err, fe.ErrInvalidDocument)
	assert.ElementsMatch(t, []string{fe.CodeMissingTaxID, fe.CodeTotalMismatch, fe.CodePaymentMetadata}, codesOf(err))
}

func TestValidateForEmission_SinPagos(t *testing.T) {
	in := validEmission()
	in.Order.Payments = nil
	in.PrimaryPayment = nil

	err := fe.ValidateForEmission(in)
	assert.Equal(t, []string{fe.CodeNoPayments}, codesOf(err))
}

func TestValidateForEmission_NotaDeCreditoSinReferencia(t *testing.T) {
	in := validEmission()
	in.DocumentType = entity.DocumentTypeCreditNote

	err := fe.ValidateForEmission(in)
	assert.Equal(t, []string{fe.CodeIncompleteReference}, codesOf(err))
}

func TestValidateForEmission_NoFinalizado(t *testing.T) {
	in := validEmission()
	in.Order.State = entity.OrderStateDraft

	err := fe.ValidateForEmission(in)
	assert.Contains(t, codesOf(err), fe.CodeNotFinalized)
	assert.True(t, fe.IsValidationError(err))
}

func TestReconcileTotals_Tolerancia(t *testing.T) {
	in := validEmission()
	in.Order.AmountTotal = decimal.RequireFromString("1130.01")
	assert.NoError(t, fe.ReconcileTotals(in.Order))

	in.Order.AmountTotal = decimal.RequireFromString("1130.02")
	err := fe.ReconcileTotals(in.Order)
	assert.Equal(t, fe.CodeTotalMismatch, fe.ValidationCode(err))
}

func TestValidateForEmission_CodigosDelEmisor(t *testing.T) {
	in := validEmission()
	in.Company.BranchCode = "1234"
	in.Company.TerminalCode = ""

	err := fe.ValidateForEmission(in)
	require.Error(t, err)
	assert.Equal(t, []string{fe.CodeInvalidIssuerCodes, fe.CodeInvalidIssuerCodes}, codesOf(err))

	in.Company.BranchCode, in.Company.TerminalCode = "2", "00003"
	assert.NoError(t, fe.ValidateForEmission(in))
}

func TestValidateIssuerCodes(t *testing.T) {
	assert.NoError(t, fe.ValidateIssuerCodes(&entity.Company{TaxID: "3-101-123456", BranchCode: "001", TerminalCode: "1"}))

	err := fe.ValidateIssuerCodes(&entity.Company{TaxID: "3101123456789", BranchCode: "1", TerminalCode: "1"})
	assert.True(t, fe.IsValidationError(err), "identificación de 13 dígitos")
	assert.Equal(t, fe.CodeInvalidIssuerCodes, fe.ValidationCode(err))

	assert.Error(t, fe.ValidateIssuerCodes(nil))
}
