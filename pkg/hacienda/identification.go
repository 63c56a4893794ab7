package hacienda

import (
	"fmt"
	"unicode"
)

// ValidateTaxID valida longitud y contenido de una identificación según su tipo.
// Acepta guiones y espacios (ej: "3-101-123456").
func ValidateTaxID(idType, taxID string) error {
	digits := OnlyDigits(taxID)
	if digits == "" {
		return fmt.Errorf("hacienda: identificación vacía")
	}
	switch idType {
	case IdentificationFisica:
		if len(digits) != 9 {
			return fmt.Errorf("hacienda: cédula física debe tener 9 dígitos, se recibieron %d", len(digits))
		}
	case IdentificationJuridica, IdentificationNITE:
		if len(digits) != 10 {
			return fmt.Errorf("hacienda: identificación tipo %s debe tener 10 dígitos, se recibieron %d", idType, len(digits))
		}
	case IdentificationDIMEX:
		if len(digits) != 11 && len(digits) != 12 {
			return fmt.Errorf("hacienda: DIMEX debe tener 11 o 12 dígitos, se recibieron %d", len(digits))
		}
	case "":
		if len(digits) > 12 {
			return fmt.Errorf("hacienda: identificación excede 12 dígitos")
		}
	default:
		return fmt.Errorf("hacienda: tipo de identificación desconocido %q", idType)
	}
	return nil
}

// GuessIdentificationType infiere el tipo por la cantidad de dígitos.
func GuessIdentificationType(taxID string) string {
	switch n := len(OnlyDigits(taxID)); {
	case n == 9:
		return IdentificationFisica
	case n == 10:
		return IdentificationJuridica
	case n == 11 || n == 12:
		return IdentificationDIMEX
	default:
		return ""
	}
}

// OnlyDigits deja solo dígitos 0-9.
func OnlyDigits(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsDigit(r) {
			out = append(out, r)
		}
	}
	return string(out)
}
