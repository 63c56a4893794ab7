// Package hacienda contiene catálogos y validaciones de los comprobantes electrónicos
// del Ministerio de Hacienda de Costa Rica (versión 4.4).
package hacienda

// =============================================================================
// Tipos de comprobante (posiciones 9-10 del consecutivo)
// =============================================================================

const (
	DocCodeFactura     = "01" // Factura Electrónica
	DocCodeNotaDebito  = "02" // Nota de Débito Electrónica
	DocCodeNotaCredito = "03" // Nota de Crédito Electrónica
	DocCodeTiquete     = "04" // Tiquete Electrónico
)

// Código de país para la clave.
const CountryCode = "506"

// =============================================================================
// Situación del comprobante (posición 42 de la clave)
// =============================================================================

const (
	SituationNormal     = "1"
	SituationContingent = "2"
	SituationNoInternet = "3"
)

// ValidSituations situaciones válidas.
var ValidSituations = map[string]bool{
	SituationNormal: true, SituationContingent: true, SituationNoInternet: true,
}

// =============================================================================
// Medios de pago
// =============================================================================

const (
	PaymentMethodEfectivo      = "01"
	PaymentMethodTarjeta       = "02"
	PaymentMethodCheque        = "03"
	PaymentMethodTransferencia = "04" // Transferencia - depósito bancario
	PaymentMethodTerceros      = "05" // Recaudado por terceros
	PaymentMethodSINPEMovil    = "06"
	PaymentMethodPlataforma    = "07" // Plataforma digital
	PaymentMethodOtros         = "08"
)

// PaymentMethodNames descripción de cada medio de pago.
var PaymentMethodNames = map[string]string{
	PaymentMethodEfectivo:      "Efectivo",
	PaymentMethodTarjeta:       "Tarjeta",
	PaymentMethodCheque:        "Cheque",
	PaymentMethodTransferencia: "Transferencia - depósito bancario",
	PaymentMethodTerceros:      "Recaudado por terceros",
	PaymentMethodSINPEMovil:    "SINPE Móvil",
	PaymentMethodPlataforma:    "Plataforma digital",
	PaymentMethodOtros:         "Otros",
}

// =============================================================================
// Condición de venta
// =============================================================================

const (
	SaleConditionContado = "01"
	SaleConditionCredito = "02"
)

// SaleConditionNames descripción de cada condición de venta.
var SaleConditionNames = map[string]string{
	SaleConditionContado: "Contado",
	SaleConditionCredito: "Crédito",
}

// =============================================================================
// Tipos de identificación
// =============================================================================

const (
	IdentificationFisica   = "01" // Cédula física (9 dígitos)
	IdentificationJuridica = "02" // Cédula jurídica (10 dígitos)
	IdentificationDIMEX    = "03" // DIMEX (11 o 12 dígitos)
	IdentificationNITE     = "04" // NITE (10 dígitos)
)

// =============================================================================
// Códigos de referencia (InformacionReferencia/Codigo)
// =============================================================================

const (
	ReferenceCodeAnula        = "01" // Anula documento de referencia
	ReferenceCodeCorrigeTexto = "02"
	ReferenceCodeCorrigeMonto = "03"
	ReferenceCodeOtros        = "99"
)

// DefaultReferenceReason razón por defecto de una devolución POS.
const DefaultReferenceReason = "return of merchandise"

// Impuesto IVA.
const TaxCodeIVA = "01"

// UnitDefault unidad de medida por defecto en líneas de detalle.
const UnitDefault = "Unid"

// GeneralCustomerName receptor de un tiquete sin cliente identificado.
const GeneralCustomerName = "Cliente general"

// Moneda por defecto y tipo de cambio en colones.
const (
	CurrencyCRC         = "CRC"
	ExchangeRateDefault = "1"
)
