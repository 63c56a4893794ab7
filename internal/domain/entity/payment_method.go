package entity

// PaymentMethod método de pago POS con sus metadatos FE (versión 4.4).
type PaymentMethod struct {
	ID                  string
	CompanyID           string
	Name                string
	FEEnabled           bool
	FEPaymentMethodCode string // 01..08, ver pkg/hacienda
	FESaleConditionCode string // 01 contado, 02 crédito
}
