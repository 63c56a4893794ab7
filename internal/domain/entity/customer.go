package entity

// Customer receptor del comprobante. Un pedido sin cliente se emite como "cliente general"
// (el Receptor lleva solo el nombre).
type Customer struct {
	ID                 string
	CompanyID          string
	Name               string
	TaxID              string
	IdentificationType string
	Email              string
	Phone              string
}
