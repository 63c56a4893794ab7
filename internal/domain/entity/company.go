package entity

import "time"

// Company emisor de los comprobantes (multi-tenant, enfoque Costa Rica).
type Company struct {
	ID                 string
	Name               string
	TaxID              string // cédula física/jurídica/DIMEX/NITE
	IdentificationType string // 01 física, 02 jurídica, 03 DIMEX, 04 NITE
	Email              string
	Phone              string
	BranchCode         string // sucursal (3 dígitos)
	TerminalCode       string // terminal (5 dígitos)
	EconomicActivity   string // código de actividad económica (6 dígitos)
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PosConfig perfil del punto de venta. FEEnabled=false vuelve los pedidos "no aplica".
type PosConfig struct {
	ID        string
	CompanyID string
	Name      string
	FEEnabled bool
}
