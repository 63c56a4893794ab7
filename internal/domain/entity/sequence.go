package entity

import "time"

// DocumentSequence contador durable del consecutivo por (compañía, tipo de comprobante).
type DocumentSequence struct {
	CompanyID    string
	DocumentType DocumentType
	LastValue    int64
	UpdatedAt    time.Time
}
