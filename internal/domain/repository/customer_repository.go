package repository

import (
	"context"

	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
)

// CustomerRepository define el puerto de lectura de clientes (receptor del comprobante).
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
}

// PaymentMethodRepository metadatos FE de los métodos de pago POS.
type PaymentMethodRepository interface {
	GetByID(ctx context.Context, id string) (*entity.PaymentMethod, error)
}
