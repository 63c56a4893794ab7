package postgres

import (
	"context"

	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/repository"
)

var _ repository.CustomerRepository = (*CustomerRepo)(nil)

// CustomerRepo implementación de CustomerRepository (usable con pool o tx).
type CustomerRepo struct {
	q Querier
}

// NewCustomerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCustomerRepository(q Querier) *CustomerRepo {
	return &CustomerRepo{q: q}
}

// GetByID obtiene un cliente por ID.
func (r *CustomerRepo) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	query := `
		SELECT id, company_id, name, tax_id, identification_type, email, phone
		FROM customers WHERE id = $1`
	var (
		c                           entity.Customer
		taxID, idType, email, phone *string
	)
	err := r.q.QueryRow(ctx, query, id).Scan(&c.ID, &c.CompanyID, &c.Name, &taxID, &idType, &email, &phone)
	if err != nil {
		return nil, classify("get customer", err)
	}
	c.TaxID, c.IdentificationType, c.Email, c.Phone = deref(taxID), deref(idType), deref(email), deref(phone)
	return &c, nil
}

var _ repository.PaymentMethodRepository = (*PaymentMethodRepo)(nil)

// PaymentMethodRepo métodos de pago POS con metadatos FE.
type PaymentMethodRepo struct {
	q Querier
}

// NewPaymentMethodRepository construye el adaptador.
func NewPaymentMethodRepository(q Querier) *PaymentMethodRepo {
	return &PaymentMethodRepo{q: q}
}

// GetByID obtiene un método de pago.
func (r *PaymentMethodRepo) GetByID(ctx context.Context, id string) (*entity.PaymentMethod, error) {
	query := `
		SELECT id, company_id, name, fe_enabled, fe_payment_method_code, fe_sale_condition_code
		FROM payment_methods WHERE id = $1`
	var (
		m             entity.PaymentMethod
		payCode, sale *string
	)
	err := r.q.QueryRow(ctx, query, id).Scan(&m.ID, &m.CompanyID, &m.Name, &m.FEEnabled, &payCode, &sale)
	if err != nil {
		return nil, classify("get payment method", err)
	}
	m.FEPaymentMethodCode, m.FESaleConditionCode = deref(payCode), deref(sale)
	return &m, nil
}
