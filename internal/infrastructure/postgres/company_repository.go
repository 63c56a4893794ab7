package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/pos-einvoice-cr/internal/domain/entity"
	"github.com/jhoicas/pos-einvoice-cr/internal/domain/repository"
)

// Asegura que CompanyRepo implementa repository.CompanyRepository.
var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo implementación del puerto CompanyRepository sobre PostgreSQL.
type CompanyRepo struct {
	q Querier
}

// NewCompanyRepository construye el adaptador de persistencia para empresas.
func NewCompanyRepository(q Querier) *CompanyRepo {
	return &CompanyRepo{q: q}
}

// GetByID obtiene una empresa por ID.
func (r *CompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	query := `
		SELECT id, name, tax_id, identification_type, email, phone,
		       branch_code, terminal_code, economic_activity, created_at, updated_at
		FROM companies WHERE id = $1`
	var (
		c                              entity.Company
		idType, email, phone, activity *string
	)
	err := r.q.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.TaxID, &idType, &email, &phone,
		&c.BranchCode, &c.TerminalCode, &activity, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, classify("get company", err)
	}
	c.IdentificationType, c.Email, c.Phone, c.EconomicActivity = deref(idType), deref(email), deref(phone), deref(activity)
	return &c, nil
}

// UpdateLastConsecutivo guarda el último consecutivo emitido. Nunca retrocede: una
// transacción que llega tarde con un valor menor no pisa el mayor.
func (r *CompanyRepo) UpdateLastConsecutivo(ctx context.Context, companyID string, docType entity.DocumentType, seq string) error {
	const query = `
		INSERT INTO company_fe_consecutivos (company_id, document_type, last_consecutivo, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (company_id, document_type)
		DO UPDATE SET last_consecutivo = EXCLUDED.last_consecutivo, updated_at = now()
		WHERE company_fe_consecutivos.last_consecutivo::bigint < EXCLUDED.last_consecutivo::bigint`
	if _, err := r.q.Exec(ctx, query, companyID, string(docType), seq); err != nil {
		return classify("update last consecutivo", err)
	}
	return nil
}

// LastConsecutivo último consecutivo emitido por tipo ("" si no hay).
func (r *CompanyRepo) LastConsecutivo(ctx context.Context, companyID string, docType entity.DocumentType) (string, error) {
	var last string
	err := r.q.QueryRow(ctx, `
		SELECT last_consecutivo FROM company_fe_consecutivos
		 WHERE company_id = $1 AND document_type = $2`, companyID, string(docType)).Scan(&last)
	if isNoRows(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get last consecutivo: %w", err)
	}
	return last, nil
}

var _ repository.PosConfigRepository = (*PosConfigRepo)(nil)

// PosConfigRepo perfiles de punto de venta.
type PosConfigRepo struct {
	q Querier
}

// NewPosConfigRepository construye el adaptador.
func NewPosConfigRepository(q Querier) *PosConfigRepo {
	return &PosConfigRepo{q: q}
}

// GetByID obtiene un perfil de POS.
func (r *PosConfigRepo) GetByID(ctx context.Context, id string) (*entity.PosConfig, error) {
	var c entity.PosConfig
	err := r.q.QueryRow(ctx, `SELECT id, company_id, name, fe_enabled FROM pos_configs WHERE id = $1`, id).
		Scan(&c.ID, &c.CompanyID, &c.Name, &c.FEEnabled)
	if err != nil {
		return nil, classify("get pos config", err)
	}
	return &c, nil
}
