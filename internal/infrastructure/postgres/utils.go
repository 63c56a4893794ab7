package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/pos-einvoice-cr/internal/domain"
)

// Querier es la parte común de *pgxpool.Pool y pgx.Tx: los repositorios aceptan cualquiera
// de los dos para funcionar dentro o fuera de una transacción.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Códigos SQLSTATE relevantes.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeUniqueViolation
	}
	return strings.Contains(err.Error(), codeUniqueViolation)
}

// isConcurrencyConflict fila bloqueada por otra transacción, deadlock o fallo de serialización.
func isConcurrencyConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return true
	}
	return false
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// classify traduce errores de PostgreSQL a errores de dominio.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case isNoRows(err):
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, domain.ErrAlreadySubmitted)
	case isConcurrencyConflict(err):
		return fmt.Errorf("%s: %w", op, domain.ErrConcurrentUpdate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
