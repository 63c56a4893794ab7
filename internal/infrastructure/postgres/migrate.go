package postgres

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/jhoicas/pos-einvoice-cr/pkg/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator aplica el esquema embebido con golang-migrate (driver pgx5).
type Migrator struct {
	m   *migrate.Migrate
	log *logger.Logger
}

// NewMigrator abre el origen embebido contra la base indicada por dsn (postgres://...).
func NewMigrator(dsn string, log *logger.Logger) (*Migrator, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("abrir migraciones embebidas: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, pgx5URL(dsn))
	if err != nil {
		return nil, fmt.Errorf("crear migrador: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Migrator{m: m, log: log.Component("migrate")}, nil
}

// Up aplica las migraciones pendientes. Sin cambios no es error.
func (g *Migrator) Up() error {
	err := g.m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		g.log.Info().Msg("sin migraciones pendientes")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration up: %w", err)
	}
	version, dirty, err := g.m.Version()
	if err != nil {
		return fmt.Errorf("migration version: %w", err)
	}
	g.log.Info().Uint("version", version).Bool("dirty", dirty).Msg("migraciones aplicadas")
	return nil
}

// Down revierte todo el esquema.
func (g *Migrator) Down() error {
	if err := g.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down: %w", err)
	}
	g.log.Info().Msg("migraciones revertidas")
	return nil
}

// Close libera origen y conexión.
func (g *Migrator) Close() error {
	srcErr, dbErr := g.m.Close()
	return errors.Join(srcErr, dbErr)
}

func pgx5URL(dsn string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}
