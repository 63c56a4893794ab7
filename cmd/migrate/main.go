// migrate aplica o revierte el esquema FE embebido en el binario.
//
// Uso: go run ./cmd/migrate [up|down]
// Por defecto aplica (up). Toma la conexión de DATABASE_URL o DB_*.
package main

import (
	"fmt"
	"os"

	"github.com/jhoicas/pos-einvoice-cr/internal/infrastructure/postgres"
	"github.com/jhoicas/pos-einvoice-cr/pkg/config"
	"github.com/jhoicas/pos-einvoice-cr/pkg/logger"
)

func main() {
	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})

	m, err := postgres.NewMigrator(cfg.DB.ConnectionString(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("migrador")
	}
	defer m.Close()

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	default:
		fmt.Fprintf(os.Stderr, "Comando desconocido %q (up|down)\n", cmd)
		os.Exit(2)
	}
	if err != nil {
		log.Error().Err(err).Str("cmd", cmd).Msg("migración fallida")
		os.Exit(1)
	}
}
