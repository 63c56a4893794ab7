package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jhoicas/pos-einvoice-cr/internal/application/einvoice"
	"github.com/jhoicas/pos-einvoice-cr/internal/infrastructure/backend/compat"
	infrahacienda "github.com/jhoicas/pos-einvoice-cr/internal/infrastructure/hacienda"
	"github.com/jhoicas/pos-einvoice-cr/pkg/config"
	"github.com/jhoicas/pos-einvoice-cr/pkg/logger"
)

// legacyBackends objetos heredados de firma/envío que se suman a la cadena FE vía compat.
// Un integrador los agrega desde un archivo propio de este paquete y los nombra en
// FE_BACKENDS:
//
//	func init() { legacyBackends["erp"] = erp.NewSender(...) }
//
//	FE_BACKENDS=erp,hacienda
var legacyBackends = map[string]any{}

// buildBackendChain registra los backends disponibles y resuelve FE_BACKENDS en orden.
// hacienda solo existe con credenciales; local siempre.
func buildBackendChain(cfg *config.Config, legacy map[string]any, log *logger.Logger) ([]einvoice.Backend, error) {
	registry := einvoice.NewRegistry()
	if cfg.Hacienda.Username != "" {
		client, err := infrahacienda.NewClient(infrahacienda.ClientConfig{
			Environment:     cfg.Hacienda.Environment,
			APIURL:          cfg.Hacienda.APIURL,
			IdPURL:          cfg.Hacienda.IdPURL,
			ClientID:        cfg.Hacienda.ClientID,
			Username:        cfg.Hacienda.Username,
			Password:        cfg.Hacienda.Password,
			Timeout:         cfg.Hacienda.Timeout,
			BreakerFailures: cfg.Hacienda.BreakerFailures,
			BreakerCooldown: cfg.Hacienda.BreakerCooldown,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("cliente Hacienda: %w", err)
		}
		if err := registry.Register(infrahacienda.NewAPIBackend(client)); err != nil {
			return nil, err
		}
	}
	if err := registry.Register(infrahacienda.NewLocalBackend(log)); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(legacy))
	for name := range legacy {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b, err := compat.Register(registry, name, legacy[name], compat.WithLogger(log), compat.WithStrictDiscovery())
		if err != nil {
			return nil, fmt.Errorf("backend heredado: %w", err)
		}
		log.Info().Str("backend", name).
			Str("send", b.Method(einvoice.OpSend)).
			Str("status", b.Method(einvoice.OpCheckStatus)).
			Msg("backend heredado registrado")
	}

	chain, err := registry.Chain(cfg.FE.Backends)
	if err != nil {
		return nil, fmt.Errorf("FE_BACKENDS: %w (disponibles: %s)", err, strings.Join(registry.List(), ", "))
	}
	return chain, nil
}
