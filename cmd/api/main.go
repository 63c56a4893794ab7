// @title        POS E-Invoice CR API
// @version      1.0
// @description  Facturación electrónica de pedidos POS ante Hacienda (Costa Rica).
// @BasePath     /
// @securityDefinitions.apikey Bearer
// @in   header
// @name Authorization
package main

import (
	"context"
	"crypto/tls"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	_ "github.com/jhoicas/pos-einvoice-cr/docs"
	"github.com/jhoicas/pos-einvoice-cr/internal/application/einvoice"
	"github.com/jhoicas/pos-einvoice-cr/internal/infrastructure/cache"
	infrahacienda "github.com/jhoicas/pos-einvoice-cr/internal/infrastructure/hacienda"
	"github.com/jhoicas/pos-einvoice-cr/internal/infrastructure/hacienda/signer"
	"github.com/jhoicas/pos-einvoice-cr/internal/infrastructure/postgres"
	"github.com/jhoicas/pos-einvoice-cr/internal/infrastructure/scheduler"
	"github.com/jhoicas/pos-einvoice-cr/internal/infrastructure/storage"
	httpRouter "github.com/jhoicas/pos-einvoice-cr/internal/interfaces/http"
	"github.com/jhoicas/pos-einvoice-cr/pkg/config"
	"github.com/jhoicas/pos-einvoice-cr/pkg/hacienda"
	"github.com/jhoicas/pos-einvoice-cr/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Strs("backends", cfg.FE.Backends).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.App.Env != "production" {
		migrator, err := postgres.NewMigrator(cfg.DB.ConnectionString(), log)
		if err != nil {
			log.Fatal().Err(err).Msg("migrador")
		}
		if err := migrator.Up(); err != nil {
			log.Fatal().Err(err).Msg("aplicar migraciones")
		}
		_ = migrator.Close()
	}

	// Firma: sin certificado el XML sale sin firmar (solo sirve al backend local)
	var signerSvc hacienda.Signer = signer.Passthrough{}
	if cfg.Hacienda.CertPath != "" {
		cert, err := loadCertificate(cfg.Hacienda)
		if err != nil {
			log.Fatal().Err(err).Msg("cargar certificado de firma")
		}
		dss, err := signer.NewDigitalSignatureService(cert)
		if err != nil {
			log.Fatal().Err(err).Msg("certificado de firma")
		}
		signerSvc = dss
	} else {
		log.Warn().Msg("HACIENDA_CERT_PATH vacío: los comprobantes no se firman")
	}

	var attachments einvoice.AttachmentStore = postgres.NewAttachmentStore(pool)
	if cfg.FE.Storage == "s3" {
		s3Store, err := storage.NewS3AttachmentStore(ctx, cfg.S3, log)
		if err != nil {
			log.Fatal().Err(err).Msg("almacenamiento S3")
		}
		attachments = s3Store
	}

	chain, err := buildBackendChain(cfg, legacyBackends, log)
	if err != nil {
		log.Fatal().Err(err).Msg("backends FE")
	}

	// Lease de los lotes: Redis si hay réplicas, memoria en una sola instancia
	var locker einvoice.Locker = cache.NewMemoryLocker()
	if cfg.Redis.Addr != "" {
		redisLocker, err := cache.NewRedisLocker(cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer redisLocker.Close()
		locker = redisLocker
	}

	feService := einvoice.NewService(einvoice.Deps{
		Orders:         postgres.NewOrderRepository(pool),
		Companies:      postgres.NewCompanyRepository(pool),
		PosConfigs:     postgres.NewPosConfigRepository(pool),
		Customers:      postgres.NewCustomerRepository(pool),
		PaymentMethods: postgres.NewPaymentMethodRepository(pool),
		Accounting:     postgres.NewAccountingDocumentRepository(pool),
		Tx:             postgres.NewTxRunner(pool),
		Renderer:       infrahacienda.NewXMLBuilderService(),
		Signer:         signerSvc,
		Attachments:    attachments,
		Dispatcher:     einvoice.NewDispatcher(chain, log),
		Locker:         locker,
		Logger:         log,
	}, einvoice.Options{
		Situation:  cfg.Hacienda.Situation,
		BatchLimit: cfg.Cron.BatchLimit,
		LeaseTTL:   cfg.Cron.LeaseTTL,
	})

	var sched *scheduler.Scheduler
	if cfg.Cron.Enabled {
		sched, err = scheduler.New(scheduler.Config{
			SendInterval:   cfg.Cron.SendInterval,
			StatusInterval: cfg.Cron.StatusInterval,
			BatchLimit:     cfg.Cron.BatchLimit,
			RunTimeout:     cfg.Cron.RunTimeout,
		}, feService, log)
		if err != nil {
			log.Fatal().Err(err).Msg("scheduler FE")
		}
		sched.Start(ctx)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 60,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "POS E-Invoice CR API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		EInvoice:    feService,
		Batches:     feService,
		JWTSecret:   cfg.JWT.Secret,
		ServiceName: cfg.App.Name,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("apagado del scheduler")
		}
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func loadCertificate(cfg config.HaciendaConfig) (tls.Certificate, error) {
	if cfg.CertKeyPath != "" {
		return signer.LoadFromPEM(cfg.CertPath, cfg.CertKeyPath)
	}
	return signer.LoadCertificate(cfg.CertPath, cfg.CertPassword)
}
