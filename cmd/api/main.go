package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/facturacion-electronica/internal/application/billing"
	"github.com/jhoicas/facturacion-electronica/internal/domain/entity"
	infradian "github.com/jhoicas/facturacion-electronica/internal/infrastructure/dian"
	"github.com/jhoicas/facturacion-electronica/internal/infrastructure/dian/signer"
	"github.com/jhoicas/facturacion-electronica/internal/infrastructure/providers"
	"github.com/jhoicas/facturacion-electronica/internal/infrastructure/providers/alegra"
	"github.com/jhoicas/facturacion-electronica/internal/infrastructure/providers/custom"
	"github.com/jhoicas/facturacion-electronica/internal/infrastructure/providers/direct"
	"github.com/jhoicas/facturacion-electronica/internal/infrastructure/providers/feg"
	httpRouter "github.com/jhoicas/facturacion-electronica/internal/interfaces/http"
	"github.com/jhoicas/facturacion-electronica/pkg/config"
	"github.com/jhoicas/facturacion-electronica/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("dian_env", cfg.DIAN.Environment).
		Msg("iniciando aplicación")

	defaults, err := billingDefaults(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("certificado DIAN")
	}
	if len(defaults.Certificate) == 0 {
		log.Warn().Msg("sin DIAN_CERT_PATH: en habilitación se usará la firma de prueba y no se transmitirá a la DIAN")
	}

	httpClient := providers.NewHTTPClient()
	registry := providers.NewRegistry(
		direct.New(infradian.NewSOAPDIANClient(infradian.WithHTTPClient(httpClient)), log.Component("dian_direct")),
		feg.New(httpClient, log.Component("feg")),
		alegra.New(httpClient, log.Component("alegra")),
		custom.New(httpClient, log.Component("custom")),
	)
	orchestrator := billing.NewOrchestrator(registry, log.Component("orchestrator"),
		billing.WithTimeout(cfg.Transmission.Timeout()))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.Transmission.Timeout() + 5*time.Second,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		Billing:     httpRouter.NewBillingHandler(orchestrator, defaults, log.Component("http")),
		ServiceName: cfg.App.Name,
		Providers:   registry.Names(),
		JWTSecret:   cfg.JWT.Secret,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Transmission.Timeout()+5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// billingDefaults traduce la configuración del servicio a la configuración del motor.
// El certificado se lee y valida una sola vez al arrancar.
func billingDefaults(cfg *config.Config) (*entity.ElectronicBillingConfig, error) {
	defaults := &entity.ElectronicBillingConfig{
		Provider:     cfg.DIAN.Provider,
		Environment:  cfg.DIAN.Environment,
		Issuer:       entity.Issuer{NIT: cfg.DIAN.IssuerNIT, Name: cfg.DIAN.IssuerName},
		SoftwareID:   cfg.DIAN.SoftwareID,
		SoftwarePIN:  cfg.DIAN.SoftwarePIN,
		TechnicalKey: cfg.DIAN.TechnicalKey,
		TestSetID:    cfg.DIAN.TestSetID,

		FEGURL:        cfg.FEG.URL,
		FEGToken:      cfg.FEG.Token,
		AlegraEmail:   cfg.Alegra.Email,
		AlegraToken:   cfg.Alegra.Token,
		AlegraBaseURL: cfg.Alegra.BaseURL,
		APIURL:        cfg.Custom.URL,
		APIKey:        cfg.Custom.APIKey,
	}
	if cfg.DIAN.CertPath == "" {
		return defaults, nil
	}
	data, err := os.ReadFile(cfg.DIAN.CertPath)
	if err != nil {
		return nil, err
	}
	if _, err := signer.LoadFromP12Bytes(data, cfg.DIAN.CertPassword); err != nil {
		return nil, err
	}
	defaults.Certificate = data
	defaults.CertificatePassword = cfg.DIAN.CertPassword
	return defaults, nil
}
