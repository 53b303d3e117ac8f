package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/distrifresh/almacen-api/internal/application/inventory"
	"github.com/distrifresh/almacen-api/internal/application/orders"
	"github.com/distrifresh/almacen-api/internal/infrastructure/postgres"
	httpRouter "github.com/distrifresh/almacen-api/internal/interfaces/http"
	"github.com/distrifresh/almacen-api/pkg/config"
	"github.com/distrifresh/almacen-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Service: cfg.App.Name,
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	productRepo := postgres.NewProductRepository(pool)
	movementRepo := postgres.NewMovementRepository(pool)
	purchaseRepo := postgres.NewPurchaseOrderRepository(pool)
	saleRepo := postgres.NewSaleOrderRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	validator := inventory.NewStockValidator(productRepo, movementRepo)
	movementUC := inventory.NewMovementUseCase(txRunner, productRepo, movementRepo, validator)
	auditor := inventory.NewIntegrityAuditor(txRunner, productRepo, movementRepo)
	purchaseUC := orders.NewPurchaseOrderUseCase(txRunner, movementUC, validator, productRepo, purchaseRepo)
	saleUC := orders.NewSaleOrderUseCase(txRunner, movementUC, validator, productRepo, saleRepo)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		MovementUC:  movementUC,
		Auditor:     auditor,
		PurchaseUC:  purchaseUC,
		SaleUC:      saleUC,
		ProductRepo: productRepo,
		JWTSecret:   cfg.JWT.Secret,
	})

	httpLog := log.Component("http")
	go func() {
		httpLog.Info().Str("addr", cfg.HTTP.Addr()).Msg("servidor HTTP escuchando")
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			httpLog.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
