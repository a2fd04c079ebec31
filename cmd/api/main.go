package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/cache"
	"app/internal/infra/db"
	"app/internal/infra/queue"
	infraRepo "app/internal/infra/repository"
	"app/internal/middleware"
	"app/internal/usecase"
	"app/internal/validator"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	//.envは無くてもよい（本番は環境変数で渡す）
	_ = godotenv.Load()

	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		logger.Error("db connect failed", "error", err)
		os.Exit(1)
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Coupon{},
		&model.Order{},
		&model.OrderItem{},
		&model.InventoryAdjustment{},
		&model.AuditLog{},
	); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	couponRepo := infraRepo.NewCouponGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//クーポンキャッシュ（REDIS_ADDRが空なら使わない）
	var couponCache usecase.CouponCache
	if cfg.RedisAddr != "" {
		rc, err := cache.NewCouponRedisCache(cfg.RedisAddr)
		if err != nil {
			logger.Error("redis connect failed", "error", err)
			os.Exit(1)
		}
		defer rc.Close()
		couponCache = rc
		logger.Info("coupon cache enabled", "addr", cfg.RedisAddr)
	}

	//イベント発行（RABBITMQ_URLが空なら発行なし）
	var publisher usecase.EventPublisher = queue.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		mq, err := queue.NewRabbitMQPublisher(cfg.RabbitMQURL)
		if err != nil {
			logger.Error("rabbitmq connect failed", "error", err)
			os.Exit(1)
		}
		defer mq.Close()
		publisher = mq
		logger.Info("order event publishing enabled")
	}

	//Usecase生成
	authValidator := validator.NewAuthValidator(userRepo)
	authUC := usecase.NewAuthUsecase(cfg, userRepo, authValidator)
	productUC := usecase.NewProductUsecase(productRepo, inventoryRepo, auditRepo)
	couponUC := usecase.NewCouponUsecase(couponRepo, couponCache, auditRepo)
	orderUC := usecase.NewOrderUsecase(txManager, publisher)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager, auditRepo, publisher)
	paymentUC := usecase.NewPaymentUsecase(txManager, couponCache, publisher, !cfg.IsProd())
	adminUserUC := usecase.NewAdminUserUsecase(userRepo, auditRepo)
	auditUC := usecase.NewAuditUsecase(auditRepo)

	//Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.Prometheus())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	//公開・ユーザー向けルート
	handler.NewProductHandler(productUC).RegisterRoutes(e)
	handler.NewAuthHandler(authUC).RegisterRoutes(e, cfg)
	handler.NewCouponHandler(couponUC).RegisterRoutes(e, cfg)
	handler.NewOrderHandler(orderUC).RegisterRoutes(e, cfg)
	handler.NewPaymentHandler(paymentUC).RegisterRoutes(e, cfg)

	// /admin 配下は「JWT必須 + ADMIN限定」
	admin := e.Group(
		"/admin",
		middleware.AuthJWT(cfg),
		middleware.AdminRoleGuard(),
	)
	handler.NewAdminProductHandler(productUC).RegisterRoutes(admin)
	handler.NewAdminCouponHandler(couponUC).RegisterRoutes(admin)
	handler.NewAdminOrderHandler(adminOrderUC).RegisterRoutes(admin)
	handler.NewAdminUserHandler(adminUserUC, auditUC).RegisterRoutes(admin)

	//Server起動 + graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info("server starting", "addr", addr, "env", cfg.GoEnv)
		if err := e.Start(addr); err != nil {
			logger.Info("server stopped", "reason", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	logger.Info("server shut down")
}
