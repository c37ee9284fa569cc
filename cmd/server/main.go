package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appcoupon "github.com/salepoint/backend/internal/application/coupon"
	appinventory "github.com/salepoint/backend/internal/application/inventory"
	apporder "github.com/salepoint/backend/internal/application/order"
	"github.com/salepoint/backend/internal/domain/order"
	"github.com/salepoint/backend/internal/infrastructure/auth"
	"github.com/salepoint/backend/internal/infrastructure/cache"
	"github.com/salepoint/backend/internal/infrastructure/config"
	"github.com/salepoint/backend/internal/infrastructure/dispatch"
	"github.com/salepoint/backend/internal/infrastructure/logger"
	"github.com/salepoint/backend/internal/infrastructure/persistence"
	"github.com/salepoint/backend/internal/interfaces/http/handler"
	"github.com/salepoint/backend/internal/interfaces/http/middleware"
	"github.com/salepoint/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting salepoint backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}()
	log.Info("Redis connected")

	// Repositories outside transactions; everything transactional goes
	// through the transaction scope.
	businessRepo := persistence.NewGormBusinessRepository(db.DB)
	areaRepo := persistence.NewGormAreaRepository(db.DB)
	clientRepo := persistence.NewGormClientRepository(db.DB)
	cycleRepo := persistence.NewGormEconomicCycleRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)

	txScope := persistence.NewGormTransactionScope(db.DB)
	txCache := cache.NewRedisTransactionCache(redisClient, cfg.Sale.TxCacheTTL)
	dispatcher := dispatch.NewRedisDispatcher(redisClient, &cfg.Dispatch, log.Named("dispatch"))

	dispoService := appinventory.NewDisponibilityService(productRepo, log.Named("inventory"))
	couponProcessor := appcoupon.NewProcessor(log.Named("coupon"))

	orderService := apporder.NewService(
		txScope,
		businessRepo,
		areaRepo,
		clientRepo,
		cycleRepo,
		productRepo,
		dispoService,
		couponProcessor,
		txCache,
		dispatcher,
		log.Named("order"),
	)

	jwtService := auth.NewJWTService(cfg.JWT)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}

	engine.Use(logger.Recovery(log))
	engine.Use(middleware.ContextLogger(log))
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithOrigins(cfg.HTTP.CORSAllowOrigins))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodyBytes))
	if cfg.HTTP.RateLimitRequests > 0 {
		engine.Use(middleware.RateLimit(
			middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)))
	}

	systemHandler := handler.NewSystemHandler(db, redisClient)
	engine.GET("/health", systemHandler.Health)

	router.NewRouter(engine).
		Use(middleware.JWTAuth(jwtService)).
		Register(handler.NewOrderHandler(orderService)).
		Register(systemHandler).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	if cfg.Sweep.Enabled {
		go runOverdueSweeper(sweepCtx, db, orderService, cfg.Sweep.Interval, log.Named("sweep"))
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited")
}

// runOverdueSweeper periodically marks payment-pending orders whose deadline
// passed. Businesses are discovered from the pending orders themselves so an
// idle business costs nothing.
func runOverdueSweeper(ctx context.Context, db *persistence.Database, orders *apporder.Service, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var businessIDs []uuid.UUID
		if err := db.DB.WithContext(ctx).
			Model(&order.Order{}).
			Where("status = ? AND payment_deadline_at IS NOT NULL", order.StatusPaymentPending).
			Distinct().
			Pluck("business_id", &businessIDs).Error; err != nil {
			log.Warn("overdue sweep query failed", zap.Error(err))
			continue
		}

		for _, businessID := range businessIDs {
			marked, err := orders.MarkOverdueOrders(ctx, businessID, time.Now())
			if err != nil {
				log.Warn("overdue sweep failed",
					zap.String("business_id", businessID.String()),
					zap.Error(err))
				continue
			}
			if marked > 0 {
				log.Info("orders marked overdue",
					zap.String("business_id", businessID.String()),
					zap.Int("marked", marked))
			}
		}
	}
}
