package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/event"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/storage"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/erp/ledger/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/erp/ledger/docs"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Inventory Allocation Ledger API
//	@version		1.0
//	@description	Cascading reservations from inward lots to outward movements.

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	// telemetry needs a logger before the OTLP log bridge exists
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	tel, err := telemetry.Setup(ctx, cfg.Telemetry, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	log, err := logger.New(logCfg, tel.Logs.ZapCore(logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	tel.Logs.SetLogger(log)
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting ledger service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	var gormOpts []logger.GormLoggerOption
	if cfg.Telemetry.DBSlowQueryThresh > 0 {
		gormOpts = append(gormOpts, logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	}
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithGormLogger(logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), gormOpts...)),
		persistence.WithOpenHook(tel.DB.Register),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	caches := cache.NewFactory(cfg.Redis, cfg.Lock, cache.WithLogger(log))
	defer func() {
		if err := caches.Close(); err != nil {
			log.Error("Error closing cache backends", zap.Error(err))
		}
	}()
	locker, err := caches.CreateKeyLocker(ctx)
	if err != nil {
		log.Fatal("Failed to create lock backend", zap.Error(err))
	}
	idempotency, err := caches.CreateIdempotencyStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	meter := tel.Meter.Meter(telemetry.MeterName)
	ledgerMetrics, err := telemetry.NewLedgerMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}

	bus := event.NewInMemoryEventBus(log)
	audit := appledger.NewAuditLogHandler(log)
	bus.Subscribe(audit, audit.EventTypes()...)
	bus.Subscribe(ledgerMetrics, ledgerMetrics.EventTypes()...)
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	scope := persistence.NewGormTransactionScope(db.DB)
	authz := auth.NewPermissionAuthorizer()

	alloc := appledger.NewAllocationService(scope, locker, authz, appledger.Options{
		IdempotencyTTL:    cfg.Ledger.IdempotencyTTL,
		MaxAttachments:    cfg.Ledger.MaxAttachments,
		UploadConcurrency: cfg.Ledger.UploadConcurrency,
	}, log)
	alloc.SetIdempotencyStore(idempotency)
	alloc.SetEventPublisher(bus)
	alloc.SetMetrics(ledgerMetrics)

	approval := appledger.NewApprovalService(scope, locker, authz, log)
	approval.SetEventPublisher(bus)
	approval.SetMetrics(ledgerMetrics)

	inward := appledger.NewInwardLotService(scope, authz, log)
	inward.SetEventPublisher(bus)

	ledgerHandler := handler.NewLedgerHandler(alloc, approval, appledger.NewQueryService(scope, authz))

	if cfg.Storage.Enabled() {
		store, err := storage.NewS3AttachmentStore(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create attachment store", zap.Error(err))
		}
		if err := store.EnsureBucket(ctx); err != nil {
			log.Fatal("Attachment bucket unavailable", zap.String("bucket", store.Bucket()), zap.Error(err))
		}
		alloc.SetAttachmentStore(store)
		ledgerHandler.SetAttachmentLinker(store)
		log.Info("Attachment storage enabled", zap.String("bucket", store.Bucket()))
	} else {
		log.Warn("Attachment storage not configured, multipart uploads will be rejected")
	}

	jwtService := auth.NewJWTService(cfg.JWT)
	var revocations auth.RevocationList
	if client, err := caches.RedisClient(ctx); err == nil {
		revocations = auth.NewRedisRevocationList(client, "ledger:revoked:")
	} else {
		log.Warn("Redis unavailable, token revocations are kept in memory", zap.Error(err))
		revocations = auth.NewInMemoryRevocationList()
	}

	engine, err := router.NewEngine(router.EngineConfig{
		Config: cfg,
		Logger: log,
		JWT: middleware.JWTConfig{
			JWTService:  jwtService,
			Revocations: revocations,
			Logger:      log,
		},
		Meter:      meter,
		Tracing:    tel.Tracer.IsEnabled(),
		Health:     handler.NewHealthHandler(db, cfg.Lock.Backend, version),
		Ledger:     ledgerHandler,
		InwardLots: handler.NewInwardLotHandler(inward),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Event bus did not stop cleanly", zap.Error(err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		log.Error("Telemetry shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
