package router

import (
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineConfig carries everything NewEngine wires together
type EngineConfig struct {
	Config *config.Config
	Logger *zap.Logger
	JWT    middleware.JWTConfig
	// Meter enables HTTP metrics when set
	Meter metric.Meter
	// Tracing adds otelgin server spans
	Tracing bool

	Health     *handler.HealthHandler
	Ledger     *handler.LedgerHandler
	InwardLots *handler.InwardLotHandler
}

// NewEngine builds the gin engine with the middleware stack, /health,
// /swagger and the authenticated /api/v1/ledger routes
func NewEngine(ec EngineConfig) (*gin.Engine, error) {
	cfg := ec.Config
	log := ec.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err := middleware.SetupValidator(); err != nil {
		return nil, err
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// request ID first so recovery, logs and spans can all carry it
	engine.Use(middleware.RequestID())
	if ec.Tracing {
		engine.Use(middleware.Tracing(cfg.App.Name, middleware.SkipHealth))
	}
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if ec.Meter != nil {
		httpMetrics, err := middleware.HTTPMetrics(ec.Meter)
		if err != nil {
			return nil, err
		}
		engine.Use(httpMetrics)
	}
	engine.Use(middleware.Secure())

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORS(cors))

	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}

	if ec.Health != nil {
		engine.GET("/health", ec.Health.Health)
	}

	auth := middleware.JWTAuth(ec.JWT)
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(cfg.Swagger, auth),
		ginSwagger.WrapHandler(swaggerFiles.Handler))

	r := NewRouter(engine, WithAPIVersion("v1")).Use(auth)
	r.Register(LedgerRoutes(ec.Ledger, ec.InwardLots))
	r.Setup()

	return engine, nil
}
