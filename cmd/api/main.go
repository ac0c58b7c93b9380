package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "ecofood/api/swagger" // swagger docs
	"ecofood/internal/auth"
	"ecofood/internal/config"
	"ecofood/internal/database"
	"ecofood/internal/handler"
	"ecofood/internal/logging"
	"ecofood/internal/metrics"
	"ecofood/internal/middleware"
	"ecofood/internal/repository"
	"ecofood/internal/service"
	"ecofood/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           EcoFood API
// @version         1.0
// @description     Marketplace where companies publish surplus food and customers request it.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	bootLog := logging.New("info", "text", os.Stderr)
	cfg, err := config.Load(bootLog, "configs/.env")
	if err != nil {
		bootLog.WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	gin.SetMode(cfg.GinMode)
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	log.Info("connected to PostgreSQL")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run(ctx)

	tokens := auth.NewTokenIssuer(cfg.Secret(), cfg.Auth.TokenTTL)
	guard := middleware.NewGuard(tokens)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	accountRepo := repository.NewAccountRepository(db)
	productRepo := repository.NewProductRepository(db)
	requestRepo := repository.NewRequestRepository(db, log)
	movementRepo := repository.NewStockMovementRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)

	accountService := service.NewAccountService(accountRepo, auditRepo, txManager, tokens, log)
	productService := service.NewProductService(productRepo, accountRepo, movementRepo, auditRepo, txManager, wsHub, log, cfg.ExpiringSoonDays)
	catalogService := service.NewCatalogService(productRepo, accountRepo, cfg.ExpiringSoonDays)
	requestService := service.NewRequestService(requestRepo, productRepo, accountRepo, movementRepo, auditRepo, txManager, wsHub, log)
	statisticsService := service.NewStatisticsService(requestRepo, statsRepo, cfg.ExpiringSoonDays)
	auditService := service.NewAuditService(auditRepo)

	if cfg.Bootstrap.Enabled() {
		principal, err := accountService.EnsurePrincipal(ctx, cfg.Bootstrap.AdminName, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword)
		if err != nil {
			log.WithError(err).Fatal("bootstrap principal admin failed")
		}
		log.WithField("email", principal.Email).Info("principal admin ready")
	}

	authLimit, err := middleware.RateLimit(cfg.Auth.LoginRate, log)
	if err != nil {
		log.WithError(err).Fatal("invalid LOGIN_RATE_LIMIT")
	}

	// Initialize Handlers
	accountHandler := handler.NewAccountHandler(accountService, guard, authLimit, cfg.Auth.CookieSecure, log)
	catalogHandler := handler.NewCatalogHandler(catalogService, guard, log)
	productHandler := handler.NewProductHandler(productService, guard, log)
	requestHandler := handler.NewRequestHandler(requestService, guard, log)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService, guard, log)
	auditHandler := handler.NewAuditHandler(auditService, guard, log)

	// Set up Gin Router
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log), metrics.Middleware(cfg.MetricsPath))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET(cfg.MetricsPath, gin.WrapH(metrics.Handler()))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			log.WithError(err).Warn("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DEGRADED"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK", "ws_clients": wsHub.ClientCount()})
	})

	// WebSocket endpoint
	router.GET("/ws", websocket.ServeWs(wsHub, tokens, cfg.CORSOrigins))

	// API Routing
	root := router.Group("")
	accountHandler.RegisterRoutes(root)
	catalogHandler.RegisterRoutes(root)
	productHandler.RegisterRoutes(root)
	requestHandler.RegisterRoutes(root)
	statisticsHandler.RegisterRoutes(root)
	auditHandler.RegisterRoutes(root)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	shutdown(srv, cfg, log)
}

func shutdown(srv *http.Server, cfg *config.Config, log logrus.FieldLogger) {
	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
