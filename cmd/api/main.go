package main

import (
	"os"

	_ "sabitax/api/swagger" // swagger docs
	"sabitax/internal/config"
	"sabitax/internal/database"
	"sabitax/internal/handler"
	"sabitax/internal/logging"
	"sabitax/internal/middleware"
	"sabitax/internal/repository"
	"sabitax/internal/service"
	"sabitax/internal/taxcalc"
	"sabitax/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           SabiTax API
// @version         1.0
// @description     Nigerian personal income tax estimates, obligations, filings and TIN applications.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, cfgErr := config.Load()
	logger := logging.New(cfg.LogLevel, os.Stdout)
	if !cfg.EnvFileLoaded {
		logger.Info().Str("file", config.EnvFile).Msg("no env file found, using process environment")
	}
	if cfgErr != nil {
		logger.Fatal().Err(cfgErr).Msg("configuration invalid")
	}
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	table, err := taxcalc.LoadTableFile(cfg.TaxTablePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.TaxTablePath).Msg("tax table invalid")
	}
	logger.Info().Str("version", table.Schedule.Version).Str("jurisdiction", table.Jurisdiction).Msg("tax table loaded")

	db, err := database.NewConnection(cfg.DB.DSN(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	logger.Info().Msg("connected to PostgreSQL")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	transactionRepo := repository.NewTransactionRepository(db)
	filingRepo := repository.NewFilingRepository(db)
	tinRepo := repository.NewTinRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	taxService := service.NewTaxService(transactionRepo, filingRepo, table)
	filingService := service.NewFilingService(txManager, filingRepo, auditRepo, transactionRepo, table, wsHub, logger)
	tinService := service.NewTinService(txManager, tinRepo, auditRepo, wsHub, cfg.NINHashKey, logger)
	auditService := service.NewAuditService(auditRepo)

	auth := middleware.NewAuth(cfg.JWTSecret)

	// Initialize Handlers
	taxHandler := handler.NewTaxHandler(taxService, filingService, auth, logger)
	tinHandler := handler.NewTinHandler(tinService, auth, logger)
	webhookHandler := handler.NewWebhookHandler(filingService, tinService, cfg.WebhookSecret, logger)
	auditHandler := handler.NewAuditHandler(auditService, auth, logger)

	// Set up Gin Router
	router := gin.New()
	router.Use(gin.Recovery(), logging.GinLogger(logger))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.WebhookSecretHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK", "tax_table": table.Schedule.Version})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, cfg.JWTSecret)
	})

	// API Routing
	v1 := router.Group("/api/v1")
	taxHandler.RegisterRoutes(v1)
	tinHandler.RegisterRoutes(v1)
	webhookHandler.RegisterRoutes(v1)
	auditHandler.RegisterRoutes(v1)

	logger.Info().Str("port", cfg.Port).Msg("server listening")
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}
