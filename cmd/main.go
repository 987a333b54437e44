package main

import (
	"context"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/suteetoe/pos-service/internal/directory"
	"github.com/suteetoe/pos-service/internal/handler"
	"github.com/suteetoe/pos-service/internal/identity"
	"github.com/suteetoe/pos-service/internal/middleware"
	"github.com/suteetoe/pos-service/internal/provision"
	"github.com/suteetoe/pos-service/internal/tenantdb"
	"github.com/suteetoe/pos-service/pkg/config"
	"github.com/suteetoe/pos-service/pkg/database"
	"github.com/suteetoe/pos-service/pkg/jwtutil"
	"github.com/suteetoe/pos-service/pkg/logger"
	"github.com/suteetoe/pos-service/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: "pos-service",
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting POS service...", cfg.LogConfig()...)

	// Central management database
	centralDB, err := database.InitCentral(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize central database", zap.Error(err))
	}
	log.Info("Central database connection established")

	// Bootstrap the super-admin account if configured
	if cfg.Admin.Password != "" {
		created, err := identity.EnsureSuperAdmin(context.Background(), centralDB, cfg.Admin.Username, cfg.Admin.Password)
		if err != nil {
			log.Fatal("Failed to bootstrap super-admin", zap.Error(err))
		}
		if created {
			log.Info("Super-admin account created", zap.String("username", cfg.Admin.Username))
		}
	} else {
		log.Warn("ADMIN_PASSWORD not set, skipping super-admin bootstrap")
	}

	// Tenant isolation core: directory, connection cache, provisioner, bridge
	dir := directory.New(centralDB)
	opener := func(dsn string) (*gorm.DB, error) {
		return database.Open(dsn, &cfg.DB)
	}
	cache := tenantdb.NewCache(dir, opener)
	provisioner := provision.New(&cfg.DB, centralDB, opener, log)
	bridge := identity.NewBridge(centralDB, log)

	// JWT utility
	jwtUtil := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      cfg.JWT.SigningKey,
		ExpirationHours: cfg.JWT.ExpirationHours,
	})

	// Handlers
	authHandler := handler.NewAuthHandler(centralDB, dir, jwtUtil)
	tenantHandler := handler.NewTenantHandler(provisioner, dir, cache)
	employeeHandler := handler.NewEmployeeHandler(bridge)
	productHandler := handler.NewProductHandler()
	saleHandler := handler.NewSaleHandler()

	// Paths that are tenant-independent and therefore skip resolution
	resolverSkip := []string{"/health", "/metrics", "/auth/", "/tenants/status", "/admin/"}
	// Paths that bypass the authentication gate entirely
	gateSkip := []string{"/health", "/metrics", "/auth/login", "/tenants/status"}

	// Initialize Echo framework
	e := echo.New()
	e.HideBanner = true

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestID)
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())
	e.Use(middleware.TenantResolver(dir, cache, resolverSkip))
	e.Use(middleware.AuthGate(jwtUtil, dir, gateSkip))

	// Public routes
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)
	e.GET("/tenants/status", authHandler.TenantStatus)

	// Authentication
	auth := e.Group("/auth")
	auth.POST("/login", authHandler.Login, middleware.RateLimit(cfg.RateLimit.LoginRPS, cfg.RateLimit.LoginBurst))

	// Super-admin tenant management - tenant-independent
	admin := e.Group("/admin", middleware.RequireRole("superadmin"))
	admin.POST("/tenants", tenantHandler.Provision)
	admin.GET("/tenants", tenantHandler.List)
	admin.PATCH("/tenants/:id/active", tenantHandler.SetActive)
	admin.DELETE("/tenants/:id", tenantHandler.Delete)

	// Tenant-scoped API - every route here runs against the resolved handle
	api := e.Group("/api")
	api.POST("/employees", employeeHandler.Create)
	api.POST("/users/change-password", employeeHandler.ChangePassword)
	api.POST("/products", productHandler.Create)
	api.GET("/products", productHandler.List)
	api.GET("/products/:id", productHandler.Get)
	api.POST("/sales", saleHandler.Create)
	api.GET("/sales/:id", saleHandler.Get)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
