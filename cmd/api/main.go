package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "projectos/api/swagger" // swagger docs
	"projectos/internal/auth"
	"projectos/internal/config"
	"projectos/internal/database"
	"projectos/internal/handler"
	"projectos/internal/middleware"
	"projectos/internal/repository"
	"projectos/internal/service"
	"projectos/internal/websocket"
	"projectos/pkg/currency"
	"projectos/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           projectOS API
// @version         1.0
// @description     Project budgets, change requests and client approvals.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Configuration failed: %v", err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	gin.SetMode(cfg.GinMode)

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Info("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run()
	defer wsHub.Stop()

	sessions := auth.NewSessionIssuer([]byte(cfg.JWTSecret), cfg.SessionTTL)
	formatter := currency.NewFormatter(cfg.Currency)
	links := service.NewLinkBuilder(cfg.PublicBaseURL)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	budgetItemRepo := repository.NewBudgetItemRepository(db)
	changeRequestRepo := repository.NewChangeRequestRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	auditService := service.NewAuditService(auditRepo, projectRepo)
	userService := service.NewUserService(userRepo, txManager, sessions, service.LogMailer{Log: log}, links, cfg.MagicLinkTTL, log)
	projectService := service.NewProjectService(projectRepo, budgetItemRepo, changeRequestRepo, auditService, txManager, formatter, links)
	changeRequestService := service.NewChangeRequestService(projectRepo, changeRequestRepo, auditService, txManager, formatter, links, log)
	approvalService := service.NewApprovalService(changeRequestRepo, approvalRepo, auditService, txManager, wsHub, log)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService, cfg.SessionTTL, log)
	projectHandler := handler.NewProjectHandler(projectService, log)
	changeRequestHandler := handler.NewChangeRequestHandler(changeRequestService, log)
	approvalHandler := handler.NewApprovalHandler(approvalService, log)
	auditHandler := handler.NewAuditHandler(auditService, log)

	publicLimit, err := middleware.PublicRateLimit(cfg.PublicRateLimit)
	if err != nil {
		log.Fatalf("Rate limiter setup failed: %v", err)
	}

	router := gin.New()
	if err := middleware.TrustProxies(router, cfg.TrustedProxies); err != nil {
		log.Fatalf("Trusted proxy setup failed: %v", err)
	}
	router.Use(gin.Recovery(), logger.Middleware(log), middleware.Metrics())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", logger.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	router.GET("/ws", websocket.Handler(wsHub, sessions, cfg.AllowedOrigins))

	timeout := middleware.RequestTimeout(cfg.RequestTimeout)

	// Public routes
	approvalHandler.RegisterRoutes(router.Group("/api/public", publicLimit, timeout))
	userHandler.RegisterRoutes(router.Group("/auth", publicLimit, timeout))

	// Session routes
	api := router.Group("/api", middleware.RequireSession(sessions), timeout)
	userHandler.RegisterSessionRoutes(api)
	projectHandler.RegisterRoutes(api)
	changeRequestHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
	log.Info("Server stopped")
}
