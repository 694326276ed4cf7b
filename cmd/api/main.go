package main

import (
	"log"

	"supplychain/internal/config"
	"supplychain/internal/database"
	"supplychain/internal/handler"
	"supplychain/internal/middleware"
	"supplychain/internal/repository"
	"supplychain/internal/service"
	"supplychain/internal/websocket"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// @title           Supply-Chain Planning API
// @version         1.0
// @description     Reorder policies, MRP runs and landed-cost allocation.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load("configs/.env")
	if err != nil {
		log.Fatalf("Config: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Printf("Connected to %s successfully.", cfg.Database.Driver)

	node, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		log.Fatalf("Snowflake node: %v", err)
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	locker := repository.NewLocker(db)

	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	partnerRepo := repository.NewPartnerRepository(db)
	policyRepo := repository.NewPolicyRepository(db)
	mrpRepo := repository.NewMRPRepository(db)
	landedRepo := repository.NewLandedCostRepository(db)
	changeRepo := repository.NewCostChangeRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	inventoryReader := repository.NewInventoryReader(productRepo)

	reorderService := service.NewReorderService(policyRepo, partnerRepo, auditRepo, inventoryReader, txManager, locker, wsHub)
	mrpService := service.NewMRPService(mrpRepo, orderRepo, policyRepo, auditRepo, inventoryReader, txManager, locker, node, wsHub, cfg.MRP)
	landedCostService := service.NewLandedCostService(landedRepo, orderRepo, productRepo, partnerRepo, changeRepo, auditRepo, txManager, locker, wsHub)
	auditService := service.NewAuditService(auditRepo)

	// Initialize Handlers
	planningHandler := handler.NewPlanningHandler(reorderService)
	mrpHandler := handler.NewMRPHandler(mrpService)
	landedCostHandler := handler.NewLandedCostHandler(landedCostService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	router.Use(cors.New(corsConfig))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, cfg.JWTSecret)
	})

	// API Routing
	api := router.Group("/api/planning", middleware.RequireAuth(cfg.JWTSecret))
	planningHandler.RegisterRoutes(api)
	mrpHandler.RegisterRoutes(api)
	landedCostHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)

	log.Printf("Server listening on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
