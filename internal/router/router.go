// internal/router/router.go
package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/javajoker/foodsecure-backend/internal/chain"
	"github.com/javajoker/foodsecure-backend/internal/config"
	"github.com/javajoker/foodsecure-backend/internal/events"
	"github.com/javajoker/foodsecure-backend/internal/handlers"
	"github.com/javajoker/foodsecure-backend/internal/i18n"
	"github.com/javajoker/foodsecure-backend/internal/middleware"
	"github.com/javajoker/foodsecure-backend/internal/models"
	"github.com/javajoker/foodsecure-backend/internal/services"
)

// Backends are the chain and messaging clients the HTTP surface runs on.
type Backends struct {
	Contract  chain.Contract
	Relayer   chain.Relayer
	Cache     services.CacheForgetter // nil when reads are not cached
	Publisher events.Publisher
}

func Initialize(db *gorm.DB, cfg *config.Config, backends Backends) (*gin.Engine, error) {
	publisher := backends.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	// Initialize services
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	qrService := services.NewQRService(cfg)
	notificationService := services.NewNotificationService(backends.Contract, cfg)

	authService := services.NewAuthService(db, backends.Contract, cfg)
	userService := services.NewUserService(backends.Contract, storageService, publisher, cfg)
	productService := services.NewProductService(backends.Contract, storageService, qrService, publisher, cfg)
	shipmentService := services.NewShipmentService(backends.Contract, storageService, notificationService, publisher, cfg)
	paymentService := services.NewPaymentService(backends.Contract, notificationService, publisher, cfg)
	transactionService := services.NewTransactionService(backends.Relayer, backends.Cache, publisher)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	productHandler := handlers.NewProductHandler(productService)
	shipmentHandler := handlers.NewShipmentHandler(shipmentService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	fileHandler := handlers.NewFileHandler(storageService, qrService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.Frontend))
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	chainMode := "ethereum"
	if cfg.Blockchain.Offline() {
		chainMode = "ledger"
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"version":   "1.0.0",
			"chain":     chainMode,
			"languages": i18n.Languages(),
		})
	})

	producers := []string{models.RoleSupplier.Name(), models.RoleManufacturer.Name()}
	carriers := []string{models.RoleLogisticPartner.Name()}

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/challenge", authHandler.Challenge)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Participant routes
		users := v1.Group("/users")
		users.Use(middleware.OptionalAuth())
		{
			users.GET("/:address", userHandler.GetUser)
			users.GET("/:address/role", userHandler.GetRole)
			users.POST("/register", middleware.AuthRequired(), middleware.UploadRateLimit(), userHandler.Register)
		}

		// Product routes; history, QR and tracker are public for consumers scanning a label
		products := v1.Group("/products")
		products.Use(middleware.OptionalAuth())
		{
			products.GET("/:id", productHandler.GetProduct)
			products.GET("/:id/history", productHandler.GetHistory)
			products.GET("/:id/qr", productHandler.GetQRCode)
			products.GET("/:id/tracker", productHandler.GetTracker)

			protected := products.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.GET("", productHandler.GetProducts)
				protected.POST("", middleware.RoleRequired(producers...), middleware.WriteRateLimit(), productHandler.CreateProduct)
			}
		}

		inventory := v1.Group("/inventory")
		inventory.Use(middleware.AuthRequired())
		{
			inventory.GET("", productHandler.GetInventory)
			inventory.PUT("/:id/sold", middleware.WriteRateLimit(), productHandler.UpdateSoldOut)
		}

		// Shipment routes
		shipments := v1.Group("/shipments")
		shipments.Use(middleware.AuthRequired(), middleware.WriteRateLimit())
		{
			shipments.POST("/:id/dispatch", shipmentHandler.Dispatch)
			shipments.PUT("/:id/status", middleware.RoleRequired(carriers...), shipmentHandler.UpdateStatus)
			shipments.POST("/:id/receive", shipmentHandler.Receive)
		}

		// Invoice and payment routes
		invoices := v1.Group("/invoices")
		invoices.Use(middleware.AuthRequired())
		{
			invoices.GET("", paymentHandler.GetPendingInvoices)
			invoices.POST("/:id/pay", middleware.WriteRateLimit(), paymentHandler.PayInvoice)
		}

		payments := v1.Group("/payments")
		payments.Use(middleware.AuthRequired())
		{
			payments.GET("/history", paymentHandler.GetPaymentHistory)
		}

		// Upload routes
		v1.POST("/qr/decode", middleware.OptionalAuth(), middleware.UploadRateLimit(), fileHandler.DecodeQR)
		v1.POST("/files", middleware.AuthRequired(), middleware.UploadRateLimit(), fileHandler.Upload)

		transactions := v1.Group("/transactions")
		transactions.Use(middleware.AuthRequired(), middleware.WriteRateLimit())
		{
			transactions.POST("/raw", transactionHandler.SubmitRaw)
		}
	}

	return r, nil
}
