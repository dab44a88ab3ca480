package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"go-rental-ledger/internal/auth"
	"go-rental-ledger/internal/config"
	"go-rental-ledger/internal/database"
	"go-rental-ledger/internal/handlers"
	"go-rental-ledger/internal/inventory"
	"go-rental-ledger/internal/metrics"
	"go-rental-ledger/internal/middleware"
	"go-rental-ledger/internal/utils"
)

func main() {
	cfg := config.Load()
	logg := config.GetLogger()
	auth.SetSecret(cfg.JWTSecret)

	if err := database.Connect(cfg); err != nil {
		logg.WithError(err).Fatal("database unavailable")
	}

	// Redis only narrows the booking race across instances; row locks decide.
	var locker inventory.Locker
	if cfg.RedisAddress != "" {
		rdb, err := database.ConnectRedis(context.Background(), cfg.RedisAddress)
		if err != nil {
			logg.WithError(err).Warn("redis unavailable, rental bookings rely on row locks only")
		} else {
			defer rdb.Close()
			locker = database.NewRedisLocker(rdb)
		}
	}

	engine := inventory.NewEngine(database.NewUnitOfWork(database.DB), locker)
	stats := metrics.New("rental_ledger")
	handlers.Setup(engine, cfg, stats)

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		logg.WithError(err).Fatal("cannot create upload directory")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(logg))
	r.Use(middleware.Metrics(stats))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "online", "instance_id": utils.InstanceID()})
	})
	r.GET("/metrics", gin.WrapH(stats.Handler()))
	r.POST("/login", handlers.Login)
	r.Static("/uploads", cfg.UploadDir)

	// --- FEATURE FLAG: Registration ---
	if cfg.AllowRegistration {
		r.POST("/register", handlers.Register)
		logg.Warn("registration route is OPEN, disable it in production")
	} else {
		logg.Info("registration route is disabled")
	}

	// --- PROTECTED ROUTES ---
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware())
	{
		// STAFF & ADMIN
		api.GET("/system/status", handlers.GetSystemStatus)
		api.GET("/raw-items", handlers.GetRawItems)
		api.GET("/kits", handlers.GetKits)
		api.GET("/kits/:id", handlers.GetKit)
		api.GET("/kits/:id/max-buildable", handlers.GetMaxBuildable)
		api.GET("/rentals", handlers.GetRentalItems)
		api.GET("/rentals/active", handlers.GetActiveRentals)
		api.GET("/rentals/:id/availability", handlers.GetRentalAvailability)
		api.POST("/rentals/returns/:lineId", handlers.ReturnRental)
		api.GET("/categories", handlers.GetCategories)
		api.GET("/customers", handlers.GetCustomers)
		api.POST("/checkout", handlers.ProcessSale)
		api.GET("/sales", handlers.GetSales)
		api.GET("/sales/:id", handlers.GetSale)

		// ADMIN ONLY
		admin := api.Group("/")
		admin.Use(middleware.RequireRole("admin"))
		{
			admin.POST("/ask", handlers.AskAI)
			admin.POST("/upload", handlers.UploadImage)

			admin.POST("/raw-items", handlers.CreateRawItem)
			admin.DELETE("/raw-items/:id", handlers.DeleteRawItem)
			admin.POST("/raw-items/:id/adjust", handlers.AdjustStock)
			admin.POST("/raw-items/:id/opening-stock", handlers.AddOpeningStock)

			admin.POST("/kits", handlers.CreateKit)
			admin.PUT("/kits/:id", handlers.UpdateKit)
			admin.DELETE("/kits/:id", handlers.DeleteKit)
			admin.POST("/kits/:id/assemble", handlers.AssembleKit)
			admin.POST("/kits/:id/disassemble", handlers.DisassembleKit)

			admin.GET("/purchases", handlers.GetPurchases)
			admin.POST("/purchases", handlers.CreatePurchase)
			admin.POST("/purchases/:id/receive", handlers.ReceivePurchase)
			admin.DELETE("/purchases/:id", handlers.DeletePurchase)

			admin.PUT("/sales/:id", handlers.EditSale)
			admin.DELETE("/sales/:id", handlers.DeleteSale)

			admin.POST("/rentals", handlers.CreateRentalItem)
			admin.POST("/categories", handlers.CreateCategory)

			admin.GET("/expenses", handlers.GetExpenses)
			admin.POST("/expenses", handlers.CreateExpense)
			admin.GET("/expense-categories", handlers.GetExpenseCategories)
			admin.POST("/expense-categories", handlers.CreateExpenseCategory)

			admin.GET("/reports/sales", handlers.GetSalesReport)
			admin.GET("/reports/pnl", handlers.GetProfitAndLoss)
			admin.GET("/reports/valuation", handlers.GetStockValuation)
			admin.GET("/reports/valuation/export", handlers.ExportStockValuation)

			admin.GET("/system/logs", handlers.GetSystemLogs)
		}
	}

	// --- DEPLOYMENT: Serve the frontend build ---
	r.Static("/assets", "./web/assets")
	r.StaticFile("/vite.svg", "./web/vite.svg")
	r.NoRoute(func(c *gin.Context) {
		c.File("./web/index.html")
	})

	logg.WithField("base_url", cfg.BaseURL).Info("server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		logg.WithError(err).Fatal("server failed to start")
	}
}
