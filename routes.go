package main

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/neraa-rental/orders-api/config"
	"github.com/neraa-rental/orders-api/controllers"
	"github.com/neraa-rental/orders-api/logger"
	"github.com/neraa-rental/orders-api/middleware"
	"github.com/neraa-rental/orders-api/services"
	"go.uber.org/zap"
)

// setupRouter builds the gin engine with every API route. Services must be
// installed before requests arrive.
func setupRouter(cfg *config.Config, log *zap.Logger) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(logger.GinMiddleware(log), logger.Recovery(log))
	router.MaxMultipartMemory = 32 << 20

	if len(cfg.CORSAllowedOrigins) > 0 {
		exposedHeaders := []string{
			"Content-Disposition",
			controllers.BillsWrittenHeader,
			controllers.BillsSkippedHeader,
			controllers.BillsSkippedOrdersHeader,
		}
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSAllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    exposedHeaders,
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	requireToken, err := middleware.EnsureValidToken(cfg, log)
	if err != nil {
		return nil, err
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.POST("/auth/login", controllers.Login)
		if cfg.StorageBackend != config.StorageS3 {
			v1.GET("/uploads/:filename", controllers.GetUploadedImage)
		}

		authed := v1.Group("")
		authed.Use(requireToken, middleware.RequireActor(services.GetStaffService()))
		{
			authed.GET("/auth/me", controllers.GetCurrentUser)
			authed.GET("/dashboard", controllers.GetStaffDashboard)
			authed.POST("/orders", controllers.CreateOrder)
			authed.GET("/orders", controllers.ListMyOrders)
			authed.GET("/orders/:id", controllers.GetOrder)
			authed.PUT("/orders/:id", controllers.EditOrder)
		}

		admin := authed.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/dashboard", controllers.GetAdminDashboard)
			admin.GET("/staff", controllers.ListStaff)
			admin.POST("/staff", controllers.CreateStaff)
			admin.GET("/orders", controllers.SearchOrders)
			admin.GET("/orders/:id", controllers.GetOrder)
			admin.PUT("/orders/:id", controllers.AdminEditOrder)
			admin.POST("/orders/:id/approve", controllers.ApproveOrder)
			admin.POST("/orders/:id/reject", controllers.RejectOrder)
			admin.POST("/orders/:id/complete", controllers.CompleteOrder)
			admin.POST("/orders/:id/cancel", controllers.CancelOrder)
			admin.GET("/orders/:id/bill", controllers.DownloadBill)
			admin.GET("/reports/orders.csv", controllers.DownloadOrdersReport)
			admin.GET("/reports/bills.zip", controllers.DownloadBillsArchive)
		}
	}

	return router, nil
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Neraa orders API is running",
	})
}
