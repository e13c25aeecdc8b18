package main

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ismailsoloyt12-stack/zetsuserv/config"
	"github.com/ismailsoloyt12-stack/zetsuserv/controllers"
	"github.com/ismailsoloyt12-stack/zetsuserv/middleware"
)

// setupRouter configures the Gin engine with all API routes
func setupRouter() *gin.Engine {
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	v1 := router.Group("/api/v1")
	{
		// Health check endpoints
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus)

		// Public service request intake
		v1.POST("/requests", middleware.OptionalAuth(), controllers.SubmitRequest)
		v1.GET("/requests/:id/queue", controllers.QueueStatus)

		// Two-factor order tracking
		v1.POST("/track/auth", controllers.TrackingAuth)
		v1.POST("/track/order/:code/access-key", controllers.RequestAccessKey)
		track := v1.Group("/track/order", middleware.RequireAuth(middleware.PrincipalTracking, middleware.PrincipalClient))
		{
			track.GET("/:code", controllers.TrackOrder)
			track.GET("/:code/updates", controllers.OrderUpdates)
			track.POST("/:code/messages", controllers.SendClientMessage)
		}

		// Customer accounts
		auth := v1.Group("/auth")
		{
			auth.POST("/register", controllers.Register)
			auth.POST("/verify-email", controllers.VerifyEmail)
			auth.POST("/verify-email/resend", controllers.ResendVerification)
			auth.POST("/login", controllers.Login)
		}

		me := v1.Group("/me", middleware.RequireAuth(middleware.PrincipalClient))
		{
			me.GET("", controllers.GetProfile)
			me.PATCH("", controllers.UpdateProfile)
			me.GET("/orders", controllers.MyOrders)
			me.POST("/avatar", controllers.UploadAvatar)
		}

		// File uploads for request attachments
		v1.POST("/uploads", controllers.UploadAttachment)

		// Admin console
		v1.POST("/admin/login", controllers.AdminLogin)
		admin := v1.Group("/admin", middleware.RequireAuth(middleware.PrincipalAdmin))
		{
			admin.GET("/requests", controllers.ListRequests)
			admin.GET("/requests/:id", controllers.GetRequest)
			admin.PUT("/requests/:id/status", controllers.SetRequestStatus)
			admin.POST("/requests/:id/activate", controllers.ActivateRequest)
			admin.POST("/requests/:id/access-key", controllers.RegenerateAccessKey)
			admin.DELETE("/requests/:id", controllers.DeleteRequest)
			admin.POST("/requests/:id/messages", controllers.SendAdminMessage)
			admin.PUT("/requests/:id/progress", controllers.UpdateProgress)
			admin.GET("/notifications", controllers.ListNotifications)
			admin.GET("/queue", controllers.QueueOverview)
			admin.GET("/users", controllers.ListUsers)
			admin.DELETE("/users/:id", controllers.DeleteUser)
		}
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "ZetsuServ API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	var tables []string
	if err := db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
