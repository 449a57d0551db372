package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"jostrid/config"
	"jostrid/controllers"
	"jostrid/identity"
	"jostrid/session"
)

// CORSMiddleware allows the frontend origin only, mirroring the split
// deployment where the SPA and the API live on different hosts.
func CORSMiddleware(frontendURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", frontendURL)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// SetupRoutes wires the controllers to their routes. Everything under
// /api except the ping is behind the JWT authorizer; /oauth is open.
func SetupRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, auth controllers.AuthProvider, sessions session.Store, authorizer *identity.Authorizer) {
	authController := controllers.NewAuthController(auth, sessions, cfg)
	userController := controllers.NewUserController(db)
	meController := controllers.NewMeController(db)
	expenseController := controllers.NewExpenseController(db)
	categoryController := controllers.NewExpenseCategoryController(db)
	balanceController := controllers.NewBalanceController(db)
	imageController := controllers.NewImageController(db)

	r.Use(CORSMiddleware(cfg.FrontendURL))

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     "database connection error",
				"timestamp": time.Now().Unix(),
			})
			return
		}

		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := sqlDB.PingContext(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     "database ping failed",
				"timestamp": time.Now().Unix(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "connected",
			"timestamp": time.Now().Unix(),
		})
	})

	r.GET("/api", func(c *gin.Context) {
		c.String(http.StatusOK, "Hello, World!")
	})

	oauth := r.Group("/oauth")
	{
		oauth.GET("/redirect", authController.Redirect)
		oauth.GET("/callback", authController.Callback)
		oauth.POST("/refresh", authController.Refresh)
		oauth.POST("/logout", authController.Logout)
	}

	api := r.Group("/api", authorizer.Middleware())
	{
		api.GET("/user", userController.GetUsers)
		api.GET("/me", meController.GetMe)
		api.PATCH("/me", meController.PatchMe)
		api.GET("/expense", expenseController.GetExpenses)
		api.GET("/expense/:id", expenseController.GetExpense)
		api.PUT("/expense", expenseController.UpsertExpense)
		api.DELETE("/expense/:id", expenseController.DeleteExpense)
		api.GET("/expense_category", categoryController.GetExpenseCategories)
		api.GET("/balance", balanceController.GetBalance)
		api.GET("/image", imageController.GetImages)
		api.POST("/image/import", imageController.ImportImages)
	}
}
