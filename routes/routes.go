package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"instrevi/handlers"
	"instrevi/middleware"
)

func SetupRouter() *gin.Engine {
	router := gin.Default()

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Instrevi API is running",
			"time":    time.Now().Unix(),
		})
	})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000", "http://localhost:8080", "http://127.0.0.1:8080"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Auth endpoints are public but rate limited per IP
	auth := router.Group("/api/auth")
	auth.Use(middleware.AuthRateLimitMiddleware())
	auth.POST("/register", handlers.Register)
	auth.POST("/login", handlers.Login)
	auth.POST("/verify-email", handlers.VerifyEmail)
	auth.POST("/forgot-password", handlers.ForgotPassword)
	auth.POST("/reset-password", handlers.ResetPassword)

	// Public reads
	router.GET("/api/posts", handlers.GetPosts)
	router.GET("/api/users/:userId", handlers.GetUser)
	router.GET("/api/vapid-public-key", handlers.GetVapidPublicKey)

	protected := router.Group("/api")
	protected.Use(middleware.JWTAuthMiddleware())

	// Posts
	protected.POST("/posts", handlers.CreatePost)
	protected.POST("/posts/:postId/like", handlers.LikePost)
	protected.POST("/posts/:postId/comment", handlers.AddComment)

	// Users
	protected.POST("/users/:userId/follow", handlers.FollowUser)
	protected.PUT("/users/profile", handlers.UpdateProfile)

	// Push subscriptions
	protected.POST("/subscribe", handlers.SubscribePush)

	// JSON 404 for unknown API routes
	router.NoRoute(func(c *gin.Context) {
		if len(c.Request.URL.Path) >= 4 && c.Request.URL.Path[:4] == "/api" {
			c.JSON(404, gin.H{
				"error": "Endpoint not found",
				"path":  c.Request.URL.Path,
			})
			return
		}
		c.Next()
	})

	return router
}
