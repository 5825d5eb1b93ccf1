package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"instrevi/config"
	"instrevi/database"
	"instrevi/handlers"
	"instrevi/logging"
	"instrevi/realtime"
	"instrevi/routes"
)

func main() {
	config.LoadDotEnvs()
	logging.InitLogger()
	log := logging.Log

	log.Info("Starting Instrevi server...")

	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	// ===== CONNECT TO MONGODB WITH RETRY =====
	var dbErr error
	for i := 1; i <= 3; i++ {
		if err := database.ConnectMongo(); err != nil {
			dbErr = err
			log.Warnf("MongoDB connection attempt %d failed: %v", i, err)
			time.Sleep(2 * time.Second)
			continue
		}
		dbErr = nil
		break
	}
	if dbErr != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", dbErr)
	}

	// ===== GIN MODE =====
	if os.Getenv("APP_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// ===== ROUTER =====
	router := routes.SetupRouter()

	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "Instrevi API running", "service": "healthy"})
	})
	router.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	// ===== REALTIME FEED EVENTS =====
	feedHub := realtime.NewHub()
	go feedHub.Run()
	handlers.SetHub(feedHub)

	router.GET("/ws", func(c *gin.Context) {
		feedHub.ServeWS(c.Writer, c.Request)
	})

	// ===== SERVER =====
	port := config.Getenv("PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Server running on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// ===== GRACEFUL SHUTDOWN =====
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("Forced shutdown: %v", err)
	}
	if err := database.DisconnectMongo(); err != nil {
		log.Warnf("Mongo disconnect: %v", err)
	}

	log.Info("Server stopped gracefully")
}
