package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"jostrid/config"
	"jostrid/database"
	"jostrid/identity"
	"jostrid/routes"
	"jostrid/services"
	"jostrid/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found. Using default configuration.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	if err := database.SeedDatabase(db); err != nil {
		log.Fatal("Failed to seed database: ", err)
	}

	idp, err := identity.NewClient(cfg)
	if err != nil {
		log.Fatal("Failed to initialize identity provider client: ", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	authorizer, err := identity.NewAuthorizer(ctx, idp.Discovery().JwksURI, identity.Policy{
		Audience: cfg.Audience,
		Scope:    cfg.RequiredScope,
	})
	if err != nil {
		log.Fatal("Failed to initialize JWT authorizer: ", err)
	}

	sessions := session.NewGormStore(db)
	stopCleanup := make(chan struct{})
	sessions.StartCleanup(time.Hour, stopCleanup)

	authService := services.NewAuthService(db, idp, cfg.AllowedEmails)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	routes.SetupRoutes(r, db, cfg, authService, sessions, authorizer)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	close(stopCleanup)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Println("Server exited")
}
