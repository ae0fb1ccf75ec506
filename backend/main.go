package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"quizplatform/backend/cache"
	"quizplatform/backend/config"
	"quizplatform/backend/routes"
	"quizplatform/backend/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize logger
	logger := utils.InitLogger(utils.LoggerConfig{EnableColors: true})

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}
	if err := utils.SeedAdmin(context.Background(), db, cfg, logger); err != nil {
		log.Fatalf("Error seeding admin: %v", err)
	}

	app := routes.NewApp(routes.Deps{
		DB:     db,
		Cfg:    cfg,
		Logger: logger,
		Cache:  cache.New(cfg.RedisAddr, cfg.RedisPassword, logger),
		Mailer: utils.NewMailer(cfg, logger),
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Println("Shutting down")
		if err := app.Shutdown(); err != nil {
			logger.Printf("Shutdown: %v", err)
		}
	}()

	// Start server
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		log.Fatal(err)
	}
}
