package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-consultation-be/internal/bootstrap"
	"ai-consultation-be/internal/config"
	"ai-consultation-be/internal/model"
	"ai-consultation-be/internal/server"
	"ai-consultation-be/internal/tracer"
	"ai-consultation-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer("ai-consultation-be", cfg.App.Environment)
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Tracer shutdown error: %v", err)
		}
	}()

	// 3. Initialize Database (optional, backs the assessment archive)
	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		var err error
		gormDB, err = database.NewGormDBFromDSN(cfg.Database.Connection, !cfg.IsProduction(), &model.AssessmentRecord{})
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
	} else {
		log.Println("DB_CONNECTION_STRING not set, assessment archive disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(ctx, gormDB, cfg)
	if err != nil {
		log.Fatalf("Failed to build container: %v", err)
	}
	defer container.Close()

	// 5. Start Background Services
	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Fatalf("Failed to start event consumer: %v", err)
	}
	container.Sweeper.Start()

	// 6. Initialize Server
	srv := server.New(cfg, container)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Run()
	}()

	// 7. Wait for shutdown
	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server error: %v", err)
		}
	case <-ctx.Done():
		log.Println("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if err := container.Sweeper.Stop(); err != nil {
		log.Printf("Sweeper shutdown error: %v", err)
	}
}
