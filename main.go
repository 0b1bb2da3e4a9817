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

	"rehbersync/internal/config"
	"rehbersync/internal/crypto"
	"rehbersync/internal/database"
	"rehbersync/internal/portal"
	"rehbersync/internal/progress"
	"rehbersync/internal/server"
	"rehbersync/internal/services/accounts"
	"rehbersync/internal/services/scheduler"
	"rehbersync/internal/services/transfer"
)

func main() {
	log.Println("rehbersync starting up...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Encryption is required before anything touches stored credentials.
	if err := crypto.InitEncryption(); err != nil {
		log.Fatalf("FATAL: Encryption initialization failed: %v\nPortal credentials cannot be stored without it.", err)
	}
	log.Println("Encryption initialized successfully")

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	hub := progress.NewHub()
	accountSvc := accounts.NewService(db)
	sessions := transfer.NewSessionStore(db)

	newDriver := func(params transfer.NavigationParams) (transfer.Driver, error) {
		username, password, err := accountSvc.Credentials()
		if err != nil {
			return nil, err
		}
		return portal.NewChromeDriver(portal.Config{
			BaseURL:         cfg.PortalBaseURL,
			Headless:        cfg.Headless,
			Credentials:     portal.Credentials{Username: username, Password: password},
			InstitutionCode: params.InstitutionCode,
			LaunchTimeout:   cfg.LaunchTimeout,
			LoginTimeout:    cfg.LoginTimeout,
			StepTimeout:     cfg.StepTimeout,
			SubmitTimeout:   cfg.SubmitTimeout,
		}), nil
	}

	manager := transfer.NewManager(sessions, hub, newDriver)
	log.Println("Transfer manager initialized")

	schedulerSvc := scheduler.NewService(db, manager, sessions)
	if err := schedulerSvc.Start(); err != nil {
		log.Printf("WARNING: Failed to start scheduler: %v", err)
	} else {
		log.Println("Scheduler service initialized and started")
	}

	// periodic eviction of finished jobs and their event rooms
	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				for _, id := range manager.CleanupJobs(cfg.JobRetention) {
					hub.Drop(id)
				}
			case <-cleanupDone:
				return
			}
		}
	}()

	srv := server.New(manager, schedulerSvc, accountSvc, hub)

	go func() {
		log.Printf("Listening on %s", cfg.ServerAddr)
		if err := srv.Start(cfg.ServerAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	close(cleanupDone)
	schedulerSvc.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("WARNING: Server shutdown: %v", err)
	}

	if err := database.Close(); err != nil {
		log.Printf("WARNING: Database close: %v", err)
	}

	log.Println("Shutdown complete")
}
