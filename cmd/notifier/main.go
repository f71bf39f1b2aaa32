package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"nagarconnect/api/internal/config"
	"nagarconnect/api/internal/email"
	"nagarconnect/api/internal/notify"
	"nagarconnect/api/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	if cfg.ResendAPIKey == "" {
		log.Fatal("RESEND_API_KEY is required for the notifier")
	}

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()
	dataStore := store.NewPostgresStore(db)

	sender := email.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom)
	handler := notify.NewHandler(dataStore, sender, cfg.JWTSecret, cfg.CORSOrigin)

	server := &http.Server{
		Addr:              cfg.NotifierAddr,
		Handler:           handler.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("NagarConnect notifier listening on %s", cfg.NotifierAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
