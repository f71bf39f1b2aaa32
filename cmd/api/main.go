package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"nagarconnect/api/internal/app"
	"nagarconnect/api/internal/certificate"
	"nagarconnect/api/internal/config"
	"nagarconnect/api/internal/notify"
	"nagarconnect/api/internal/ratelimit"
	"nagarconnect/api/internal/realtime"
	"nagarconnect/api/internal/session"
	"nagarconnect/api/internal/storage"
	"nagarconnect/api/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}
	dataStore := store.NewPostgresStore(db)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("invalid redis url: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}

	sessions := session.NewRedisStoreWithClient(redisClient)
	bus := realtime.NewBus(redisClient, cfg.ChangeChannel)
	limiter := ratelimit.New(redisClient, "nagar:reports:", cfg.IssueRateLimit, 24*time.Hour)

	// Object storage is optional at boot. Issues, auth, and the realtime
	// feed keep working without it; photo uploads answer 503 and resolution
	// certificates are skipped until the bucket comes back.
	objects, err := storage.New(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
	if err != nil {
		log.Printf("object storage unavailable, uploads disabled: %v", err)
		objects = nil
	}
	if objects != nil {
		for _, bucket := range []string{cfg.PhotoBucket, cfg.CertBucket} {
			if err := objects.EnsureBucket(ctx, bucket); err != nil {
				log.Printf("bucket %s setup failed, uploads disabled: %v", bucket, err)
				objects = nil
				break
			}
		}
	}

	notifierURL := "http://localhost" + cfg.NotifierAddr
	if strings.Contains(cfg.NotifierAddr, "://") {
		notifierURL = cfg.NotifierAddr
	}
	dispatcher := notify.NewClient(notifierURL)

	var service *app.Service
	if objects != nil {
		service = app.New(cfg, dataStore, sessions, bus, dispatcher, certificate.NewService(objects, cfg.CertBucket))
	} else {
		service = app.New(cfg, dataStore, sessions, bus, dispatcher, nil)
	}

	refresher := realtime.NewRefresher(redisClient, cfg.ChangeChannel, "issues",
		cfg.RefreshInterval, cfg.RefreshDebounce, service.RefreshIssueCache)
	if err := refresher.Start(ctx); err != nil {
		log.Fatalf("change feed subscription failed: %v", err)
	}
	defer refresher.Stop()

	var httpServer *app.HTTPServer
	if objects != nil {
		httpServer = app.NewHTTPServer(service, limiter, objects, cfg.PhotoBucket, cfg.CORSOrigin)
	} else {
		httpServer = app.NewHTTPServer(service, limiter, nil, cfg.PhotoBucket, cfg.CORSOrigin)
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("NagarConnect API listening on %s", cfg.Addr)
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
