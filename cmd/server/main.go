package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/HussainShah1551/gp-codebuild/internal/api"
	"github.com/HussainShah1551/gp-codebuild/internal/config"
	"github.com/HussainShah1551/gp-codebuild/internal/dispatch"
	"github.com/HussainShah1551/gp-codebuild/internal/pipeline"
	"github.com/HussainShah1551/gp-codebuild/internal/pkg/awsconf"
	"github.com/HussainShah1551/gp-codebuild/internal/runlog"
	"github.com/HussainShah1551/gp-codebuild/internal/store"
	"github.com/HussainShah1551/gp-codebuild/internal/tier"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	log.Println("Starting Gym Passport report hook server...")

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	ctx := context.Background()
	awsCfg, err := awsconf.Load(ctx, cfg.AWS)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	// Optional Redis for the per-report trigger lock.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("Warning: Redis unreachable, falling back to DB lock: %v", err)
			redisClient = nil
		} else {
			log.Println("Connected to Redis")
		}
	}

	// Optional Postgres run log (and advisory-lock fallback).
	var db *sql.DB
	var rl *runlog.RunLog
	if cfg.RunLog.Enabled && cfg.RunLog.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.RunLog.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to open run log database: %v", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := db.PingContext(pingCtx); err != nil {
			cancel()
			log.Fatalf("Failed to ping run log database: %v", err)
		}
		cancel()

		rl = runlog.New(db)
		if err := rl.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to ensure run log schema: %v", err)
		}
		log.Println("Run log enabled")
	}

	st := store.NewS3Store(awsCfg, cfg.Report.MarkerSuffix)
	mailer := dispatch.NewSESMailer(awsCfg, cfg.Dispatch.SourceEmail, cfg.Dispatch.AdminEmail)
	queue := dispatch.NewSQSQueue(awsCfg, cfg.AWS.QueueURL)

	replacement := ""
	if cfg.Dispatch.ReplaceEmails {
		replacement = cfg.Dispatch.ReplacementEmail
		log.Printf("Email replacement is ON: every recipient becomes %s", replacement)
	}
	dispatcher := dispatch.NewDispatcher(mailer, queue, replacement)

	calc := tier.NewCalculator(cfg.Report.BaseFee)
	pipe := pipeline.New(st, dispatcher, calc, pipeline.Options{
		WindowMode:     pipeline.WindowMode(cfg.Report.DateWindow),
		ExcludeHeaders: cfg.Report.ExcludeHeaders,
	})

	handlers := api.NewHandlers(pipe, st, redisClient, db, rl)

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handlers.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // a run completes within the request
	}

	go func() {
		log.Printf("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
