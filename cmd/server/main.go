// Command server is the entry point for The Faithful City backend.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"faithfulcity/internal/bootstrap"
	"faithfulcity/internal/config"
	"faithfulcity/internal/mail"
	"faithfulcity/internal/middleware"
	"faithfulcity/internal/observability"
	"faithfulcity/internal/server"
	"faithfulcity/internal/storage"
)

// @title The Faithful City API
// @version 1.0
// @description Church community backend with families, posts, media, notifications and a Bible quiz

// @contact.name API Support
// @contact.email support@faithfulcity.church

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8375
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "faithfulcity-api",
		ServiceVersion: "1.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedFamilies: cfg.SeedFamilies})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	blobs, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize media storage: %v", err)
	}

	mailer, err := mail.New(ctx, mail.Options{
		Region:     cfg.AWSRegion,
		FromEmail:  cfg.SESFromEmail,
		FromName:   cfg.SESFromName,
		AppBaseURL: cfg.AppBaseURL,
	})
	if err != nil {
		log.Fatalf("Failed to initialize mailer: %v", err)
	}

	srv, err := server.NewServer(cfg, db, rdb, server.Deps{Blobs: blobs, Mailer: mailer})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		middleware.Logger.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			middleware.Logger.Error("Server shutdown error", slog.String("error", err.Error()))
		}
		if err := shutdownTracing(ctx); err != nil {
			middleware.Logger.Error("Tracing shutdown error", slog.String("error", err.Error()))
		}
	}()

	middleware.Logger.Info("Server starting", slog.String("port", cfg.Port))
	if err := srv.Start(); err != nil {
		log.Fatal(err)
	}
}
