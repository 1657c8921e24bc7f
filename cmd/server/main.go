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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"basemap/internal/airtable"
	"basemap/internal/analysis"
	"basemap/internal/api"
	"basemap/internal/auth"
	"basemap/internal/billing"
	"basemap/internal/config"
	"basemap/internal/logging"
	"basemap/internal/pg"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Development())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: 60 * time.Second}
	srv := &api.Server{
		Schemas:     airtable.NewClient(cfg.AirtableURL, httpClient, logger.Named("airtable")),
		Analyzer:    analysis.NewAnalyzer(analysis.NewGeminiClient(cfg.GeminiURL, cfg.GeminiModel, httpClient), logger.Named("analysis")),
		Log:         logger,
		GeminiModel: cfg.GeminiModel,
	}

	if cfg.SupabaseURL != "" {
		srv.Auth = &auth.Handlers{
			Supabase:    auth.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseAnonKey),
			Development: cfg.Development(),
			Log:         logger.Named("auth"),
		}
	}
	switch {
	case cfg.SupabaseJWKSURL != "":
		srv.Verifier = auth.NewJWKSVerifier(cfg.SupabaseJWKSURL)
	case cfg.SupabaseJWTSecret != "":
		srv.Verifier = &auth.HS256Verifier{Secret: []byte(cfg.SupabaseJWTSecret), Audience: "authenticated"}
	}

	if cfg.DBURL != "" && cfg.StripeSecretKey != "" {
		db, err := pg.Open(ctx, cfg.DBURL)
		if err != nil {
			logger.Fatal("postgres connect failed", zap.Error(err))
		}
		defer db.Close()
		if cfg.AutoMigrate {
			if err := pg.ApplyDDL(ctx, db, pg.BillingDDL(), logger.Named("pg")); err != nil {
				logger.Fatal("billing migration failed", zap.Error(err))
			}
		}
		srv.Billing = &billing.Service{
			Store:         pg.NewBillingStore(db),
			Provider:      billing.NewStripeProvider(cfg.StripeSecretKey, nil),
			Log:           logger.Named("billing"),
			AppURL:        cfg.AppURL,
			PriceID:       cfg.StripePriceID,
			ProductID:     cfg.StripeProductID,
			WebhookSecret: cfg.StripeWebhookSecret,
		}
	} else {
		logger.Info("billing disabled: database URL or Stripe key not configured")
	}

	hs := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(srv),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdown)
	}()

	logger.Info("basemap server listening",
		zap.String("addr", hs.Addr),
		zap.String("env", cfg.Env),
		zap.Bool("billing", srv.Billing != nil),
		zap.Bool("auth", srv.Auth != nil))
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
