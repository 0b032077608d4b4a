package main

import (
	"log"
	"time"

	"parceltracker/internal/core/cache"
	"parceltracker/internal/core/config"
	"parceltracker/internal/core/httpclient"
	"parceltracker/internal/core/logger"
	"parceltracker/internal/core/server"
	trackingadapter "parceltracker/internal/features/tracking/adapters"
	trackinghandler "parceltracker/internal/features/tracking/handler"
	"parceltracker/internal/features/tracking/ports"
	trackingservice "parceltracker/internal/features/tracking/service"

	"go.uber.org/zap"
)

// @title Parcel Tracker API
// @version 1.0
// @description Unified parcel tracking API that normalizes carrier responses into a single shipment model.
// @contact.name API Support
// @contact.email support@parceltracker.dev
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
		zap.String("default_language", cfg.DefaultLanguage),
		zap.Bool("strict_errors", cfg.StrictErrors),
	)

	client := httpclient.New(
		time.Duration(cfg.HTTP.TimeoutSeconds)*time.Second,
		cfg.HTTP.MaxRetries,
		cfg.Proxy,
	)
	if cfg.Proxy.HasProxy() {
		l.Info("Outbound proxy enabled", zap.String("proxy", cfg.Proxy.HostPort()))
	}

	// Redis is optional: without it OAuth tokens are fetched per request.
	var tokenCache cache.Cache
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisAdapter(cfg.RedisURL)
		if err != nil {
			l.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisCache.Close()
		tokenCache = redisCache
		l.Info("Redis connection verified")
	}

	glsTokens := trackingadapter.NewGLSTokenSource(client, cfg.Carriers.GLSClientID, cfg.Carriers.GLSClientSecret, tokenCache)

	providers := []ports.CarrierProvider{
		trackingadapter.NewCorreosAdapter(client),
		trackingadapter.NewDHLAdapter(client, cfg.Carriers.DHLAPIKey, cfg.Carriers.DHLServer),
		trackingadapter.NewDPDAdapter(client),
		trackingadapter.NewGLSAdapter(client, glsTokens, cfg.Carriers.GLSServer),
		trackingadapter.NewCTTAdapter(client),
		trackingadapter.NewEcoscootingAdapter(client),
	}

	trackingSvc := trackingservice.NewTrackingService(providers)
	trackingHdl := trackinghandler.NewTrackingHandler(trackingSvc, cfg.StrictErrors).
		WithDefaultLanguage(cfg.DefaultLanguage)

	srv := server.New(cfg)

	// Register Routes
	srv.App.Get("/carriers", trackingHdl.Carriers)
	srv.App.Get("/tracking/:number", trackingHdl.Track)
	srv.App.Get("/tracking/:number/url", trackingHdl.TrackingURL)

	if err := srv.Run(); err != nil {
		l.Fatal("Server failed to start", zap.Error(err))
	}
}
