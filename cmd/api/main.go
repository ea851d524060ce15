package main

import (
	"context"
	"log"
	"time"

	"studioguideapi/config"
	"studioguideapi/controllers"
	"studioguideapi/services"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %s", err)
	}
	logger := config.NewLogger(cfg)

	err = sentry.Init(sentry.ClientOptions{
		// empty DSN disables reporting
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.Env,
		Release:          "studioguide@1.0.0",
		Debug:            false,
		TracesSampleRate: 0.2,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("sentry.Init failed")
	}
	defer sentry.Recover()
	defer sentry.Flush(2 * time.Second)

	client, err := services.NewGeminiClient(context.Background(), cfg.GoogleAPIKey, cfg.GeminiBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize gemini client")
	}
	stylist := services.NewGeminiStylist(client, services.StylistOptions{
		AnalysisModel: cfg.AnalysisModel,
		ImageModel:    cfg.ImageModel,
		Logger:        logger,
	})
	sessions, err := services.NewSessionStore(stylist, cfg.SessionTTL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize session store")
	}

	e := controllers.SetupServer(sessions, controllers.ServerConfig{
		JWTSecret: cfg.JWTSecret,
		Logger:    logger,
	})
	e.Debug = cfg.IsLocal()

	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(10)))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))

	logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting studio guide api")
	if err := e.Start(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
