package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/HarisShah1122/smart-laptop-store/internal/api"
	"github.com/HarisShah1122/smart-laptop-store/internal/cache"
	"github.com/HarisShah1122/smart-laptop-store/internal/config"
	"github.com/HarisShah1122/smart-laptop-store/internal/events"
	"github.com/HarisShah1122/smart-laptop-store/internal/payment"
	"github.com/HarisShah1122/smart-laptop-store/internal/repository"
	"github.com/HarisShah1122/smart-laptop-store/internal/service"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "orders").Logger()

	// prices marshal as JSON numbers, matching the stored NUMERIC columns
	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	cred := &repository.Credentials{
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		MigrationsDirPath: cfg.MigrationsDir,
	}
	repo, err := repository.NewRepository(cred)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer repo.Close()

	if err := repo.RunMigrations(cred); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	orderCache := cache.NewRedisCache(redisClient)

	publisher := events.NewKafkaPublisher(cfg.KafkaTopic, cfg.KafkaBrokers...)
	defer publisher.Close()

	stripe := payment.NewStripeProvider(payment.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		Timeout:       cfg.ProviderTimeout,
	})
	paypal := payment.NewPayPalProvider(payment.PayPalConfig{
		ClientID:     cfg.PayPalClientID,
		ClientSecret: cfg.PayPalClientSecret,
		BaseURL:      cfg.PayPalBaseURL,
		FrontendURL:  cfg.FrontendURL,
		Timeout:      cfg.ProviderTimeout,
	})

	svc := service.NewOrderService(
		repo,
		[]payment.Provider{stripe, paypal},
		orderCache,
		publisher,
		cfg.Currency,
		cfg.ProviderTimeout,
		logger,
	)

	router := api.NewRouter(
		api.RouterConfig{JWTSecret: cfg.JWTSecret, RequestTimeout: cfg.RequestTimeout},
		api.NewOrderHandler(svc, logger),
		api.NewPaymentHandler(svc, cfg.StripePublishableKey, cfg.PayPalClientID, logger),
		api.NewWebhookHandler(svc, stripe, logger),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}
	logger.Info().Msg("server exited")
}
