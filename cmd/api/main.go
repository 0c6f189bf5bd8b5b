package main

import (
	"bufio"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventra/eventra/internal/app"
	"github.com/eventra/eventra/internal/auth"
	"github.com/eventra/eventra/internal/cache"
	"github.com/eventra/eventra/internal/clock"
	"github.com/eventra/eventra/internal/config"
	"github.com/eventra/eventra/internal/messaging"
	"github.com/eventra/eventra/internal/payments"
	"github.com/eventra/eventra/internal/storage/postgres"
	transporthttp "github.com/eventra/eventra/internal/transport/http"
	"github.com/eventra/eventra/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := log.Default()
	loadEnvFile(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	clk := clock.NewSystem()
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL, clk)

	eventRepo := postgres.NewEventRepository(pool)
	ticketRepo := postgres.NewTicketRepository(pool)
	userRepo := postgres.NewUserRepository(pool)

	bookingOpts := []app.BookingServiceOption{app.WithBookingLogger(logger)}
	if cfg.AMQPURL != "" {
		pub, err := messaging.NewPublisher(cfg.AMQPURL, cfg.TicketQueue)
		if err != nil {
			log.Fatalf("connect to broker: %v", err)
		}
		defer pub.Close()
		bookingOpts = append(bookingOpts, app.WithPublisher(pub))
	} else {
		logger.Printf("WARN: AMQP_URL not set, ticket messages disabled")
	}

	bookingSvc := app.NewBookingService(ticketRepo, eventRepo, clk, bookingOpts...)
	eventSvc := app.NewEventService(eventRepo, clk)
	userSvc := app.NewUserService(userRepo, tokens, clk)

	services := transporthttp.Services{
		Users:    userSvc,
		Events:   eventSvc,
		Bookings: bookingSvc,
	}

	if cfg.PaymentsEnabled() {
		provider := payments.NewStripeProvider(cfg.StripeAPIKey, cfg.StripeWebhookSecret)
		paymentOpts := []app.PaymentServiceOption{
			app.WithCurrency(cfg.Currency),
			app.WithPaymentLogger(logger),
		}
		if cfg.RedisAddr != "" {
			deliveryLog, err := cache.NewDeliveryLog(cfg.RedisAddr, cfg.WebhookDedupTTL)
			if err != nil {
				log.Fatalf("connect to redis: %v", err)
			}
			defer deliveryLog.Close()
			paymentOpts = append(paymentOpts, app.WithDeliveryLog(deliveryLog))
		} else {
			logger.Printf("WARN: REDIS_ADDR not set, webhook dedup disabled")
		}
		services.Payments = app.NewPaymentService(provider, bookingSvc, eventRepo, paymentOpts...)
	} else {
		logger.Printf("WARN: STRIPE_SECRET_KEY not set, payment routes disabled")
	}

	handler := transporthttp.NewHandler(services, tokens, cfg.CORSOrigins, logger)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	log.Printf("api listening on :%s", cfg.Port)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	log.Printf("server stopped")
}

// loadEnvFile loads a .env from the working directory or a parent, without
// overriding variables already set in the environment.
func loadEnvFile(logger *log.Logger) {
	path := findEnvFile()
	if path == "" {
		return
	}

	file, err := os.Open(path)
	if err != nil {
		logger.Printf("WARN: failed to open %s: %v", path, err)
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = trimQuotes(strings.TrimSpace(value))
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			logger.Printf("WARN: failed to set %s from env file", key)
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Printf("WARN: failed to read %s: %v", path, err)
		return
	}
	logger.Printf("loaded env from %s", path)
}

func findEnvFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for range 6 {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func trimQuotes(value string) string {
	if len(value) < 2 {
		return value
	}
	if (value[0] == '"' && value[len(value)-1] == '"') ||
		(value[0] == '\'' && value[len(value)-1] == '\'') {
		return value[1 : len(value)-1]
	}
	return value
}
