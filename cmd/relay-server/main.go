// Package main provides the Relay server executable with HTTP API and background retry sweeper.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coregx/relay"
	"github.com/coregx/relay/adapters/mock"
	"github.com/coregx/relay/adapters/relica"
	"github.com/coregx/relay/adapters/webhook"
	"github.com/coregx/relay/cmd/relay-server/internal/api"
	"github.com/coregx/relay/cmd/relay-server/internal/config"
	"github.com/coregx/relay/cmd/relay-server/internal/ratelimit"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SimpleLogger implements relay.Logger for standard logging.
type SimpleLogger struct{}

func (l *SimpleLogger) Debugf(format string, args ...interface{}) {
	log.Printf("[DEBUG] "+format, args...)
}
func (l *SimpleLogger) Infof(format string, args ...interface{}) {
	log.Printf("[INFO] "+format, args...)
}
func (l *SimpleLogger) Warnf(format string, args ...interface{}) {
	log.Printf("[WARN] "+format, args...)
}
func (l *SimpleLogger) Errorf(format string, args ...interface{}) {
	log.Printf("[ERROR] "+format, args...)
}
func (l *SimpleLogger) Info(message string) {
	log.Printf("[INFO] %s", message)
}

func main() {
	log.Println("🚀 Starting Relay Server v0.1.0...")

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("📝 Configuration loaded:")
	log.Printf("   Server: %s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("   Database: %s (%s:%d)", cfg.Database.Driver, cfg.Database.Host, cfg.Database.Port)
	log.Printf("   Gateway: %s", cfg.Relay.Gateway)
	log.Printf("   Sweeper batch size: %d", cfg.Relay.BatchSize)
	log.Printf("   Sweeper interval: %ds", cfg.Relay.SweepInterval)
	log.Printf("   Rate limit: %d req/min", cfg.Relay.RateLimitPerMinute)

	// Connect to database
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.GetDSN())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Printf("Failed to close database: %v", closeErr)
		}
	}()

	// Test connection
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("✅ Database connection established")

	// Create logger
	logger := &SimpleLogger{}

	// Create repositories using Relica adapters
	var repos *relica.Repositories
	if cfg.Database.Prefix != "" {
		repos = relica.NewRepositoriesWithPrefix(db, cfg.Database.Driver, cfg.Database.Prefix)
	} else {
		repos = relica.NewRepositories(db, cfg.Database.Driver)
	}
	log.Println("✅ Repositories initialized (Relica adapters)")

	// Create notification service
	var notificationService relay.NotificationService
	if cfg.Relay.EnableNotifications {
		notificationService = relay.NewLoggingNotificationService(logger)
	} else {
		notificationService = &relay.NoOpNotificationService{}
	}

	// Create delivery gateway
	var gateway relay.DeliveryGateway
	switch strings.ToLower(cfg.Relay.Gateway) {
	case "webhook":
		gateway = webhook.NewGateway(cfg.Relay.WebhookURL, time.Duration(cfg.Relay.DeliveryTimeout)*time.Second, logger)
	default:
		gateway = mock.NewGateway(cfg.Relay.MockFailureRate, logger)
	}
	log.Printf("✅ Delivery gateway created (%s)", cfg.Relay.Gateway)

	// Create DeliveryEngine
	engine, err := relay.NewDeliveryEngine(
		relay.WithEngineRepository(repos.RelayLog),
		relay.WithEngineGateway(gateway),
		relay.WithEngineNotifications(notificationService),
		relay.WithEngineLogger(logger),
		relay.WithEngineDeliveryTimeout(time.Duration(cfg.Relay.DeliveryTimeout)*time.Second),
	)
	if err != nil {
		log.Fatalf("Failed to create delivery engine: %v", err)
	}
	log.Println("✅ DeliveryEngine created")

	// Create Authenticator
	authenticator, err := relay.NewAuthenticator(repos.Client, logger)
	if err != nil {
		log.Fatalf("Failed to create authenticator: %v", err)
	}

	// Create rate limiter for the publish endpoint
	limiter := ratelimit.NewLimiter(cfg.Relay.RateLimitPerMinute, time.Minute)

	// Create Publisher service
	publisher, err := relay.NewPublisher(
		relay.WithPublisherRepository(repos.RelayLog),
		relay.WithPublisherAuthenticator(authenticator),
		relay.WithPublisherEngine(engine),
		relay.WithPublisherAdmission(limiter),
		relay.WithPublisherLogger(logger),
	)
	if err != nil {
		log.Fatalf("Failed to create publisher: %v", err)
	}
	log.Println("✅ Publisher service created")

	// Create ClientManager service
	clientManager, err := relay.NewClientManager(
		relay.WithClientManagerRepository(repos.Client),
		relay.WithClientManagerNotifications(notificationService),
		relay.WithClientManagerLogger(logger),
	)
	if err != nil {
		log.Fatalf("Failed to create client manager: %v", err)
	}

	// Create Sweeper
	sweeper, err := relay.NewSweeper(
		relay.WithSweeperRepository(repos.RelayLog),
		relay.WithSweeperEngine(engine),
		relay.WithSweeperLogger(logger),
		relay.WithSweeperBatchSize(cfg.Relay.BatchSize),
	)
	if err != nil {
		log.Fatalf("Failed to create sweeper: %v", err)
	}
	log.Println("✅ Sweeper created")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optionally seed a demo client for local testing
	if cfg.Relay.SeedDemoClient {
		client, err := clientManager.RegisterClient(ctx, relay.RegisterClientRequest{Name: "demo-client"})
		if err != nil {
			log.Printf("Failed to seed demo client: %v", err)
		} else {
			log.Printf("🔑 Demo client created: id=%s, apiKey=%s", client.ID, client.APIKey)
		}
	}

	// Start sweeper in background
	go func() {
		log.Printf("🔄 Starting retry sweeper (interval: %ds)...", cfg.Relay.SweepInterval)
		sweeper.Run(ctx, time.Duration(cfg.Relay.SweepInterval)*time.Second)
	}()

	// Prune stale rate limit windows in background
	go limiter.Run(ctx.Done())

	// Create API handler
	handler := api.NewHandler(publisher, logger)

	// Setup HTTP routes
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/relay/publish", handler.HandlePublish)
	mux.HandleFunc("/api/v1/relay/logs/", handler.HandleGetLog) // Note trailing slash for :id
	mux.HandleFunc("/api/v1/health", handler.HandleHealth)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      loggingMiddleware(mux, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		log.Printf("🌐 HTTP server listening on %s", addr)
		log.Println("📡 API Endpoints:")
		log.Println("   POST /api/v1/relay/publish")
		log.Println("   GET  /api/v1/relay/logs/:id")
		log.Println("   GET  /api/v1/health")
		log.Println()
		log.Println("✅ Relay Server is ready!")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	cancel() // Stop sweeper
	log.Println("✅ Server stopped gracefully")
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(next http.Handler, logger relay.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger.Infof("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
		logger.Debugf("%s %s - %v", r.Method, r.URL.Path, time.Since(start))
	})
}
