/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the commission advance quote server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite run-history store
  3. Create API handler with engine configuration
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port              HTTP server port (default: 8080)
  -db                SQLite database path (default: commission.db)
                     Use ":memory:" for an in-memory database
  -as-of             Fixed evaluation date YYYY-MM-DD; empty means
                     "today UTC" per request (clients may still send an
                     as_of form field)
  -rate              Advance rate applied to eligible remaining value
  -cap               Per-agent advance cap
  -eligibility-days  Minimum policy age in days

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Frozen date for reproducible demos
  ./server -as-of=2025-07-06

  # In-memory run history
  ./server -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - engine/: The quote engine itself
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sms/commission-engine/api"
	"github.com/sms/commission-engine/engine"
	"github.com/sms/commission-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "commission.db", "SQLite database path")
	asOf := flag.String("as-of", "", "fixed evaluation date YYYY-MM-DD (empty: today UTC)")
	rate := flag.String("rate", engine.DefaultAdvanceRate.String(), "advance rate")
	maxAdvance := flag.String("cap", engine.DefaultMaxAdvance.String(), "per-agent advance cap")
	eligibilityDays := flag.Int("eligibility-days", engine.DefaultEligibilityWindowDays, "minimum policy age in days")
	flag.Parse()

	cfg, err := buildConfig(*asOf, *rate, *maxAdvance, *eligibilityDays)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler and router
	handler := api.NewHandler(store, cfg)
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Commission engine listening on http://localhost:%d", *port)
		log.Printf("POST /v1/advance-quote with carrier_remittance + crm_policies CSVs")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func buildConfig(asOf, rate, maxAdvance string, eligibilityDays int) (engine.Config, error) {
	cfg := engine.DefaultConfig()
	cfg.EligibilityWindowDays = eligibilityDays

	// Zero AsOf makes the handler evaluate each request against today.
	cfg.AsOf = engine.Date{}
	if asOf != "" {
		d, err := engine.ParseDate(asOf)
		if err != nil {
			return engine.Config{}, err
		}
		cfg.AsOf = d
	}

	r, err := decimal.NewFromString(rate)
	if err != nil || !r.IsPositive() {
		return engine.Config{}, fmt.Errorf("rate must be a positive decimal, got %q", rate)
	}
	cfg.AdvanceRate = r

	c, err := decimal.NewFromString(maxAdvance)
	if err != nil || !c.IsPositive() {
		return engine.Config{}, fmt.Errorf("cap must be a positive decimal, got %q", maxAdvance)
	}
	cfg.MaxAdvance = c

	return cfg, nil
}
