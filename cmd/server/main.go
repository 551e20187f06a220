/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the booking engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and load configuration
  2. Initialize SQLite store
  3. Wire domain services (inventory, wallet ledger, bookings, payments)
  4. Start the wallet expiry sweeper
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Path to YAML config (optional; env vars and defaults apply)
  -port    HTTP server port override
  -db      SQLite database path override
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the expiry sweeper
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/booking.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - config/config.go: Configuration loading
  - store/sqlite/sqlite.go: Database implementation
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

	"github.com/skyfare/booking-engine/api"
	"github.com/skyfare/booking-engine/booking"
	"github.com/skyfare/booking-engine/config"
	"github.com/skyfare/booking-engine/events"
	"github.com/skyfare/booking-engine/inventory"
	"github.com/skyfare/booking-engine/payment"
	"github.com/skyfare/booking-engine/store/sqlite"
	"github.com/skyfare/booking-engine/wallet"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "Path to YAML config file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}
	if *dbPath != "" {
		cfg.DB.Path = *dbPath
	}

	// Initialize store
	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Wire domain services
	bus := events.NewBus()
	api.RegisterEventMetrics(bus)
	bus.Subscribe(logNotifier)

	inv := inventory.NewService(store, inventory.FareConfig{
		ChildFarePct:  cfg.Fares.ChildPct,
		InfantFarePct: cfg.Fares.InfantPct,
		TaxRatePct:    cfg.Fares.TaxPct,
	})
	wallets := wallet.NewService(store, bus)
	bookings := booking.NewService(store, inv)
	gateway := payment.NewHMACGateway(cfg.Gateway.Secret, cfg.Gateway.Currency)
	orchestrator := payment.NewOrchestrator(bookings, store, inv, wallets, gateway, bus)
	reconciler := wallet.NewReconciler(store, wallets)
	drafts := api.NewDraftStore(time.Duration(cfg.Drafts.TTLMinutes) * time.Minute)

	// Initialize handler and router
	handler := api.NewHandler(store, inv, wallets, bookings, orchestrator, reconciler, drafts)
	router := api.NewRouter(handler)

	// Start the wallet expiry sweeper
	sweeper := api.NewExpirySweeper(reconciler)
	sweeper.CheckInterval = time.Duration(cfg.Sweep.IntervalMinutes) * time.Minute
	sweeper.Enabled = cfg.Sweep.Enabled
	sweeper.Start()
	defer sweeper.Stop()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", cfg.HTTP.Port)
		log.Printf("📊 API available at http://localhost:%d/api", cfg.HTTP.Port)
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

// logNotifier stands in for outbound notifications (email, SMS). Swap the
// subscriber at wiring time to attach a real sender.
func logNotifier(event any) {
	switch e := event.(type) {
	case events.BookingConfirmed:
		log.Printf("[Notify] Booking %s confirmed for user %s (%d seats, total %s)",
			e.Reference, e.UserID, e.Seats, e.Total)
	case events.BookingCancelled:
		log.Printf("[Notify] Booking %s cancelled for user %s (refunded: %t)",
			e.Reference, e.UserID, e.Refunded)
	case events.WalletRecharged:
		log.Printf("[Notify] Wallet %s recharged with %s", e.WalletID, e.Amount)
	case events.WalletExpired:
		log.Printf("[Notify] Wallet %s expired, clawed back %s", e.WalletID, e.Clawback)
	}
}
