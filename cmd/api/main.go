package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xelth-com/geoattend/internal/admin"
	"github.com/xelth-com/geoattend/internal/attendance"
	"github.com/xelth-com/geoattend/internal/config"
	"github.com/xelth-com/geoattend/internal/database"
	"github.com/xelth-com/geoattend/internal/events"
	"github.com/xelth-com/geoattend/internal/handlers"
	"github.com/xelth-com/geoattend/internal/identity"
	"github.com/xelth-com/geoattend/internal/media"
	"github.com/xelth-com/geoattend/internal/metrics"
	"github.com/xelth-com/geoattend/internal/realtime"
	"github.com/xelth-com/geoattend/internal/store"
)

type eventSink interface {
	attendance.Observer
	Close() error
}

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (Detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() is called manually in shutdown handler below

	// 3. Auto-Migrate Schema
	log.Println("🚀 Synchronizing database schema...")
	if err := store.Migrate(db.DB); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Schema synchronized successfully")

	// 4. Repositories and the change feed behind live subscriptions
	feed := store.NewFeed()
	if err := store.RegisterFeedHooks(db.DB, feed); err != nil {
		log.Fatalf("Failed to register change feed: %v", err)
	}
	opts := store.Options{Location: cfg.Location}
	records := store.NewAttendanceRepository(db.DB, feed, opts)
	worksites := store.NewWorksiteRepository(db.DB, feed)
	users := store.NewUserRepository(db.DB)

	// 5. Event stream
	var sink eventSink = events.LogPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		sink = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	}

	// 6. Attendance machines, one per active worker
	var machines *attendance.Registry
	m := metrics.New(func() int { return machines.Len() })
	machines = attendance.NewRegistry(func(workerID string) *attendance.Machine {
		return attendance.NewMachine(workerID, attendance.Config{
			Store:     records,
			Worksites: worksites,
			Observers: []attendance.Observer{m, sink},
			Location:  cfg.Location,
		})
	})

	storage, err := media.NewLocal(cfg.MediaDir, cfg.PublicURL)
	if err != nil {
		log.Fatalf("Failed to prepare media storage: %v", err)
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := realtime.NewHub(records, worksites, m)
	go hub.Run(hubCtx)

	// 7. Set up HTTP router
	router := handlers.NewRouter(handlers.Options{
		Identity:   identity.NewService(users, cfg.JWTSecret),
		Admin:      admin.NewService(users, records, worksites, cfg.Location),
		Users:      users,
		Records:    records,
		Worksites:  worksites,
		Machines:   machines,
		Hub:        hub,
		Media:      storage,
		Metrics:    m,
		Location:   cfg.Location,
		PublicURL:  cfg.PublicURL,
		Production: cfg.Production(),
	})

	// 8. Start server with graceful shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server (%s) starting on port %s [Zone: %s]\n", cfg.NodeEnv, cfg.Port, cfg.TimeZone)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	// Create context with timeout for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Drop websocket clients and their subscriptions, then the machines
	stopHub()
	machines.Close()

	if err := sink.Close(); err != nil {
		log.Printf("Event publisher close error: %v", err)
	}

	// Close database (this also stops embedded PostgreSQL)
	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
