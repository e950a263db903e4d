package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/xelth-com/geoattend/internal/admin"
	"github.com/xelth-com/geoattend/internal/config"
	"github.com/xelth-com/geoattend/internal/database"
	"github.com/xelth-com/geoattend/internal/geofence"
	"github.com/xelth-com/geoattend/internal/models"
	"github.com/xelth-com/geoattend/internal/store"
	"github.com/xelth-com/geoattend/internal/utils"
)

type demoUser struct {
	name  string
	email string
	role  string
}

var demoUsers = []demoUser{
	{"Admin", "admin@geoattend.test", models.RoleAdmin},
	{"Mei Ling Tan", "manager@geoattend.test", models.RoleManager},
	{"Arjun Kumar", "arjun@geoattend.test", models.RoleWorker},
	{"Siti Rahman", "siti@geoattend.test", models.RoleWorker},
	{"Wei Jie Lim", "weijie@geoattend.test", models.RoleWorker},
	{"Daniel Ong", "daniel@geoattend.test", models.RoleWorker},
}

// Demo worksites around Singapore, boundaries as [lng, lat]
var demoWorksites = []geofence.Worksite{
	{Name: "Jurong Shipyard", Boundary: []geofence.Coordinate{
		{Lng: 103.7005, Lat: 1.2990}, {Lng: 103.7105, Lat: 1.2990}, {Lng: 103.7105, Lat: 1.3075}, {Lng: 103.7005, Lat: 1.3075},
	}},
	{Name: "Changi Airfreight Centre", Boundary: []geofence.Coordinate{
		{Lng: 103.9780, Lat: 1.3690}, {Lng: 103.9890, Lat: 1.3690}, {Lng: 103.9890, Lat: 1.3780}, {Lng: 103.9780, Lat: 1.3780},
	}},
	{Name: "Tuas Mega Port", Boundary: []geofence.Coordinate{
		{Lng: 103.6180, Lat: 1.2350}, {Lng: 103.6400, Lat: 1.2350}, {Lng: 103.6400, Lat: 1.2560}, {Lng: 103.6260, Lat: 1.2600}, {Lng: 103.6180, Lat: 1.2500},
	}},
	{Name: "Marina Bay Site Office", Boundary: []geofence.Coordinate{
		{Lng: 103.8580, Lat: 1.2790}, {Lng: 103.8640, Lat: 1.2790}, {Lng: 103.8640, Lat: 1.2840}, {Lng: 103.8580, Lat: 1.2840},
	}},
}

func main() {
	password := flag.String("password", "geoattend", "password given to every demo account")
	days := flag.Int("days", 30, "days of generated check-ins")
	seed := flag.Int64("seed", 42, "random seed for generated check-ins")
	flag.Parse()

	fmt.Println("🌱 GeoAttend Demo Data Seeder")
	fmt.Println(strings.Repeat("=", 60))

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	fmt.Println("✅ Connected to database")
	fmt.Println()

	// Run migrations first
	fmt.Println("🔨 Running database migrations...")
	if err := store.Migrate(db.DB); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	fmt.Println("✅ Migrations complete")
	fmt.Println()

	ctx := context.Background()
	feed := store.NewFeed()
	users := store.NewUserRepository(db.DB)
	worksites := store.NewWorksiteRepository(db.DB, feed)
	records := store.NewAttendanceRepository(db.DB, feed, store.Options{Location: cfg.Location})

	// 1. Accounts
	fmt.Println("👤 Creating accounts...")
	hash, err := utils.HashPassword(*password)
	if err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}
	for _, du := range demoUsers {
		u := &models.User{Name: du.name, Email: du.email, Password: hash, Role: du.role}
		err := users.Create(ctx, u)
		switch {
		case errors.Is(err, store.ErrDuplicate):
			fmt.Printf("   ⏭️  %s already exists\n", du.email)
		case err != nil:
			log.Fatalf("❌ Failed to create %s: %v", du.email, err)
		default:
			fmt.Printf("   ✅ %s (%s)\n", du.email, du.role)
		}
	}
	fmt.Println()

	// 2. Worksites
	fmt.Println("🗺️  Creating worksites...")
	for _, site := range demoWorksites {
		_, err := worksites.Create(ctx, site.Name, site.Boundary)
		switch {
		case errors.Is(err, store.ErrDuplicate):
			fmt.Printf("   ⏭️  %s already exists\n", site.Name)
		case err != nil:
			log.Fatalf("❌ Failed to create %s: %v", site.Name, err)
		default:
			fmt.Printf("   ✅ %s\n", site.Name)
		}
	}
	fmt.Println()

	// 3. Attendance history
	fmt.Printf("🕒 Generating %d days of check-ins...\n", *days)
	start := time.Now()
	n, err := admin.NewService(users, records, worksites, cfg.Location).GenerateDummyCheckIns(ctx, *days, *seed)
	switch {
	case errors.Is(err, admin.ErrHasData):
		fmt.Println("   ⏭️  check_ins already has data, skipping")
	case err != nil:
		log.Fatalf("❌ Failed to generate check-ins: %v", err)
	default:
		fmt.Printf("   ✅ %d check-ins in %v\n", n, time.Since(start).Round(time.Millisecond))
	}

	fmt.Println()
	fmt.Println("🎉 Demo data ready. Sign in with any account above and password:", *password)
}
