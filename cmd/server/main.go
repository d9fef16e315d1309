package main

import (
	"context"
	"log"
	"os"

	"github.com/david/funding-crawler/internal/api"
	"github.com/david/funding-crawler/internal/crawl"
	"github.com/david/funding-crawler/internal/db"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	registry, err := crawl.LoadRegistry("internal/crawl/config/sources.yaml")
	if err != nil {
		log.Fatalf("Failed to load source registry: %v", err)
	}

	manager := crawl.NewManager(db.NewStore(pool), registry)
	srv := api.NewServer(manager)
	log.Printf("Server starting on port %s (%d sources configured)...", port, len(registry.Sources))
	if err := srv.Start(port); err != nil {
		log.Fatal(err)
	}
}
