package main

import (
	"context"
	"log"
	"os"
	"time"

	"netpanel/internal/database"
	"netpanel/internal/repository"
)

// One-shot refresh-token sweep for cron/ops use. The API runs the same sweep
// on a timer; this exists for manual runs and scheduled jobs.
func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := repository.NewRefreshTokenRepository(db).DeleteStale(ctx, 24*time.Hour)
	if err != nil {
		log.Fatalf("cleanup refresh_tokens failed: %v", err)
	}

	log.Printf("auth cleanup completed: refresh_tokens=%d", removed)
}
