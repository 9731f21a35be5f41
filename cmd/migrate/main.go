// migrate applies the schema file to the configured database. The
// schema is written to be re-runnable, so running migrate twice is
// safe.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"blogview/internal/config"
)

func main() {
	schemaPath := "db/schema.sql"
	if len(os.Args) > 1 {
		schemaPath = os.Args[1]
	}

	sql, err := os.ReadFile(schemaPath)
	if err != nil {
		fmt.Println("Failed to read schema file:", err)
		return
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Load configuration
	cfg, err := config.LoadConfig(logger)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dbConfig := config.DBConfig{
		DatabaseURL:       cfg.Database.URL,
		Logger:            logger,
		MaxConns:          2,
		MinConns:          1,
		HealthCheckPeriod: time.Minute,
		ConnectTimeout:    5 * time.Second,
		MaxRetries:        3,
		RetryDelay:        time.Second,
	}
	db, err := config.NewPool(&dbConfig)
	if err != nil {
		fmt.Println("Failed to connect to database:", err)
		return
	}
	defer config.GracefulShutdown(db, 10*time.Second, logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := db.Exec(ctx, string(sql)); err != nil {
		fmt.Println("Failed to apply schema:", err)
		return
	}
	fmt.Println("Schema applied successfully.")
}
