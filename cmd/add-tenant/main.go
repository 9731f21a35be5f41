package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"blogview/internal/config"
	"blogview/internal/tenant"
)

func main() {
	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelWarn,
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

	store := tenant.NewPGStore(db, logger)
	reader := bufio.NewScanner(os.Stdin)
	ctx := context.Background()

	fmt.Println("Creating a new tenant")

	t := &tenant.Tenant{}
	t.Title = prompt(reader, "Site title:")
	t.Description = prompt(reader, "Description (optional):")
	t.Language = prompt(reader, "Language code (default en):")
	t.PrimaryDomain = prompt(reader, "Primary domain (e.g. blog.example.com):")

	if t.PrimaryDomain != "" {
		_, err := store.ByPrimaryDomain(ctx, t.PrimaryDomain)
		if err == nil {
			fmt.Println("A tenant already uses this primary domain. Exiting.")
			return
		}
		if !errors.Is(err, tenant.ErrNotFound) {
			fmt.Println("Failed to check the primary domain:", err)
			return
		}
	}

	aliases := prompt(reader, "Domain aliases, comma separated (optional):")
	for _, a := range strings.Split(aliases, ",") {
		if a = strings.TrimSpace(a); a != "" {
			t.DomainAliases = append(t.DomainAliases, a)
		}
	}

	t.BasePath = prompt(reader, "Base path (default /):")

	mode := prompt(reader, "Deployment mode, standalone or reverse_proxy (default standalone):")
	t.DeploymentMode = tenant.DeploymentMode(mode)
	if t.DeploymentMode == tenant.ModeReverseProxy {
		t.ProxyVisitorHostname = prompt(reader, "Visitor hostname the proxy forwards (e.g. www.example.com):")
	}

	format := prompt(reader, "Post URL format, with-prefix or root (default with-prefix):")
	t.PostURLFormat = tenant.PostURLFormat(format)

	if err := store.Create(ctx, t); err != nil {
		fmt.Println("Failed to create tenant:", err)
		return
	}

	fmt.Println("Tenant created successfully")
	fmt.Println("ID:", t.ID)
	fmt.Println("Hosts:", strings.Join(t.Hosts(), ", "))
}

func prompt(reader *bufio.Scanner, label string) string {
	fmt.Println(label)
	reader.Scan()
	return strings.TrimSpace(reader.Text())
}
