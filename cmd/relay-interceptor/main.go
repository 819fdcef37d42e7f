// ABOUTME: Entry point for relay-interceptor, the broker push ingestion server
// ABOUTME: Receives event deliveries and routes them to conversation owners

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/convo-relay/internal/config"
	"github.com/2389/convo-relay/internal/interceptor"
	"github.com/2389/convo-relay/internal/logging"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _       _                           _
(_)_ __ | |_ ___ _ __ ___ ___ _ __ | |_ ___  _ __
| | '_ \| __/ _ \ '__/ __/ _ \ '_ \| __/ _ \| '__|
| | | | | ||  __/ | | (_|  __/ |_) | || (_) | |
|_|_| |_|\__\___|_|  \___\___| .__/ \__\___/|_|
                             |_|
`

// getConfigPath returns the path to the interceptor config file.
// Priority: RELAY_CONFIG env var > XDG_CONFIG_HOME/convo-relay/interceptor.yaml > ~/.config/convo-relay/interceptor.yaml
func getConfigPath() string {
	if envPath := os.Getenv("RELAY_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "interceptor.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "convo-relay", "interceptor.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: relay-interceptor <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the interceptor server")
		fmt.Println("  health   Check interceptor health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := logging.Setup(cfg.Logging)

	// Startup info
	green := color.New(color.FgGreen)

	green.Print("    ▶ ")
	fmt.Printf("Config: %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:   %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Redis:  %s\n", cfg.Redis.Addr())
	fmt.Println()

	logger.Info("starting relay-interceptor",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"redis_addr", cfg.Redis.Addr(),
	)

	// Create and run interceptor
	svc, err := interceptor.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating interceptor: %w", err)
	}

	return svc.Run(ctx)
}

func runHealth(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/status", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}
