package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/therealutkarshpriyadarshi/vafile/pkg/api/rest"
	"github.com/therealutkarshpriyadarshi/vafile/pkg/api/rest/middleware"
	"github.com/therealutkarshpriyadarshi/vafile/pkg/config"
	"github.com/therealutkarshpriyadarshi/vafile/pkg/engine"
	"github.com/therealutkarshpriyadarshi/vafile/pkg/observability"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version and exit")
		showHelp    = flag.Bool("help", false, "show help and exit")
		configFile  = flag.String("config", "", "path to configuration file (optional)")
		host        = flag.String("host", "", "server host (overrides config/env)")
		port        = flag.Int("port", 0, "server port (overrides config/env)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("VA-File Server v%s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	if *showHelp {
		showUsage()
		os.Exit(0)
	}

	printBanner()

	cfg := loadConfig(*configFile)

	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := observability.NewDefaultLogger()
	metrics := observability.NewMetrics()

	log.Println("Initializing VA-File server...")
	eng := engine.New(cfg, metrics, logger, version)

	restConfig := rest.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		CORSEnabled: cfg.CORS.Enabled,
		CORSOrigins: cfg.CORS.Origins,
		Auth: middleware.AuthConfig{
			Enabled:     cfg.Auth.Enabled,
			JWTSecret:   cfg.Auth.JWTSecret,
			PublicPaths: cfg.Auth.PublicPaths,
			AdminPaths:  cfg.Auth.AdminPaths,
		},
		RateLimit: middleware.RateLimitConfig{
			Enabled:        cfg.RateLimit.Enabled,
			RequestsPerSec: cfg.RateLimit.RequestsPerSec,
			Burst:          cfg.RateLimit.Burst,
			PerIP:          cfg.RateLimit.PerIP,
		},
	}

	server, err := rest.NewServer(restConfig, eng)
	if err != nil {
		log.Fatalf("Failed to create REST server: %v", err)
	}

	printStartupInfo(cfg)

	errChan := make(chan error, 1)
	go func() {
		log.Println("Starting REST API server...")
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("REST server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	log.Println("Server is ready. Press Ctrl+C to stop.")
	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
	case err := <-errChan:
		log.Printf("Server error: %v", err)
	}

	log.Println("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.Printf("Error stopping REST server: %v", err)
	}

	log.Println("Server stopped. Goodbye!")
}

func loadConfig(configFile string) *config.Config {
	if configFile != "" {
		cfg, err := config.LoadFromFile(configFile)
		if err != nil {
			log.Fatalf("Failed to load config file: %v", err)
		}
		return cfg
	}
	return config.LoadFromEnv()
}

func printBanner() {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║   __     ___       _____ _ _                              ║
║   \ \   / / \     |  ___(_) | ___                          ║
║    \ \ / / _ \    | |_  | | |/ _ \                          ║
║     \ V / ___ \   |  _| | | |  __/                         ║
║      \_/_/   \_\  |_|   |_|_|\___|                          ║
║                                                           ║
║   Vector-Approximation File similarity search engine      ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Println(banner)
	fmt.Printf("Version: %s (commit: %s)\n\n", version, commit)
}

func printStartupInfo(cfg *config.Config) {
	fmt.Println("\n╔════════════════════════════════════════════════════════╗")
	fmt.Println("║            Server Configuration                        ║")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Printf("║ Address:          %-35s ║\n", cfg.Server.Address())
	fmt.Printf("║ TLS Enabled:      %-35v ║\n", cfg.Server.EnableTLS)
	fmt.Printf("║ Max Connections:  %-35d ║\n", cfg.Server.MaxConnections)
	fmt.Printf("║ Auth Enabled:     %-35v ║\n", cfg.Auth.Enabled)
	fmt.Printf("║ CORS Enabled:     %-35v ║\n", cfg.CORS.Enabled)
	fmt.Printf("║ Rate Limiting:    %-35v ║\n", cfg.RateLimit.Enabled)
	if cfg.RateLimit.Enabled {
		fmt.Printf("║ Rate:             %-35s ║\n", fmt.Sprintf("%.1f req/s (burst: %d)", cfg.RateLimit.RequestsPerSec, cfg.RateLimit.Burst))
	}
	fmt.Printf("║ API Docs:         %-35s ║\n", fmt.Sprintf("http://%s/docs", cfg.Server.Address()))
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Println("║            VA-File Configuration                       ║")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Printf("║ Default Dimensions: %-33d ║\n", cfg.VAFile.DefaultDimensions)
	fmt.Printf("║ Default Strategy:   %-33s ║\n", cfg.VAFile.DefaultStrategy)
	fmt.Printf("║ Min Samples:        %-33d ║\n", cfg.VAFile.MinSamples)
	fmt.Printf("║ VA-Scan Enabled:    %-33v ║\n", cfg.VAFile.EnableScan)
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Println("║            Scan Configuration                          ║")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Printf("║ Default K:        %-35d ║\n", cfg.Scan.DefaultK)
	fmt.Printf("║ Max K:             %-34d ║\n", cfg.Scan.MaxK)
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Println("║            Database Configuration                      ║")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Printf("║ Data Dir:         %-35s ║\n", cfg.Database.DataDir)
	fmt.Printf("║ Sync Writes:      %-35v ║\n", cfg.Database.SyncWrites)
	fmt.Printf("║ Max Relations:    %-35d ║\n", cfg.Database.MaxRelations)
	fmt.Println("╚════════════════════════════════════════════════════════╝")
	fmt.Println()
}

func showUsage() {
	fmt.Println("VA-File Server - Vector-Approximation File similarity search")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  vafile-server [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -help             Show this help message")
	fmt.Println("  -version          Show version information")
	fmt.Println("  -config PATH      Path to configuration file (YAML)")
	fmt.Println("  -host HOST        Server host (default: 0.0.0.0)")
	fmt.Println("  -port PORT        Server port (default: 8080)")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  VAFILE_HOST                 Server host")
	fmt.Println("  VAFILE_PORT                 Server port")
	fmt.Println("  VAFILE_MAX_CONNECTIONS      Max concurrent connections")
	fmt.Println("  VAFILE_REQUEST_TIMEOUT      Request timeout (e.g., 30s)")
	fmt.Println("  VAFILE_ENABLE_TLS           Enable TLS (true/false)")
	fmt.Println("  VAFILE_TLS_CERT             TLS certificate file")
	fmt.Println("  VAFILE_TLS_KEY              TLS key file")
	fmt.Println("  VAFILE_DIMENSIONS           Default vector dimensions")
	fmt.Println("  VAFILE_STRATEGY             Default marks strategy")
	fmt.Println("  VAFILE_ENABLE_SCAN          Enable the VA-File index scan (true/false)")
	fmt.Println("  VAFILE_DEFAULT_K            Default search k")
	fmt.Println("  VAFILE_MAX_K                Max search k")
	fmt.Println("  VAFILE_DATA_DIR             Data directory path")
	fmt.Println("  VAFILE_SYNC_WRITES          Sync writes to disk (true/false)")
	fmt.Println("  VAFILE_AUTH_ENABLED         Enable JWT auth (true/false)")
	fmt.Println("  VAFILE_JWT_SECRET           JWT signing secret")
	fmt.Println("  VAFILE_RATE_LIMIT_ENABLED   Enable rate limiting (true/false)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # Start with default configuration")
	fmt.Println("  vafile-server")
	fmt.Println()
	fmt.Println("  # Start on custom port")
	fmt.Println("  vafile-server -port 9090")
	fmt.Println()
	fmt.Println("  # Start with environment variables")
	fmt.Println("  VAFILE_PORT=9090 VAFILE_DEFAULT_K=20 vafile-server")
	fmt.Println()
	fmt.Println("  # Start with config file")
	fmt.Println("  vafile-server -config config.yaml")
	fmt.Println()
}
