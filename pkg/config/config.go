package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/therealutkarshpriyadarshi/vafile/internal/marks"
)

// Config holds all server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	VAFile    VAFileConfig    `yaml:"vafile"`
	Scan      ScanConfig      `yaml:"scan"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
}

// AuthConfig holds JWT authentication settings for the REST layer, mirroring
// the teacher's own auth knobs (see pkg/api/rest/middleware.AuthConfig).
type AuthConfig struct {
	Enabled     bool     `yaml:"enabled"`
	JWTSecret   string   `yaml:"jwt_secret"`
	PublicPaths []string `yaml:"public_paths"`
	AdminPaths  []string `yaml:"admin_paths"`
}

// RateLimitConfig holds token-bucket rate-limiting settings for the REST
// layer (see pkg/api/rest/middleware.RateLimitConfig).
type RateLimitConfig struct {
	Enabled        bool    `yaml:"enabled"`
	RequestsPerSec float64 `yaml:"requests_per_sec"`
	Burst          int     `yaml:"burst"`
	PerIP          bool    `yaml:"per_ip"`
}

// CORSConfig holds cross-origin settings for the REST layer.
type CORSConfig struct {
	Enabled bool     `yaml:"enabled"`
	Origins []string `yaml:"origins"`
}

// ServerConfig holds REST server configuration.
type ServerConfig struct {
	Host            string        `yaml:"host"`             // Server host (default: "0.0.0.0")
	Port            int           `yaml:"port"`              // Server port (default: 8080)
	MaxConnections  int           `yaml:"max_connections"`   // Max concurrent connections
	RequestTimeout  time.Duration `yaml:"request_timeout"`   // Request timeout
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`  // Graceful shutdown timeout
	EnableTLS       bool          `yaml:"enable_tls"`        // Enable TLS
	CertFile        string        `yaml:"cert_file"`         // TLS certificate file
	KeyFile         string        `yaml:"key_file"`          // TLS key file
}

// VAFileConfig holds defaults a newly created relation inherits absent an
// explicit override in the create-relation request.
type VAFileConfig struct {
	DefaultDimensions int    `yaml:"default_dimensions"` // Vector dimensions, when a relation doesn't specify one
	DefaultStrategy   string `yaml:"default_strategy"`   // "equidistant" or "equifrequent"
	MinSamples        int    `yaml:"min_samples"`        // Reported copy of marks.MinSamples; marks.Build always applies its own constant
	EnableScan        bool   `yaml:"enable_scan"`        // enable_vascan: false takes every relation's index out of consideration for Search
}

// ScanConfig holds the limits a scan is bounded by absent an explicit
// request-level override.
type ScanConfig struct {
	DefaultK         int     `yaml:"default_k"`      // Candidate count used when a search omits k
	MaxK             int     `yaml:"max_k"`          // Hard ceiling on k, regardless of request
	StaleAbsolute    uint32  `yaml:"stale_absolute"` // Reported only; internal/vafile flags staleness with its own StaleAbsolute constant
	StaleFraction    float64 `yaml:"stale_fraction"` // Reported only; internal/vafile flags staleness with its own StaleFraction constant
}

// DatabaseConfig holds storage configuration.
type DatabaseConfig struct {
	DataDir       string `yaml:"data_dir"`      // Data directory path
	SyncWrites    bool   `yaml:"sync_writes"`   // Reported only; the engine keeps relations in memory and writes nothing to disk
	MaxRelations  int    `yaml:"max_relations"` // Reported only; CreateRelation does not cap the relations in a namespace
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			MaxConnections:  1000,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			EnableTLS:       false,
		},
		VAFile: VAFileConfig{
			DefaultDimensions: 768,
			DefaultStrategy:   "equidistant",
			MinSamples:        marks.MinSamples,
			EnableScan:        true,
		},
		Scan: ScanConfig{
			DefaultK:      10,
			MaxK:          1000,
			StaleAbsolute: marks.SamplingFrequency / 10,
			StaleFraction: 0.2,
		},
		Database: DatabaseConfig{
			DataDir:      "./data",
			SyncWrites:   false,
			MaxRelations: 100,
		},
		Auth: AuthConfig{
			Enabled:     false,
			PublicPaths: []string{"/v1/health", "/docs"},
		},
		RateLimit: RateLimitConfig{
			Enabled:        false,
			RequestsPerSec: 100,
			Burst:          200,
			PerIP:          true,
		},
		CORS: CORSConfig{
			Enabled: true,
			Origins: []string{"*"},
		},
	}
}

// LoadFromFile reads a YAML configuration file and layers it over Default().
// Unset fields in the file keep their default value: the decoder is handed a
// Config that already carries Default()'s values, so only fields present in
// the file are overwritten.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	cfg := Default()

	// Server configuration
	if host := os.Getenv("VAFILE_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("VAFILE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if maxConn := os.Getenv("VAFILE_MAX_CONNECTIONS"); maxConn != "" {
		if mc, err := strconv.Atoi(maxConn); err == nil {
			cfg.Server.MaxConnections = mc
		}
	}
	if timeout := os.Getenv("VAFILE_REQUEST_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			cfg.Server.RequestTimeout = t
		}
	}
	if enableTLS := os.Getenv("VAFILE_ENABLE_TLS"); enableTLS == "true" {
		cfg.Server.EnableTLS = true
		cfg.Server.CertFile = os.Getenv("VAFILE_TLS_CERT")
		cfg.Server.KeyFile = os.Getenv("VAFILE_TLS_KEY")
	}

	// VA-File configuration
	if dims := os.Getenv("VAFILE_DIMENSIONS"); dims != "" {
		if d, err := strconv.Atoi(dims); err == nil {
			cfg.VAFile.DefaultDimensions = d
		}
	}
	if strategy := os.Getenv("VAFILE_STRATEGY"); strategy != "" {
		cfg.VAFile.DefaultStrategy = strategy
	}
	if enableScan := os.Getenv("VAFILE_ENABLE_SCAN"); enableScan != "" {
		cfg.VAFile.EnableScan = enableScan == "true"
	}

	// Scan configuration
	if k := os.Getenv("VAFILE_DEFAULT_K"); k != "" {
		if kVal, err := strconv.Atoi(k); err == nil {
			cfg.Scan.DefaultK = kVal
		}
	}
	if maxK := os.Getenv("VAFILE_MAX_K"); maxK != "" {
		if mk, err := strconv.Atoi(maxK); err == nil {
			cfg.Scan.MaxK = mk
		}
	}

	// Database configuration
	if dataDir := os.Getenv("VAFILE_DATA_DIR"); dataDir != "" {
		cfg.Database.DataDir = dataDir
	}
	if sync := os.Getenv("VAFILE_SYNC_WRITES"); sync == "true" {
		cfg.Database.SyncWrites = true
	}

	// Auth configuration
	if auth := os.Getenv("VAFILE_AUTH_ENABLED"); auth == "true" {
		cfg.Auth.Enabled = true
		cfg.Auth.JWTSecret = os.Getenv("VAFILE_JWT_SECRET")
	}

	// Rate-limit configuration
	if rl := os.Getenv("VAFILE_RATE_LIMIT_ENABLED"); rl == "true" {
		cfg.RateLimit.Enabled = true
	}

	return cfg
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.MaxConnections < 1 {
		return fmt.Errorf("invalid max connections: %d (must be > 0)", c.Server.MaxConnections)
	}
	if c.Server.EnableTLS {
		if c.Server.CertFile == "" || c.Server.KeyFile == "" {
			return fmt.Errorf("TLS enabled but cert or key file not specified")
		}
	}

	if c.VAFile.DefaultDimensions < 1 {
		return fmt.Errorf("invalid default dimensions: %d (must be > 0)", c.VAFile.DefaultDimensions)
	}
	if s := c.VAFile.DefaultStrategy; s != "equidistant" && s != "equifrequent" {
		return fmt.Errorf("invalid default marks strategy: %q", s)
	}

	if c.Scan.DefaultK < 1 {
		return fmt.Errorf("invalid default k: %d (must be > 0)", c.Scan.DefaultK)
	}
	if c.Scan.MaxK < c.Scan.DefaultK {
		return fmt.Errorf("max k (%d) must be >= default k (%d)", c.Scan.MaxK, c.Scan.DefaultK)
	}

	if c.Database.DataDir == "" {
		return fmt.Errorf("data directory not specified")
	}

	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth enabled but jwt secret not specified")
	}

	return nil
}

// Address returns the server address (host:port).
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Strategy parses VAFile.DefaultStrategy into the marks package's enum.
func (c *VAFileConfig) Strategy() marks.Strategy {
	if c.DefaultStrategy == "equifrequent" {
		return marks.EquiFrequent
	}
	return marks.EquiDistant
}
