package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/therealutkarshpriyadarshi/vafile/internal/marks"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 30*time.Second {
		t.Errorf("Expected request timeout 30s, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.EnableTLS {
		t.Error("Expected TLS disabled by default")
	}

	if cfg.VAFile.DefaultDimensions != 768 {
		t.Errorf("Expected DefaultDimensions=768, got %d", cfg.VAFile.DefaultDimensions)
	}
	if cfg.VAFile.DefaultStrategy != "equidistant" {
		t.Errorf("Expected equidistant default strategy, got %s", cfg.VAFile.DefaultStrategy)
	}

	if cfg.Scan.DefaultK != 10 {
		t.Errorf("Expected DefaultK=10, got %d", cfg.Scan.DefaultK)
	}
	if cfg.Scan.MaxK != 1000 {
		t.Errorf("Expected MaxK=1000, got %d", cfg.Scan.MaxK)
	}

	if cfg.Database.DataDir != "./data" {
		t.Errorf("Expected data dir ./data, got %s", cfg.Database.DataDir)
	}
	if cfg.Database.MaxRelations != 100 {
		t.Errorf("Expected max relations 100, got %d", cfg.Database.MaxRelations)
	}
}

func TestLoadFromEnv(t *testing.T) {
	envVars := []string{
		"VAFILE_HOST", "VAFILE_PORT", "VAFILE_MAX_CONNECTIONS",
		"VAFILE_REQUEST_TIMEOUT", "VAFILE_ENABLE_TLS",
		"VAFILE_DIMENSIONS", "VAFILE_STRATEGY",
		"VAFILE_DEFAULT_K", "VAFILE_MAX_K",
		"VAFILE_DATA_DIR", "VAFILE_SYNC_WRITES",
	}
	original := make(map[string]string)
	for _, key := range envVars {
		original[key] = os.Getenv(key)
	}
	defer func() {
		for key, value := range original {
			if value == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, value)
			}
		}
	}()

	os.Setenv("VAFILE_HOST", "127.0.0.1")
	os.Setenv("VAFILE_PORT", "9090")
	os.Setenv("VAFILE_DIMENSIONS", "128")
	os.Setenv("VAFILE_STRATEGY", "equifrequent")
	os.Setenv("VAFILE_DEFAULT_K", "20")
	os.Setenv("VAFILE_MAX_K", "2000")
	os.Setenv("VAFILE_DATA_DIR", "/var/lib/vafile")
	os.Setenv("VAFILE_SYNC_WRITES", "true")

	cfg := LoadFromEnv()

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Expected host 127.0.0.1, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.VAFile.DefaultDimensions != 128 {
		t.Errorf("Expected dimensions 128, got %d", cfg.VAFile.DefaultDimensions)
	}
	if cfg.VAFile.DefaultStrategy != "equifrequent" {
		t.Errorf("Expected equifrequent, got %s", cfg.VAFile.DefaultStrategy)
	}
	if cfg.Scan.DefaultK != 20 {
		t.Errorf("Expected DefaultK 20, got %d", cfg.Scan.DefaultK)
	}
	if cfg.Scan.MaxK != 2000 {
		t.Errorf("Expected MaxK 2000, got %d", cfg.Scan.MaxK)
	}
	if cfg.Database.DataDir != "/var/lib/vafile" {
		t.Errorf("Expected data dir /var/lib/vafile, got %s", cfg.Database.DataDir)
	}
	if !cfg.Database.SyncWrites {
		t.Error("Expected sync writes enabled")
	}
}

func TestLoadFromEnv_InvalidPortKeepsDefault(t *testing.T) {
	original := os.Getenv("VAFILE_PORT")
	defer func() {
		if original == "" {
			os.Unsetenv("VAFILE_PORT")
		} else {
			os.Setenv("VAFILE_PORT", original)
		}
	}()

	os.Setenv("VAFILE_PORT", "not-a-number")
	cfg := LoadFromEnv()
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080 for invalid value, got %d", cfg.Server.Port)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := `
server:
  host: 10.0.0.1
  port: 7000
vafile:
  default_dimensions: 256
  default_strategy: equifrequent
scan:
  default_k: 25
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Server.Host != "10.0.0.1" {
		t.Errorf("expected host 10.0.0.1, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("expected port 7000, got %d", cfg.Server.Port)
	}
	if cfg.VAFile.DefaultDimensions != 256 {
		t.Errorf("expected dimensions 256, got %d", cfg.VAFile.DefaultDimensions)
	}
	if cfg.Scan.DefaultK != 25 {
		t.Errorf("expected default k 25, got %d", cfg.Scan.DefaultK)
	}
	// Values not present in the file should retain their Default().
	if cfg.Database.DataDir != "./data" {
		t.Errorf("expected unconfigured field to keep its default, got %s", cfg.Database.DataDir)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{name: "valid default", config: Default(), wantErr: false},
		{
			name: "invalid port (too low)",
			config: &Config{
				Server: ServerConfig{Port: 0},
			},
			wantErr: true,
		},
		{
			name: "invalid port (too high)",
			config: &Config{
				Server: ServerConfig{Port: 70000},
			},
			wantErr: true,
		},
		{
			name: "invalid strategy",
			config: &Config{
				Server:   ServerConfig{Port: 8080, MaxConnections: 1},
				VAFile:   VAFileConfig{DefaultDimensions: 10, DefaultStrategy: "bogus"},
				Scan:     ScanConfig{DefaultK: 1, MaxK: 1},
				Database: DatabaseConfig{DataDir: "./data"},
			},
			wantErr: true,
		},
		{
			name: "max k below default k",
			config: &Config{
				Server:   ServerConfig{Port: 8080, MaxConnections: 1},
				VAFile:   VAFileConfig{DefaultDimensions: 10, DefaultStrategy: "equidistant"},
				Scan:     ScanConfig{DefaultK: 50, MaxK: 10},
				Database: DatabaseConfig{DataDir: "./data"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_AuthRequiresSecret(t *testing.T) {
	cfg := Default()
	cfg.Auth.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error when auth is enabled without a JWT secret")
	}
	cfg.Auth.JWTSecret = "super-secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error once a JWT secret is set: %v", err)
	}
}

func TestServerConfigAddress(t *testing.T) {
	cfg := ServerConfig{Host: "localhost", Port: 8080}
	if addr := cfg.Address(); addr != "localhost:8080" {
		t.Errorf("expected localhost:8080, got %s", addr)
	}
}

func TestVAFileConfigStrategy(t *testing.T) {
	cfg := VAFileConfig{DefaultStrategy: "equifrequent"}
	if cfg.Strategy() != marks.EquiFrequent {
		t.Errorf("expected EquiFrequent, got %v", cfg.Strategy())
	}
	cfg.DefaultStrategy = "equidistant"
	if cfg.Strategy() != marks.EquiDistant {
		t.Errorf("expected EquiDistant, got %v", cfg.Strategy())
	}
}
