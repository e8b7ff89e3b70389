package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validJWTSecret = "test-secret-key-at-least-32-chars!"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
database:
  path: "/tmp/test.db"
api:
  host: "127.0.0.1"
  port: 8081
grpc:
  enabled: false
mqtt:
  enabled: true
  broker:
    host: "broker.local"
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if cfg.APIAddr() != "127.0.0.1:8081" {
		t.Errorf("APIAddr() = %q, want %q", cfg.APIAddr(), "127.0.0.1:8081")
	}
	if cfg.GRPC.Enabled {
		t.Error("GRPC.Enabled = true, want false")
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT = %+v, want enabled with broker.local", cfg.MQTT)
	}
	// Unset values keep their defaults.
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port = %d, want default 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.API.MaxBodyBytes != 1<<20 {
		t.Errorf("API.MaxBodyBytes = %d, want %d", cfg.API.MaxBodyBytes, 1<<20)
	}
}

func TestLoad_NoFileUsesDefaultsAndEnv(t *testing.T) {
	t.Setenv("SENSORHUB_JWT_SECRET", validJWTSecret)
	t.Setenv("SENSORHUB_API_PORT", "9090")
	t.Setenv("SENSORHUB_INFLUXDB_ENABLED", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if cfg.Security.JWT.Secret != validJWTSecret {
		t.Error("JWT secret was not taken from the environment")
	}
	if cfg.Security.JWT.Issuer != "sensorhub" {
		t.Errorf("JWT.Issuer = %q, want sensorhub", cfg.Security.JWT.Issuer)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidEnvInteger(t *testing.T) {
	t.Setenv("SENSORHUB_JWT_SECRET", validJWTSecret)
	t.Setenv("SENSORHUB_GRPC_PORT", "not-a-port")

	_, err := Load("")
	if err == nil {
		t.Fatal("Load() expected error for bad SENSORHUB_GRPC_PORT")
	}
	if !strings.Contains(err.Error(), "SENSORHUB_GRPC_PORT") {
		t.Errorf("error %q does not name the variable", err)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
database:
  path: "/from/file.db"
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`)
	t.Setenv("SENSORHUB_DATABASE_PATH", "/from/env.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/from/env.db" {
		t.Errorf("Database.Path = %q, want /from/env.db", cfg.Database.Path)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Security.JWT.Secret = validJWTSecret
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "api.port",
		},
		{
			name:    "grpc port ignored when disabled",
			mutate:  func(c *Config) { c.GRPC.Enabled = false; c.GRPC.Port = 0 },
			wantErr: "",
		},
		{
			name:    "bad qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "influx enabled without org",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: "influxdb.org",
		},
		{
			name:    "empty jwt secret",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "" },
			wantErr: "security.jwt.secret is required",
		},
		{
			name:    "short jwt secret",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "sua_chave_secreta" },
			wantErr: "at least 32 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		if err := LoadEnvFile(filepath.Join(t.TempDir(), ".env")); err != nil {
			t.Errorf("LoadEnvFile() error = %v, want nil", err)
		}
	})

	t.Run("sets unset variables only", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		content := "SENSORHUB_TEST_FROM_FILE=file\nSENSORHUB_TEST_PRESET=file\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("write env file: %v", err)
		}
		t.Setenv("SENSORHUB_TEST_PRESET", "process")
		t.Setenv("SENSORHUB_TEST_FROM_FILE", "")
		os.Unsetenv("SENSORHUB_TEST_FROM_FILE")

		if err := LoadEnvFile(path); err != nil {
			t.Fatalf("LoadEnvFile() error = %v", err)
		}
		if got := os.Getenv("SENSORHUB_TEST_FROM_FILE"); got != "file" {
			t.Errorf("SENSORHUB_TEST_FROM_FILE = %q, want file", got)
		}
		if got := os.Getenv("SENSORHUB_TEST_PRESET"); got != "process" {
			t.Errorf("SENSORHUB_TEST_PRESET = %q, want process", got)
		}
	})
}

func TestTimeoutGetters(t *testing.T) {
	cfg := defaultConfig()
	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %vs, want 30s", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %vs, want 60s", got)
	}
	if got := cfg.GetTicketTTL().Seconds(); got != 60 {
		t.Errorf("GetTicketTTL() = %vs, want 60s", got)
	}
}
