package config

import (
	"os"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "DATABASE_URL", "postgres://localhost:5432/identity")
	setEnvWithCleanup(t, "JWT_SECRET", "external-secret")
	setEnvWithCleanup(t, "JWT_INTERNAL_KEY", "internal-secret")
	setEnvWithCleanup(t, "WALLET_SERVICE_URL", "http://localhost:3001")
	unsetEnvWithCleanup(t, "SERVER_PORT")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "3002" {
		t.Fatalf("expected default server port 3002, got %q", cfg.ServerPort)
	}
	if cfg.WalletServiceURL != "http://localhost:3001" {
		t.Fatalf("unexpected wallet service URL %q", cfg.WalletServiceURL)
	}
}

func TestLoadConfig_MissingValuesFail(t *testing.T) {
	tests := []struct {
		name    string
		missing string
	}{
		{name: "database url", missing: "DATABASE_URL"},
		{name: "external secret", missing: "JWT_SECRET"},
		{name: "internal secret", missing: "JWT_INTERNAL_KEY"},
		{name: "wallet service url", missing: "WALLET_SERVICE_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)

			setEnvWithCleanup(t, "DATABASE_URL", "postgres://localhost:5432/identity")
			setEnvWithCleanup(t, "JWT_SECRET", "external-secret")
			setEnvWithCleanup(t, "JWT_INTERNAL_KEY", "internal-secret")
			setEnvWithCleanup(t, "WALLET_SERVICE_URL", "http://localhost:3001")
			unsetEnvWithCleanup(t, tt.missing)

			_, err := LoadConfig(t.TempDir())
			if err == nil {
				t.Fatalf("expected an error when %s is missing", tt.missing)
			}
			if !strings.Contains(err.Error(), tt.missing) {
				t.Fatalf("error %q does not name %s", err, tt.missing)
			}
		})
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}
