package weather

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func writeTestKey(t *testing.T) string {
	t.Helper()

	// Validate only checks that the key file exists; the contents are
	// parsed later when a connection is built.
	path := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(path, []byte("placeholder"), 0o600); err != nil {
		t.Fatalf("failed to write key: %v", err)
	}
	return path
}

func TestFetchConfigValidate(t *testing.T) {
	keyPath := writeTestKey(t)

	tests := []struct {
		name    string
		mutate  func(*FetchConfig)
		wantErr string
	}{
		{
			name:   "valid key config",
			mutate: func(c *FetchConfig) {},
		},
		{
			name: "valid password config",
			mutate: func(c *FetchConfig) {
				c.AuthMethod = AuthMethodPassword
				c.Password = "secret"
			},
		},
		{
			name:    "missing host",
			mutate:  func(c *FetchConfig) { c.Host = "" },
			wantErr: "host is required",
		},
		{
			name:    "bad port",
			mutate:  func(c *FetchConfig) { c.Port = 70000 },
			wantErr: "invalid port",
		},
		{
			name:    "missing user",
			mutate:  func(c *FetchConfig) { c.User = "" },
			wantErr: "user is required",
		},
		{
			name: "password auth without password",
			mutate: func(c *FetchConfig) {
				c.AuthMethod = AuthMethodPassword
			},
			wantErr: "password is required",
		},
		{
			name: "key auth without key",
			mutate: func(c *FetchConfig) {
				c.PrivateKeyPath = ""
			},
			wantErr: "private key path is required",
		},
		{
			name: "missing key file",
			mutate: func(c *FetchConfig) {
				c.PrivateKeyPath = "/nonexistent/id_ed25519"
			},
			wantErr: "not found",
		},
		{
			name: "unsupported auth method",
			mutate: func(c *FetchConfig) {
				c.AuthMethod = "kerberos"
			},
			wantErr: "unsupported auth method",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *FetchConfig) { c.ConnectionTimeout = 0 },
			wantErr: "timeout must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultFetchConfig("data.example.org", "watt")
			cfg.PrivateKeyPath = keyPath
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected valid config, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestFetchConfigAddress(t *testing.T) {
	cfg := DefaultFetchConfig("data.example.org", "watt")
	if cfg.Address() != "data.example.org:22" {
		t.Errorf("unexpected address: %s", cfg.Address())
	}
	cfg.Port = 2222
	if cfg.Address() != "data.example.org:2222" {
		t.Errorf("unexpected address: %s", cfg.Address())
	}
}

func TestNewFetcherRejectsBadConfig(t *testing.T) {
	cfg := DefaultFetchConfig("", "watt")
	if _, err := NewFetcher(cfg, zerolog.Nop()); err == nil {
		t.Error("expected error for invalid config, got nil")
	}
}
