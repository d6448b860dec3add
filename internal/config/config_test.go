package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/luispater/CopilotBridge/internal/constant"
)

func TestLoadConfig(t *testing.T) {
	content := `
host: "127.0.0.1"
port: 8141
access-token: "secret"
debug: true
request-log: true
proxy-url: "socks5://127.0.0.1:1080"
upstream-url: "https://upstream.example"
token-url: "https://issuer.example/token"
token-cache-file: "/tmp/test-token.json"
usage-stats-file: "/tmp/test-usage.db"
remote-management:
  secret-key: "$2a$10$hash"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("host = %q", cfg.Host)
	}
	if cfg.Port != 8141 {
		t.Errorf("port = %d", cfg.Port)
	}
	if cfg.AccessToken != "secret" {
		t.Errorf("access-token = %q", cfg.AccessToken)
	}
	if !cfg.Debug || !cfg.RequestLog {
		t.Errorf("debug = %t, request-log = %t, want both true", cfg.Debug, cfg.RequestLog)
	}
	if cfg.UpstreamBaseURL() != "https://upstream.example" {
		t.Errorf("upstream = %q", cfg.UpstreamBaseURL())
	}
	if cfg.TokenEndpointURL() != "https://issuer.example/token" {
		t.Errorf("token url = %q", cfg.TokenEndpointURL())
	}
	if cfg.RemoteManagement.SecretKey != "$2a$10$hash" {
		t.Errorf("secret-key = %q", cfg.RemoteManagement.SecretKey)
	}
}

func TestConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("access-token: s\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.UpstreamBaseURL() != constant.UpstreamEndpoint {
		t.Errorf("upstream fallback = %q, want %q", cfg.UpstreamBaseURL(), constant.UpstreamEndpoint)
	}
	if cfg.TokenEndpointURL() != constant.TokenEndpoint {
		t.Errorf("token url fallback = %q, want %q", cfg.TokenEndpointURL(), constant.TokenEndpoint)
	}
	if cfg.TokenCachePath() != constant.DefaultTokenCacheFile {
		t.Errorf("cache path fallback = %q, want %q", cfg.TokenCachePath(), constant.DefaultTokenCacheFile)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("host: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}
