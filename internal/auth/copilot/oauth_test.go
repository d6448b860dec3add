package copilot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeCopilotConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	configDir := filepath.Join(dir, "github-copilot")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestOAuthTokenFromHostsFile(t *testing.T) {
	dir := t.TempDir()
	writeCopilotConfig(t, dir, "hosts.json", `{"github.com":{"oauth_token":"gho_hosts","user":"octocat"}}`)

	token, err := NewOAuthSource(dir).OAuthToken()
	if err != nil {
		t.Fatalf("OAuthToken: %v", err)
	}
	if token != "gho_hosts" {
		t.Errorf("token = %q, want %q", token, "gho_hosts")
	}
}

func TestOAuthTokenFromAppsFallback(t *testing.T) {
	dir := t.TempDir()
	// apps.json keys carry an app suffix after the host.
	writeCopilotConfig(t, dir, "apps.json", `{"github.com:Iv1.b507a08c87ecfe98":{"oauth_token":"gho_apps"}}`)

	token, err := NewOAuthSource(dir).OAuthToken()
	if err != nil {
		t.Fatalf("OAuthToken: %v", err)
	}
	if token != "gho_apps" {
		t.Errorf("token = %q, want %q", token, "gho_apps")
	}
}

func TestOAuthTokenPrefersHostsOverApps(t *testing.T) {
	dir := t.TempDir()
	writeCopilotConfig(t, dir, "hosts.json", `{"github.com":{"oauth_token":"gho_hosts"}}`)
	writeCopilotConfig(t, dir, "apps.json", `{"github.com:Iv1.x":{"oauth_token":"gho_apps"}}`)

	token, err := NewOAuthSource(dir).OAuthToken()
	if err != nil {
		t.Fatalf("OAuthToken: %v", err)
	}
	if token != "gho_hosts" {
		t.Errorf("token = %q, want %q", token, "gho_hosts")
	}
}

func TestOAuthTokenInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeCopilotConfig(t, dir, "hosts.json", `{broken`)

	_, err := NewOAuthSource(dir).OAuthToken()
	if err == nil {
		t.Fatal("expected error for unparsable configuration")
	}
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Errorf("error type = %T, want *AuthenticationError", err)
	}
}

func TestOAuthTokenMissingConfiguration(t *testing.T) {
	_, err := NewOAuthSource(t.TempDir()).OAuthToken()
	if err == nil {
		t.Fatal("expected error when no configuration file exists")
	}
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Errorf("error type = %T, want *AuthenticationError", err)
	}
}

func TestOAuthTokenNoGithubEntry(t *testing.T) {
	dir := t.TempDir()
	writeCopilotConfig(t, dir, "hosts.json", `{"example.org":{"oauth_token":"nope"}}`)

	_, err := NewOAuthSource(dir).OAuthToken()
	if err == nil {
		t.Fatal("expected error when no github.com entry exists")
	}
}
