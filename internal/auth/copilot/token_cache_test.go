package copilot

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTokenCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	cache := NewTokenCache(path)

	stored := &CopilotToken{
		Token:                "svc-token",
		ExpiresAt:            time.Now().Add(time.Hour).Unix(),
		RefreshIn:            1500,
		SKU:                  "copilot_for_business",
		ChatEnabled:          true,
		ChatJetbrainsEnabled: true,
	}
	if err := cache.Store(stored); err != nil {
		t.Fatalf("store: %v", err)
	}

	loaded := cache.Load()
	if loaded == nil {
		t.Fatal("load returned nil after store")
	}
	if loaded.Token != stored.Token {
		t.Errorf("token = %q, want %q", loaded.Token, stored.Token)
	}
	if loaded.ExpiresAt != stored.ExpiresAt {
		t.Errorf("expires_at = %d, want %d", loaded.ExpiresAt, stored.ExpiresAt)
	}
	if loaded.SKU != stored.SKU {
		t.Errorf("sku = %q, want %q", loaded.SKU, stored.SKU)
	}
	if !loaded.ChatEnabled || !loaded.ChatJetbrainsEnabled {
		t.Errorf("feature flags lost on round trip: chat=%t jetbrains=%t", loaded.ChatEnabled, loaded.ChatJetbrainsEnabled)
	}
}

func TestTokenCacheLoadAbsent(t *testing.T) {
	cache := NewTokenCache(filepath.Join(t.TempDir(), "missing.json"))
	if token := cache.Load(); token != nil {
		t.Fatalf("load of absent blob = %+v, want nil", token)
	}
}

func TestTokenCacheLoadCorruptBlobIsDeleted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write corrupt blob: %v", err)
	}

	cache := NewTokenCache(path)
	if token := cache.Load(); token != nil {
		t.Fatalf("load of corrupt blob = %+v, want nil", token)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("corrupt blob still present after load, stat err = %v", err)
	}
}

func TestTokenCacheLoadMissingRequiredFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	// Valid JSON, but no token secret.
	if err := os.WriteFile(path, []byte(`{"expires_at": 99}`), 0o600); err != nil {
		t.Fatalf("write blob: %v", err)
	}

	cache := NewTokenCache(path)
	if token := cache.Load(); token != nil {
		t.Fatalf("load of incomplete blob = %+v, want nil", token)
	}
}

func TestTokenCacheStoreOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	cache := NewTokenCache(path)

	first := &CopilotToken{Token: "first", ExpiresAt: 100}
	second := &CopilotToken{Token: "second", ExpiresAt: 200}
	if err := cache.Store(first); err != nil {
		t.Fatalf("store first: %v", err)
	}
	if err := cache.Store(second); err != nil {
		t.Fatalf("store second: %v", err)
	}

	loaded := cache.Load()
	if loaded == nil || loaded.Token != "second" {
		t.Fatalf("load after overwrite = %+v, want token %q", loaded, "second")
	}
}
