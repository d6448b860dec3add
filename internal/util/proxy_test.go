package util

import (
	"net/http"
	"testing"
	"time"

	"github.com/luispater/CopilotBridge/internal/config"
)

func TestSetProxyNoURLLeavesClientUntouched(t *testing.T) {
	client := &http.Client{}
	out := SetProxy(&config.Config{}, client)
	if out != client {
		t.Fatal("client identity changed without a proxy url")
	}
	if out.Transport != nil {
		t.Errorf("transport = %v, want nil", out.Transport)
	}
}

func TestSetProxySOCKS5PreservesTransportSettings(t *testing.T) {
	client := &http.Client{
		Transport: &http.Transport{ResponseHeaderTimeout: 2 * time.Minute},
	}
	cfg := &config.Config{ProxyURL: "socks5://127.0.0.1:1080"}

	out := SetProxy(cfg, client)

	transport, ok := out.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("transport type = %T, want *http.Transport", out.Transport)
	}
	if transport.ResponseHeaderTimeout != 2*time.Minute {
		t.Errorf("ResponseHeaderTimeout = %v, want 2m; proxy setup must not discard transport settings", transport.ResponseHeaderTimeout)
	}
	if transport.DialContext == nil {
		t.Error("DialContext not set for socks5 proxy")
	}
}

func TestSetProxyHTTPPreservesTransportSettings(t *testing.T) {
	client := &http.Client{
		Transport: &http.Transport{ResponseHeaderTimeout: 90 * time.Second},
	}
	cfg := &config.Config{ProxyURL: "http://127.0.0.1:3128"}

	out := SetProxy(cfg, client)

	transport, ok := out.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("transport type = %T, want *http.Transport", out.Transport)
	}
	if transport.ResponseHeaderTimeout != 90*time.Second {
		t.Errorf("ResponseHeaderTimeout = %v, want 90s", transport.ResponseHeaderTimeout)
	}
	if transport.Proxy == nil {
		t.Error("Proxy not set for http proxy")
	}
}

func TestSetProxyUnsupportedScheme(t *testing.T) {
	original := &http.Transport{ResponseHeaderTimeout: time.Minute}
	client := &http.Client{Transport: original}
	cfg := &config.Config{ProxyURL: "ftp://127.0.0.1:21"}

	out := SetProxy(cfg, client)
	if out.Transport != http.RoundTripper(original) {
		t.Error("transport replaced for unsupported proxy scheme")
	}
}
