// Package config provides configuration management for the CopilotBridge server.
// It handles loading and parsing YAML configuration files, and provides structured
// access to application settings including the listen address, the inbound access
// token, debug settings, proxy configuration, and upstream endpoint overrides.
package config

import (
	"fmt"
	"os"

	"github.com/luispater/CopilotBridge/internal/constant"
	"gopkg.in/yaml.v3"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Host is the network interface on which the server will listen.
	Host string `yaml:"host"`

	// Port is the network port on which the server will listen.
	Port int `yaml:"port"`

	// AccessToken is the single static bearer secret inbound callers must present.
	AccessToken string `yaml:"access-token"`

	// Debug enables or disables debug-level logging and other debug features.
	Debug bool `yaml:"debug"`

	// LoggingToFile routes application logs to rotating files instead of stdout.
	LoggingToFile bool `yaml:"logging-to-file"`

	// RequestLog enables or disables detailed request logging functionality.
	RequestLog bool `yaml:"request-log"`

	// ProxyURL is the URL of an optional proxy server to use for outbound requests.
	ProxyURL string `yaml:"proxy-url"`

	// UpstreamURL overrides the Copilot completion API base URL.
	// If empty, the default endpoint is used.
	UpstreamURL string `yaml:"upstream-url"`

	// TokenURL overrides the token issuance endpoint.
	// If empty, the default endpoint is used.
	TokenURL string `yaml:"token-url"`

	// CopilotConfigDir overrides the directory searched for the GitHub Copilot
	// hosts.json/apps.json files holding the long-lived OAuth token.
	// If empty, XDG_CONFIG_HOME (or ~/.config) is used.
	CopilotConfigDir string `yaml:"copilot-config-dir"`

	// TokenCacheFile is the path of the cached service token blob.
	TokenCacheFile string `yaml:"token-cache-file"`

	// UsageStatsFile is the path of the bbolt database holding request
	// usage statistics. Empty disables usage tracking.
	UsageStatsFile string `yaml:"usage-stats-file"`

	// RemoteManagement configures the management API endpoints.
	RemoteManagement RemoteManagement `yaml:"remote-management"`
}

// RemoteManagement holds the management API access settings.
type RemoteManagement struct {
	// SecretKey is the bcrypt hash of the management key. When empty,
	// no management endpoint is exposed.
	SecretKey string `yaml:"secret-key"`
}

// UpstreamBaseURL returns the configured upstream base URL, falling back to
// the default Copilot completion endpoint.
func (c *Config) UpstreamBaseURL() string {
	if c.UpstreamURL != "" {
		return c.UpstreamURL
	}
	return constant.UpstreamEndpoint
}

// TokenEndpointURL returns the configured token issuance URL, falling back
// to the default GitHub endpoint.
func (c *Config) TokenEndpointURL() string {
	if c.TokenURL != "" {
		return c.TokenURL
	}
	return constant.TokenEndpoint
}

// TokenCachePath returns the configured token cache file path, falling back
// to the well-known default location.
func (c *Config) TokenCachePath() string {
	if c.TokenCacheFile != "" {
		return c.TokenCacheFile
	}
	return constant.DefaultTokenCacheFile
}

// LoadConfig reads a YAML configuration file from the given path,
// unmarshals it into a Config struct, and returns it.
//
// Parameters:
//   - configFile: The path to the YAML configuration file
//
// Returns:
//   - *Config: The loaded configuration
//   - error: An error if the configuration could not be loaded
func LoadConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}
