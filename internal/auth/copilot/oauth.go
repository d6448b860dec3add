package copilot

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// copilotConfigFiles are the editor configuration files searched for the
// long-lived OAuth token, in order of preference.
var copilotConfigFiles = []string{"hosts.json", "apps.json"}

// OAuthSource locates the long-lived GitHub OAuth token inside the local
// GitHub Copilot editor configuration.
type OAuthSource struct {
	configDir string
}

// NewOAuthSource creates an OAuth source. When configDir is empty, the
// standard XDG configuration directory is searched.
func NewOAuthSource(configDir string) *OAuthSource {
	return &OAuthSource{configDir: configDir}
}

// OAuthToken returns the long-lived OAuth token from the first
// configuration file containing a github.com entry. It fails with an
// AuthenticationError when no file is found, a candidate file is
// unparsable, or no matching entry carries a token.
func (s *OAuthSource) OAuthToken() (string, error) {
	dir := s.configDir
	if dir == "" {
		dir = os.Getenv("XDG_CONFIG_HOME")
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", &AuthenticationError{Message: "failed to locate home directory", Err: err}
		}
		dir = filepath.Join(home, ".config")
	}

	for _, name := range copilotConfigFiles {
		path := filepath.Join(dir, "github-copilot", name)
		data, errRead := os.ReadFile(path)
		if errRead != nil {
			continue
		}
		if !gjson.ValidBytes(data) {
			return "", &AuthenticationError{Message: "GitHub Copilot configuration not found or invalid"}
		}

		var token string
		gjson.ParseBytes(data).ForEach(func(key, value gjson.Result) bool {
			if strings.Contains(key.String(), "github.com") {
				token = value.Get("oauth_token").String()
				return token == ""
			}
			return true
		})
		if token != "" {
			return token, nil
		}
	}

	return "", &AuthenticationError{Message: "oauth token not found in GitHub Copilot configuration"}
}
