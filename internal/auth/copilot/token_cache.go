package copilot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
)

// TokenCache persists the most recently issued service token as a JSON blob
// at a single well-known location, surviving process restarts. It is a
// single-slot cache: stores overwrite, they never accumulate.
type TokenCache struct {
	mu   sync.Mutex
	path string
}

// NewTokenCache creates a token cache backed by the given file path.
func NewTokenCache(path string) *TokenCache {
	return &TokenCache{path: path}
}

// Load reads the cached token blob. It returns nil when the blob is absent.
// A blob that fails to parse into a well-formed token is deleted and
// reported absent; corruption never escapes this boundary.
func (c *TokenCache) Load() *CopilotToken {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil
	}

	var token CopilotToken
	if errUnmarshal := json.Unmarshal(data, &token); errUnmarshal != nil || !token.wellFormed() {
		log.Warnf("token cache: discarding corrupt blob at %s", c.path)
		_ = os.Remove(c.path)
		return nil
	}

	return &token
}

// Store serializes the token and writes it atomically: the blob is written
// to a temp file and renamed into place, so a concurrent Load never
// observes a partial write.
func (c *TokenCache) Store(token *CopilotToken) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := json.Marshal(token)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(c.path); dir != "." {
		if err = os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}

	tmp := c.path + ".tmp"
	if err = os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}
