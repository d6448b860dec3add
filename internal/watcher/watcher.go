// Package watcher provides configuration hot reload for the CopilotBridge
// server. It watches the configuration file with fsnotify and invokes a
// reload callback when the file content actually changes.
package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/luispater/CopilotBridge/internal/config"
	log "github.com/sirupsen/logrus"
)

// debounceDelay coalesces the write event bursts editors and atomic saves
// produce into a single reload.
const debounceDelay = 100 * time.Millisecond

// Watcher monitors a configuration file and invokes a callback when its
// content changes.
type Watcher struct {
	configPath string
	onChange   func(*config.Config)
	lastHash   string
}

// NewWatcher creates a watcher for the given configuration file.
func NewWatcher(configPath string, onChange func(*config.Config)) *Watcher {
	return &Watcher{
		configPath: configPath,
		onChange:   onChange,
		lastHash:   hashFile(configPath),
	}
}

// Start begins watching. It blocks until ctx is canceled, so callers run it
// in its own goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		_ = fsWatcher.Close()
	}()

	// Watch the directory, not the file: atomic saves replace the inode
	// and a file watch would go stale after the first reload.
	if err = fsWatcher.Add(filepath.Dir(w.configPath)); err != nil {
		return err
	}

	log.Debugf("watching configuration file %s", w.configPath)

	var debounce *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.configPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case errWatch, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			log.Warnf("config watcher error: %v", errWatch)
		case <-reload:
			w.reloadIfChanged()
		}
	}
}

// reloadIfChanged reloads the configuration when the file content hash
// differs from the last observed one. Touch events without content changes
// are ignored.
func (w *Watcher) reloadIfChanged() {
	hash := hashFile(w.configPath)
	if hash == "" || hash == w.lastHash {
		return
	}

	cfg, err := config.LoadConfig(w.configPath)
	if err != nil {
		log.Warnf("config reload failed, keeping previous configuration: %v", err)
		return
	}

	w.lastHash = hash
	w.onChange(cfg)
}

func hashFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
