package config

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// HotConfig reloads the config file while the pipeline runs, so analyzer
// tuning can be adjusted without restarting. A rewrite that fails to
// parse or validate is rejected and the active config stays in place.
type HotConfig struct {
	path string

	mu  sync.RWMutex
	cfg *Config

	subs []func(*Config)
}

// NewHotConfig loads the file once; call Watch to follow later rewrites.
func NewHotConfig(path string) (*HotConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &HotConfig{path: path, cfg: cfg}, nil
}

// Get returns the active config.
func (hc *HotConfig) Get() *Config {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.cfg
}

// OnReload registers a callback invoked with each accepted reload.
// Register all callbacks before calling Watch.
func (hc *HotConfig) OnReload(fn func(*Config)) {
	hc.subs = append(hc.subs, fn)
}

// Watch follows the config file in a goroutine, reloading on every
// write. The returned error covers watcher setup only; rejected reloads
// are logged and skipped.
func (hc *HotConfig) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	if err := watcher.Add(hc.path); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", hc.path, err)
	}
	go hc.follow(watcher)
	return nil
}

func (hc *HotConfig) follow(watcher *fsnotify.Watcher) {
	defer watcher.Close()
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				hc.reload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher", "err", err)
		}
	}
}

func (hc *HotConfig) reload() {
	cfg, err := Load(hc.path)
	if err != nil {
		slog.Warn("config reload rejected", "err", err)
		return
	}
	hc.mu.Lock()
	hc.cfg = cfg
	hc.mu.Unlock()

	slog.Info("config reloaded", "path", hc.path)
	for _, fn := range hc.subs {
		fn(cfg)
	}
}
