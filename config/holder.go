package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Holder owns the live configuration. Readers call Get; a reload swaps
// the pointer so a *Config is never mutated after it is published.
type Holder struct {
	path   string
	logger zerolog.Logger

	mu        sync.RWMutex
	current   *Config
	listeners []func(*Config)
	observers []func(at time.Time, err error)

	watcher *fsnotify.Watcher
	done    chan struct{}
	stop    sync.Once
}

// NewHolder loads path and returns a holder for it.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg, err := Load(abs)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &Holder{path: abs, logger: logger, current: cfg, done: make(chan struct{})}, nil
}

// Get returns the current configuration.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// SetLogger must be called before WatchFile or WatchSignals.
func (h *Holder) SetLogger(logger zerolog.Logger) { h.logger = logger }

// Path is the absolute config path.
func (h *Holder) Path() string { return h.path }

// OnChange registers fn to receive every successfully loaded config.
func (h *Holder) OnChange(fn func(*Config)) {
	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}

// OnReload registers fn to learn the outcome of every reload attempt.
func (h *Holder) OnReload(fn func(at time.Time, err error)) {
	h.mu.Lock()
	h.observers = append(h.observers, fn)
	h.mu.Unlock()
}

// Reload re-reads the file. A config that fails to load or validate is
// discarded and the previous one stays live.
func (h *Holder) Reload() error {
	next, err := Load(h.path)

	h.mu.Lock()
	prev := h.current
	if err == nil {
		h.current = next
	}
	listeners := slices.Clone(h.listeners)
	observers := slices.Clone(h.observers)
	h.mu.Unlock()

	at := time.Now()
	if err != nil {
		h.logger.Error().Err(err).Str("path", h.path).Msg("config rejected, previous config kept")
		for _, fn := range observers {
			fn(at, err)
		}
		return fmt.Errorf("reload config: %w", err)
	}

	h.reportChanges(prev, next)
	for _, fn := range listeners {
		fn(next)
	}
	for _, fn := range observers {
		fn(at, nil)
	}
	h.logger.Info().Str("path", h.path).Msg("config reloaded")
	return nil
}

// WatchFile reloads whenever the config file is written or replaced.
// The parent directory is watched so editors that rename over the file
// are still seen.
func (h *Holder) WatchFile() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(h.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(h.path), err)
	}
	h.watcher = w

	go h.watch(w)
	h.logger.Info().Str("path", h.path).Msg("watching config file")
	return nil
}

// WatchSignals reloads on SIGHUP until Stop.
func (h *Holder) WatchSignals() {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	go func() {
		defer signal.Stop(hup)
		for {
			select {
			case <-hup:
				h.trigger("sighup")
			case <-h.done:
				return
			}
		}
	}()
}

// Stop ends file and signal watching. Later calls do nothing.
func (h *Holder) Stop() {
	h.stop.Do(func() {
		close(h.done)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

func (h *Holder) watch(w *fsnotify.Watcher) {
	name := filepath.Base(h.path)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) == name && ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				h.trigger(ev.Op.String())
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			h.logger.Warn().Err(err).Msg("config watcher")
		case <-h.done:
			return
		}
	}
}

// trigger reloads and logs the cause. Reload already logs failures.
func (h *Holder) trigger(cause string) {
	h.logger.Debug().Str("cause", cause).Msg("config reload triggered")
	_ = h.Reload()
}

func (h *Holder) reportChanges(prev, next *Config) {
	if prev.Logging.Level != next.Logging.Level {
		h.logger.Info().Str("from", prev.Logging.Level).Str("to", next.Logging.Level).Msg("log level changed")
	}
	if !sameFields(prev.Fields, next.Fields) {
		h.logger.Warn().Int("before", len(prev.Fields)).Int("after", len(next.Fields)).
			Msg("field registrations changed; restart to apply")
	}
	if prev.Server != next.Server || prev.Database != next.Database {
		h.logger.Warn().Msg("server or database settings changed; restart to apply")
	}
}

func sameFields(a, b []FieldConfig) bool {
	return slices.EqualFunc(a, b, func(x, y FieldConfig) bool {
		return x.Definition().Normalized().Same(y.Definition().Normalized())
	})
}

// ReloadableFields lists settings that take effect on reload.
func ReloadableFields() []string {
	return []string{"logging.level"}
}

// NonReloadableFields lists settings that need a restart.
func NonReloadableFields() []string {
	return []string{
		"server.host", "server.port",
		"database.driver", "database.dsn",
		"auth.key_prefix", "auth.jwt_secret",
		"fields",
	}
}
