package config_test

import (
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/artpar/postmeta/config"
	"github.com/rs/zerolog"
)

func TestHolder_Get(t *testing.T) {
	h, _ := newHolder(t)

	got := h.Get()
	if got == nil {
		t.Fatal("Get returned nil")
	}
	if got.Logging.Level != "info" {
		t.Errorf("Logging.Level = %s, want info", got.Logging.Level)
	}
}

func TestHolder_Reload(t *testing.T) {
	h, path := newHolder(t)

	if err := os.WriteFile(path, []byte(debugConfig()), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	if got := h.Get().Logging.Level; got != "debug" {
		t.Errorf("reloaded Logging.Level = %s, want debug", got)
	}
}

func TestHolder_OnChange(t *testing.T) {
	h, path := newHolder(t)

	var mu sync.Mutex
	var receivedCfg *config.Config
	h.OnChange(func(cfg *config.Config) {
		mu.Lock()
		receivedCfg = cfg
		mu.Unlock()
	})

	if err := os.WriteFile(path, []byte(debugConfig()), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if receivedCfg == nil {
		t.Fatal("OnChange callback was not called")
	}
	if receivedCfg.Logging.Level != "debug" {
		t.Errorf("callback received level = %s, want debug", receivedCfg.Logging.Level)
	}
}

func TestHolder_OnReload(t *testing.T) {
	h, path := newHolder(t)

	var results []error
	h.OnReload(func(at time.Time, err error) {
		if at.IsZero() {
			t.Error("reload time is zero")
		}
		results = append(results, err)
	})

	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}
	if err := os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0644); err != nil {
		t.Fatalf("write invalid config: %v", err)
	}
	if err := h.Reload(); err == nil {
		t.Fatal("Reload should fail for invalid config")
	}

	if len(results) != 2 {
		t.Fatalf("OnReload called %d times, want 2", len(results))
	}
	if results[0] != nil {
		t.Errorf("first reload reported %v, want nil", results[0])
	}
	if results[1] == nil {
		t.Error("second reload should report an error")
	}
}

func TestHolder_ReloadInvalidConfig(t *testing.T) {
	h, path := newHolder(t)

	invalid := `
database:
  driver: "postgres"
`
	if err := os.WriteFile(path, []byte(invalid), 0644); err != nil {
		t.Fatalf("write invalid config: %v", err)
	}

	if err := h.Reload(); err == nil {
		t.Error("Reload should fail for invalid config")
	}
	if got := h.Get().Database.Driver; got != "memory" {
		t.Errorf("should keep old config, got Database.Driver = %s", got)
	}
}

func TestHolder_WatchFile(t *testing.T) {
	h, path := newHolder(t)

	changed := make(chan struct{}, 4)
	h.OnChange(func(*config.Config) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile error: %v", err)
	}

	if err := os.WriteFile(path, []byte(debugConfig()), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}

	// A write can surface as several events; wait for the final content.
	deadline := time.After(2 * time.Second)
	for h.Get().Logging.Level != "debug" {
		select {
		case <-changed:
		case <-deadline:
			t.Fatalf("after file watch, Logging.Level = %s, want debug", h.Get().Logging.Level)
		}
	}
}

func TestHolder_StopTwice(t *testing.T) {
	h, _ := newHolder(t)
	h.Stop()
	h.Stop()
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	h, _ := newHolder(t)

	var wg sync.WaitGroup
	for range 10 {
		wg.Go(func() {
			for range 100 {
				if h.Get() == nil {
					t.Error("Get returned nil during reload")
				}
			}
		})
	}
	wg.Go(func() {
		for range 5 {
			_ = h.Reload()
		}
	})
	wg.Wait()
}

func TestReloadableFields(t *testing.T) {
	if !slices.Contains(config.ReloadableFields(), "logging.level") {
		t.Error("logging.level should be reloadable")
	}
	for _, f := range config.ReloadableFields() {
		if slices.Contains(config.NonReloadableFields(), f) {
			t.Errorf("%s listed as both reloadable and non-reloadable", f)
		}
	}
}

func TestNonReloadableFields(t *testing.T) {
	for _, want := range []string{"server.port", "database.dsn", "fields"} {
		if !slices.Contains(config.NonReloadableFields(), want) {
			t.Errorf("%s should require a restart", want)
		}
	}
}

// newHolder loads validConfig from a temp file and stops the holder at
// cleanup.
func newHolder(t *testing.T) (*config.Holder, string) {
	t.Helper()
	path := writeConfig(t, validConfig())
	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder: %v", err)
	}
	t.Cleanup(h.Stop)
	return h, path
}

func validConfig() string {
	return `
database:
  driver: "memory"

logging:
  level: "info"
`
}

func debugConfig() string {
	return `
database:
  driver: "memory"

logging:
  level: "debug"
`
}
