package bootstrap_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/artpar/postmeta/app"
	"github.com/artpar/postmeta/bootstrap"
	"github.com/artpar/postmeta/config"
	"github.com/artpar/postmeta/domain/identity"
	"github.com/rs/zerolog"
)

func TestBootstrap_MemoryScenario(t *testing.T) {
	a := newApp(t, `
database:
  driver: "memory"
`)

	ctx := context.Background()
	user, err := a.Auth.CreateUser(ctx, "alice@example.com", "Alice", identity.RoleAuthor)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	rawKey, _, err := a.Auth.CreateKey(ctx, user.ID, "test", 0)
	if err != nil {
		t.Fatalf("create key: %v", err)
	}
	view, err := a.Posts.Create(ctx, identity.Identity{UserID: user.ID, Role: identity.RoleAuthor}, app.CreateInput{
		Title:  "Answer",
		Status: "publish",
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	srv := httptest.NewServer(a.HTTPServer.Handler)
	defer srv.Close()

	postURL := srv.URL + "/api/v2/posts/" + view.Post.IDString()
	body := `{"data":{"type":"post","attributes":{"custom_meta":"<b>Hello</b>"}}}`
	resp := request(t, http.MethodPatch, postURL, rawKey, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d, body %s", resp.StatusCode, readAll(t, resp))
	}
	resp.Body.Close()

	resp = request(t, http.MethodGet, postURL, "", "")
	var doc struct {
		Data struct {
			Attributes map[string]any `json:"attributes"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if got := doc.Data.Attributes["custom_meta"]; got != "Hello" {
		t.Errorf("custom_meta = %v, want Hello", got)
	}

	resp = request(t, http.MethodPatch, postURL, "", body)
	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		t.Errorf("anonymous update status = %d, want 401 or 403", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestBootstrap_SQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "postmeta.db")
	a := newApp(t, `
database:
  driver: "sqlite"
  dsn: "`+dsn+`"
`)

	if a.DB == nil {
		t.Fatal("DB should not be nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, table := range []string{"posts", "postmeta", "users", "api_keys"} {
		var count int
		if err := a.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			t.Errorf("query %s table: %v", table, err)
		}
	}

	srv := httptest.NewServer(a.HTTPServer.Handler)
	defer srv.Close()

	resp := request(t, http.MethodGet, srv.URL+"/health/ready", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("readiness status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestBootstrap_Fields(t *testing.T) {
	a := newApp(t, `
database:
  driver: "memory"
fields:
  - resource_types: ["post"]
    name: "custom_meta"
    storage_key: "_custom_meta"
    schema:
      type: "string"
  - resource_types: ["post"]
    name: "rating"
    schema:
      type: "integer"
`)

	if _, ok := a.Registry.Lookup("post", "rating"); !ok {
		t.Error("rating should be registered")
	}
	def, ok := a.Registry.Lookup("post", "custom_meta")
	if !ok || def.StorageKey != "_custom_meta" {
		t.Errorf("custom_meta = %+v, want storage key _custom_meta", def)
	}
}

func TestBootstrap_ConflictingFieldsFail(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: "memory"
fields:
  - resource_types: ["post"]
    name: "status"
    schema:
      type: "string"
`)
	_, err := bootstrap.New(context.Background(), bootstrap.Options{ConfigPath: path, LogOutput: io.Discard})
	if err == nil {
		t.Fatal("a field shadowing a builtin should fail startup")
	}
}

func TestBootstrap_MetricsAndOpenAPI(t *testing.T) {
	a := newApp(t, `
database:
  driver: "memory"
metrics:
  enabled: true
openapi:
  enabled: true
`)
	if a.Metrics == nil {
		t.Fatal("Metrics should be enabled")
	}

	srv := httptest.NewServer(a.HTTPServer.Handler)
	defer srv.Close()

	resp := request(t, http.MethodGet, srv.URL+"/metrics", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/metrics status = %d, want 200", resp.StatusCode)
	}
	if body := readAll(t, resp); !strings.Contains(body, "go_goroutines") {
		t.Error("/metrics should include runtime collectors")
	}

	resp = request(t, http.MethodGet, srv.URL+"/.well-known/openapi.json", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("openapi status = %d, want 200", resp.StatusCode)
	}
	if body := readAll(t, resp); !strings.Contains(body, "custom_meta") {
		t.Error("openapi document should describe custom_meta")
	}
}

func TestBootstrap_Reload(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	path := writeConfig(t, `
database:
  driver: "memory"
metrics:
  enabled: true
logging:
  level: "info"
`)
	a, err := bootstrap.New(context.Background(), bootstrap.Options{ConfigPath: path, LogOutput: io.Discard})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer a.Shutdown()

	if err := os.WriteFile(path, []byte("database:\n  driver: \"memory\"\nlogging:\n  level: \"debug\"\n"), 0644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if err := a.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("global level = %s, want debug", zerolog.GlobalLevel())
	}
}

func TestBootstrap_ReloadWithoutFile(t *testing.T) {
	t.Setenv("POSTMETA_DATABASE_DRIVER", "memory")

	a, err := bootstrap.New(context.Background(), bootstrap.Options{LogOutput: io.Discard})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer a.Shutdown()

	if err := a.Reload(); err == nil {
		t.Error("Reload without a config file should fail")
	}
}

func TestBootstrap_RunStopsOnCancel(t *testing.T) {
	port := freePort(t)
	t.Setenv("POSTMETA_DATABASE_DRIVER", "memory")
	t.Setenv("POSTMETA_SERVER_HOST", "127.0.0.1")
	t.Setenv("POSTMETA_SERVER_PORT", strconv.Itoa(port))

	a, err := bootstrap.New(context.Background(), bootstrap.Options{LogOutput: io.Discard, Version: "1.2.3"})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	url := "http://" + a.HTTPServer.Addr + "/version"
	deadline := time.Now().Add(3 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			body := readAll(t, resp)
			if !strings.Contains(body, "1.2.3") {
				t.Errorf("version body = %s", body)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewLogger_Console(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	var buf bytes.Buffer
	logger := bootstrap.NewLogger(config.LoggingConfig{Level: "warn", Format: "console"}, &buf)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn message should be written")
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Error("console format should not write JSON")
	}
}

func newApp(t *testing.T, content string) *bootstrap.App {
	t.Helper()
	a, err := bootstrap.New(context.Background(), bootstrap.Options{
		ConfigPath: writeConfig(t, content),
		LogOutput:  io.Discard,
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	t.Cleanup(func() { a.Shutdown() })
	return a
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "postmeta.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func request(t *testing.T, method, url, apiKey, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/vnd.api+json")
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestBootstrap_AuditLog(t *testing.T) {
	var logs bytes.Buffer
	a, err := bootstrap.New(context.Background(), bootstrap.Options{
		ConfigPath: writeConfig(t, "database:\n  driver: \"memory\"\nauth:\n  jwt_secret: \"s\"\n"),
		LogOutput:  &logs,
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer a.Shutdown()

	ctx := context.Background()
	author := identity.Identity{UserID: "u1", Role: identity.RoleAuthor}
	view, err := a.Posts.Create(ctx, author, app.CreateInput{Title: "Audit"})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if err := a.Posts.WriteField(ctx, author, view.Post.IDString(), "custom_meta", "v"); err != nil {
		t.Fatalf("write field: %v", err)
	}

	var recorded []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var entry map[string]any
		if json.Unmarshal([]byte(line), &entry) == nil && entry["message"] == "change recorded" {
			recorded = append(recorded, entry)
		}
	}
	if len(recorded) != 2 {
		t.Fatalf("audit entries = %d, want 2:\n%s", len(recorded), logs.String())
	}
	if recorded[0]["event"] != "post.created" || recorded[1]["event"] != "post_meta.updated" || recorded[1]["field"] != "custom_meta" {
		t.Errorf("audit entries = %v", recorded)
	}
}
