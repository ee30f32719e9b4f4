package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/artpar/postmeta/adapters/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.RequestsTotal.WithLabelValues("GET", "/api/v2/posts/{id}", "2xx").Inc()
	m.RequestDuration.WithLabelValues("GET", "/api/v2/posts/{id}").Observe(0.01)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"postmeta_requests_total", "postmeta_request_duration_seconds"} {
		if !names[want] {
			t.Errorf("metric %s not gathered", want)
		}
	}
}

func TestFieldObserver(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	m.FieldRead("custom_meta")
	m.FieldRead("custom_meta")
	m.FieldWrite("custom_meta", "ok")
	m.FieldWrite("custom_meta", "denied")
	m.FieldDenied("custom_meta", "write")

	if got := testutil.ToFloat64(m.FieldReads.WithLabelValues("custom_meta")); got != 2 {
		t.Errorf("field reads = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.FieldWrites.WithLabelValues("custom_meta", "ok")); got != 1 {
		t.Errorf("ok writes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.FieldWrites.WithLabelValues("custom_meta", "denied")); got != 1 {
		t.Errorf("denied writes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.FieldDenials.WithLabelValues("custom_meta", "write")); got != 1 {
		t.Errorf("denials = %v, want 1", got)
	}
}

func TestConfigReloaded(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	at := time.Unix(1700000000, 0)

	m.ConfigReloaded(at, nil)
	m.ConfigReloaded(at, errors.New("bad yaml"))

	if got := testutil.ToFloat64(m.ConfigReloads); got != 1 {
		t.Errorf("reloads = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ConfigReloadErrors); got != 1 {
		t.Errorf("reload errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ConfigLastReload); got != 1700000000 {
		t.Errorf("last reload = %v, want 1700000000", got)
	}
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{
		200: "2xx",
		204: "2xx",
		301: "3xx",
		400: "4xx",
		403: "4xx",
		500: "5xx",
		101: "1xx",
	}
	for status, want := range tests {
		if got := metrics.StatusClass(status); got != want {
			t.Errorf("StatusClass(%d) = %s, want %s", status, got, want)
		}
	}
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewWithRegistry(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	metrics.NewWithRegistry(reg)
}
