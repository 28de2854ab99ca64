package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func resetGlobalMetricsForTest() {
	globalMetricsMu.Lock()
	globalMetrics = nil
	globalMetricsMu.Unlock()
}

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	if m.Gauge == nil {
		t.Fatal("expected gauge metric to have Gauge field")
	}
	return m.GetGauge().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func serveThrough(mw func(http.Handler) http.Handler, r *http.Request, handler http.HandlerFunc) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, r)
	return rec
}

func TestPrometheusMiddleware_RecordsRenders(t *testing.T) {
	t.Run("document render counts by kind and status", func(t *testing.T) {
		resetGlobalMetricsForTest()
		reg := prometheus.NewRegistry()

		mw := Prometheus(WithRegistry(reg))
		r := httptest.NewRequest(http.MethodGet, "/blog", nil)
		rec := serveThrough(mw, r, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte("<!DOCTYPE html>"))
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		c := GetMetrics()
		if c == nil {
			t.Fatal("expected GetMetrics to return collector after initialization")
		}
		if got := metricCounterValue(t, c.rendersTotal.WithLabelValues("/blog", "document", "200")); got != 1 {
			t.Fatalf("renders_total(document,200)=%v, want 1", got)
		}
		if got := metricHistogramCount(t, c.renderDuration.WithLabelValues("/blog", "document")); got == 0 {
			t.Fatal("expected render_duration_seconds histogram to have sample count > 0")
		}
		if got := metricGaugeValue(t, c.inFlight); got != 0 {
			t.Fatalf("in_flight_requests=%v, want 0 after request", got)
		}
	})

	t.Run("navigation payload classified by content type", func(t *testing.T) {
		resetGlobalMetricsForTest()
		reg := prometheus.NewRegistry()

		mw := Prometheus(WithRegistry(reg))
		r := httptest.NewRequest(http.MethodGet, "/blog", nil)
		r.Header.Set("Treeline-Navigation", "1")
		serveThrough(mw, r, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/x-component; charset=utf-8")
			w.Write([]byte(`["$","div",null,{}]`))
		})

		c := GetMetrics()
		if got := metricCounterValue(t, c.rendersTotal.WithLabelValues("/blog", "payload", "200")); got != 1 {
			t.Fatalf("renders_total(payload,200)=%v, want 1", got)
		}
	})

	t.Run("server error increments error counter", func(t *testing.T) {
		resetGlobalMetricsForTest()
		reg := prometheus.NewRegistry()

		mw := Prometheus(WithRegistry(reg))
		r := httptest.NewRequest(http.MethodGet, "/broken", nil)
		serveThrough(mw, r, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		c := GetMetrics()
		if got := metricCounterValue(t, c.rendersTotal.WithLabelValues("/broken", "document", "500")); got != 1 {
			t.Fatalf("renders_total(document,500)=%v, want 1", got)
		}
		if got := metricCounterValue(t, c.renderErrors.WithLabelValues("/broken", "internal")); got != 1 {
			t.Fatalf("render_errors_total(internal)=%v, want 1", got)
		}
	})

	t.Run("redirect classified by status", func(t *testing.T) {
		resetGlobalMetricsForTest()
		reg := prometheus.NewRegistry()

		mw := Prometheus(WithRegistry(reg))
		r := httptest.NewRequest(http.MethodPost, "/account", nil)
		serveThrough(mw, r, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Location", "/login")
			w.WriteHeader(http.StatusTemporaryRedirect)
		})

		c := GetMetrics()
		if got := metricCounterValue(t, c.rendersTotal.WithLabelValues("/account", "redirect", "307")); got != 1 {
			t.Fatalf("renders_total(redirect,307)=%v, want 1", got)
		}
	})

	t.Run("handler that never writes counts as 200", func(t *testing.T) {
		resetGlobalMetricsForTest()
		reg := prometheus.NewRegistry()

		mw := Prometheus(WithRegistry(reg))
		r := httptest.NewRequest(http.MethodGet, "/silent", nil)
		serveThrough(mw, r, func(http.ResponseWriter, *http.Request) {})

		c := GetMetrics()
		if got := metricCounterValue(t, c.rendersTotal.WithLabelValues("/silent", "document", "200")); got != 1 {
			t.Fatalf("renders_total(document,200)=%v, want 1", got)
		}
	})
}

func TestMetricsRecordFunctions_WithInitializedMetrics(t *testing.T) {
	resetGlobalMetricsForTest()
	reg := prometheus.NewRegistry()

	_ = Prometheus(WithRegistry(reg)) // initialize global metrics
	c := GetMetrics()
	if c == nil {
		t.Fatal("expected GetMetrics to return collector after initialization")
	}

	RecordRenderError("/page", errTimeout{})
	RecordRecovery("not_found")
	RecordRecovery("redirect")
	RecordAction("form_state")
	RecordPayloadRows(7)
	RecordPostpone()
	RecordResume()
	RecordExport(4096)

	if got := metricCounterValue(t, c.renderErrors.WithLabelValues("/page", "timeout")); got != 1 {
		t.Fatalf("render_errors_total(timeout)=%v, want 1", got)
	}
	if got := metricCounterValue(t, c.recoveriesTotal.WithLabelValues("not_found")); got != 1 {
		t.Fatalf("recoveries_total(not_found)=%v, want 1", got)
	}
	if got := metricCounterValue(t, c.recoveriesTotal.WithLabelValues("redirect")); got != 1 {
		t.Fatalf("recoveries_total(redirect)=%v, want 1", got)
	}
	if got := metricCounterValue(t, c.actionsTotal.WithLabelValues("form_state")); got != 1 {
		t.Fatalf("actions_total(form_state)=%v, want 1", got)
	}
	if got := metricCounterValue(t, c.payloadRows); got != 7 {
		t.Fatalf("payload_rows_total=%v, want 7", got)
	}
	if got := metricCounterValue(t, c.postponesTotal); got != 1 {
		t.Fatalf("postpones_total=%v, want 1", got)
	}
	if got := metricCounterValue(t, c.resumesTotal); got != 1 {
		t.Fatalf("resumes_total=%v, want 1", got)
	}
	if got := metricCounterValue(t, c.exportedPages); got != 1 {
		t.Fatalf("exported_pages_total=%v, want 1", got)
	}
	if got := metricHistogramCount(t, c.exportBytes); got == 0 {
		t.Fatal("expected export_page_bytes histogram to have sample count > 0")
	}
}

type errTimeout struct{}

func (errTimeout) Error() string { return "timeout waiting for data" }
