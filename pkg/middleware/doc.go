// Package middleware provides production-grade HTTP middleware for Treeline
// applications.
//
// This package includes:
//   - OpenTelemetry distributed tracing middleware
//   - Prometheus metrics middleware
//
// Both are standard net/http middleware and compose with chi routers.
//
// # OpenTelemetry Middleware
//
// The OpenTelemetry middleware traces every render request, continuing any
// trace context carried in the request headers. Spans record the method,
// path, response status, and whether the request was a client navigation or
// a prefetch.
//
//	r := chi.NewRouter()
//	r.Use(middleware.OpenTelemetry())
//
// Configure with options:
//
//	middleware.OpenTelemetry(
//	    middleware.WithTracerName("my-app"),
//	    middleware.WithRequestFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	)
//
// # Prometheus Metrics
//
// The Prometheus middleware collects metrics about render traffic:
//
//   - treeline_renders_total: Render passes by path, kind, and status
//
//   - treeline_render_duration_seconds: Render duration histogram
//
//   - treeline_render_errors_total: Render errors by path and error type
//
//   - treeline_in_flight_requests: Requests currently being rendered
//
//     r.Use(middleware.Prometheus())
//
// Then expose metrics on a separate port:
//
//	http.Handle("/metrics", promhttp.Handler())
//	go http.ListenAndServe(":9090", nil)
//
// Orchestration code reports events the middleware cannot observe from the
// outside (recoveries, action outcomes, payload rows, postponed and resumed
// prerenders, export writes) through the package-level Record functions.
//
// # Context Propagation
//
// The tracing middleware injects the span context into the request context,
// so database drivers and HTTP clients called from renderers inherit the
// trace:
//
//	func postsPage(r *http.Request) (*vdom.VNode, error) {
//	    row := db.QueryRowContext(r.Context(), "SELECT ...")
//	    ...
//	}
package middleware
