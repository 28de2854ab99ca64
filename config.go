package treeline

import (
	"log/slog"

	"github.com/treeline-dev/treeline/internal/config"
)

// =============================================================================
// Configuration Types
// =============================================================================

// Config is the main application configuration.
// This is the user-friendly entry point for configuring a Treeline app.
type Config struct {
	// Name identifies the application in logs.
	Name string

	// Lang is the document language attribute. Default: "en".
	Lang string

	// AssetPrefix is prepended to every stylesheet and script reference
	// the route modules declare. A CDN origin typically goes here.
	AssetPrefix string

	// DevMode enables development extras: live reload, unmasked error
	// messages, and root layout validation during streaming.
	// SECURITY: never enable in production; error details leak into
	// rendered documents.
	DevMode bool

	// Render configures the render engine.
	Render RenderConfig

	// Static configures static file serving.
	Static StaticConfig

	// Dev configures development mode behavior.
	Dev DevConfig

	// Actions dispatches mutation requests. Nil disables action handling.
	Actions ActionBridge

	// Logger is the structured logger for the application.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// RenderConfig configures the render engine.
type RenderConfig struct {
	// DefaultRevalidate is the starting revalidation interval in seconds
	// for cacheable renders. Zero disables caching by default.
	DefaultRevalidate int

	// PartialPrerender enables postponed rendering for dynamic segments
	// during static passes.
	PartialPrerender bool

	// ActionBodyLimit bounds action request bodies in bytes.
	// Default: 1 MiB.
	ActionBodyLimit int64
}

// StaticConfig configures static file serving.
type StaticConfig struct {
	// Dir is the directory containing static files (e.g., "public").
	Dir string

	// Prefix is the URL path prefix for static files (e.g., "/static/").
	// Default: "/static/".
	Prefix string

	// Headers are extra response headers set on every static file.
	Headers map[string]string

	// CacheControl selects the caching strategy for static files.
	CacheControl CacheControlMode
}

// DevConfig configures development mode behavior.
type DevConfig struct {
	// LiveReload pushes reload events to connected browsers over a
	// WebSocket. Only active together with DevMode.
	LiveReload bool

	// Watch contains paths the file watcher scans for changes.
	Watch []string
}

// CacheControlMode selects the Cache-Control strategy for static files.
type CacheControlMode int

const (
	// CacheControlDefault leaves cache headers to net/http.
	CacheControlDefault CacheControlMode = iota

	// CacheControlNone disables caching. Useful in development.
	CacheControlNone

	// CacheControlProduction caches fingerprinted files immutably for a
	// year and everything else for an hour with revalidation.
	CacheControlProduction
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Lang: "en",
		Static: StaticConfig{
			Prefix: "/static/",
		},
		Dev: DevConfig{
			LiveReload: true,
			Watch:      []string{"app", "public"},
		},
	}
}

// FromFile loads treeline.json from dir, applies environment overrides, and
// maps the result onto a Config. Missing files yield defaults.
func FromFile(dir string) (Config, error) {
	fc, err := config.Load(dir)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Name:        fc.Name,
		Lang:        fc.Lang,
		AssetPrefix: fc.AssetPrefix,
		Render: RenderConfig{
			DefaultRevalidate: fc.Render.DefaultRevalidate,
			PartialPrerender:  fc.Render.PartialPrerender,
			ActionBodyLimit:   fc.Render.ActionBodyLimit,
		},
		Static: StaticConfig{
			Dir:    fc.StaticPath(),
			Prefix: fc.Static.Prefix,
		},
		Dev: DevConfig{
			LiveReload: fc.Dev.LiveReload,
			Watch:      fc.Dev.Watch,
		},
	}, nil
}
