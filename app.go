package treeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/treeline-dev/treeline/internal/dev"
	"github.com/treeline-dev/treeline/pkg/engine"
	"github.com/treeline-dev/treeline/pkg/export"
)

// devScriptPath serves the live-reload client in development mode.
const devScriptPath = "/_treeline/dev.js"

// =============================================================================
// App Type
// =============================================================================

// App is the main Treeline application entry point. It wraps the render
// engine, route matching, and static file serving into a single
// http.Handler.
//
// Create an App with treeline.New():
//
//	app := treeline.New(treeline.Config{
//	    Static:  treeline.StaticConfig{Dir: "public", Prefix: "/static/"},
//	    DevMode: os.Getenv("ENV") != "production",
//	})
//
//	app.Route("/", homeModule)
//	app.Route("/blog/[slug]", blogModule)
//	http.ListenAndServe(":3000", app)
type App struct {
	config Config
	logger *slog.Logger

	engine *engine.Engine
	routes *RouteTable

	staticFS http.FileSystem

	reload  *dev.ReloadServer
	watcher *dev.Watcher

	middlewares []func(http.Handler) http.Handler
	notFound    http.Handler

	buildOnce sync.Once
	mux       *chi.Mux
}

// New creates a new Treeline application with the given configuration.
func New(cfg Config) *App {
	if cfg.Lang == "" {
		cfg.Lang = "en"
	}
	if cfg.Static.Prefix == "" {
		cfg.Static.Prefix = "/static/"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	app := &App{
		config: cfg,
		logger: logger,
		engine: engine.New(engine.Config{
			Logger:            logger,
			Bridge:            cfg.Actions,
			DefaultRevalidate: cfg.Render.DefaultRevalidate,
			ActionBodyLimit:   cfg.Render.ActionBodyLimit,
		}),
		routes: NewRouteTable(),
	}

	if cfg.Static.Dir != "" {
		app.staticFS = http.Dir(cfg.Static.Dir)
	}
	if cfg.DevMode && cfg.Dev.LiveReload {
		app.reload = dev.NewReloadServer()
	}
	return app
}

// =============================================================================
// Route Registration
// =============================================================================

// Route mounts an application module under a pattern. Dynamic segments use
// bracket syntax:
//
//	app.Route("/blog/[slug]", blogModule)
//	app.Route("/docs/[[...path]]", docsModule)
//
// In development mode with live reload, the reload client script is added to
// the module's bootstrap scripts.
func (a *App) Route(pattern string, module *AppModule, opts ...RouteOption) error {
	if a.reload != nil && module != nil && !containsScript(module.BootstrapScripts, devScriptPath) {
		module.BootstrapScripts = append(module.BootstrapScripts, devScriptPath)
	}
	return a.routes.Add(pattern, module, opts...)
}

// MustRoute is Route but panics on a bad pattern. For use in package-level
// wiring where a registration error is a programming mistake.
func (a *App) MustRoute(pattern string, module *AppModule, opts ...RouteOption) {
	if err := a.Route(pattern, module, opts...); err != nil {
		panic(err)
	}
}

// Use appends middleware applied to every request. Must be called before the
// first request is served.
func (a *App) Use(mw ...func(http.Handler) http.Handler) {
	a.middlewares = append(a.middlewares, mw...)
}

// SetNotFound overrides the handler for paths no route matches. The default
// writes a plain 404. Matched routes render their tree's own not-found
// boundaries instead.
func (a *App) SetNotFound(h http.Handler) {
	a.notFound = h
}

func containsScript(scripts []string, src string) bool {
	for _, s := range scripts {
		if s == src {
			return true
		}
	}
	return false
}

// =============================================================================
// http.Handler Implementation
// =============================================================================

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.buildOnce.Do(a.build)
	a.mux.ServeHTTP(w, r)
}

func (a *App) build() {
	mux := chi.NewRouter()
	mux.Use(a.middlewares...)
	if a.reload != nil {
		mux.Get(dev.ReloadEndpoint, a.reload.ServeHTTP)
		mux.Get(devScriptPath, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/javascript")
			w.Header().Set("Cache-Control", "no-store")
			fmt.Fprint(w, dev.ClientScript)
		})
	}
	mux.Handle("/*", http.HandlerFunc(a.handle))
	a.mux = mux
}

// handle serves one request: static files first, then route matching and a
// full engine render pass.
func (a *App) handle(w http.ResponseWriter, r *http.Request) {
	if a.staticFS != nil && a.shouldServeStatic(r.URL.Path) {
		a.serveStatic(w, r)
		return
	}

	path, changed, err := canonicalizePath(r.URL.Path)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if changed && r.Method == http.MethodGet {
		target := path
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusMovedPermanently)
		return
	}

	rt, params, ok := a.routes.Match(path)
	if !ok {
		if a.notFound != nil {
			a.notFound.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
		return
	}

	res, err := a.engine.Render(r.Context(), w, r, rt.module, engine.RenderOptions{
		Path:        path,
		Params:      params,
		AssetPrefix: a.config.AssetPrefix,
		DevMode:     a.config.DevMode,
		ForceStatic: rt.forceStatic,
		Lang:        a.config.Lang,
	})
	if err != nil {
		a.logger.Error("render failed", slog.String("path", path), slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if err := res.WriteTo(w); err != nil {
		a.logger.Error("response write failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

// canonicalizePath normalizes a request path: ensures a leading slash,
// collapses duplicate slashes, and strips the trailing slash except at the
// root. Backslashes and NUL bytes are rejected.
func canonicalizePath(path string) (string, bool, error) {
	if path == "" {
		return "/", true, nil
	}
	if strings.ContainsAny(path, "\\\x00") {
		return "", false, fmt.Errorf("path contains forbidden characters")
	}

	canon := path
	if !strings.HasPrefix(canon, "/") {
		canon = "/" + canon
	}
	for strings.Contains(canon, "//") {
		canon = strings.ReplaceAll(canon, "//", "/")
	}
	if len(canon) > 1 && strings.HasSuffix(canon, "/") {
		canon = strings.TrimSuffix(canon, "/")
	}
	return canon, canon != path, nil
}

// =============================================================================
// Development Mode
// =============================================================================

// StartWatcher begins watching the configured paths and pushes reload events
// to connected browsers. It returns immediately; the watcher stops when ctx
// is canceled. A no-op unless live reload is active.
func (a *App) StartWatcher(ctx context.Context) error {
	if a.reload == nil {
		return nil
	}
	if a.watcher != nil {
		return fmt.Errorf("treeline: watcher already started")
	}

	a.watcher = dev.NewWatcher(dev.WatcherConfig{Paths: a.config.Dev.Watch})
	a.watcher.OnChange(func(c dev.Change) {
		switch c.Kind {
		case dev.ChangeStyle:
			a.reload.NotifyCSS(c.Path)
		default:
			a.reload.NotifyReload()
		}
	})
	return a.watcher.Start(ctx)
}

// Reload returns the live-reload server, or nil outside development mode.
// Build tooling uses it to push errors to the browser overlay.
func (a *App) Reload() *dev.ReloadServer {
	return a.reload
}

// =============================================================================
// Static Export
// =============================================================================

// Export statically renders the given paths into store. Each path is matched
// against the route table, grouped by module, and rendered with the engine
// in static mode.
func (a *App) Export(ctx context.Context, store export.Store, paths []string) (*export.Report, error) {
	byModule := make(map[*route][]export.Route)
	var order []*route
	for _, p := range paths {
		path, _, err := canonicalizePath(p)
		if err != nil {
			return nil, fmt.Errorf("treeline: export path %q: %w", p, err)
		}
		rt, params, ok := a.routes.Match(path)
		if !ok {
			return nil, fmt.Errorf("treeline: export path %q matches no route", p)
		}
		if _, seen := byModule[rt]; !seen {
			order = append(order, rt)
		}
		byModule[rt] = append(byModule[rt], export.Route{
			Path:        path,
			Params:      params,
			ForceStatic: rt.forceStatic,
		})
	}

	report := &export.Report{}
	for _, rt := range order {
		ex, err := export.New(export.Config{
			Engine:           a.engine,
			App:              rt.module,
			Store:            store,
			Logger:           a.logger,
			AssetPrefix:      a.config.AssetPrefix,
			Lang:             a.config.Lang,
			PartialPrerender: a.config.Render.PartialPrerender,
		})
		if err != nil {
			return nil, err
		}
		part, err := ex.Export(ctx, byModule[rt])
		if err != nil {
			return nil, err
		}
		report.Pages = append(report.Pages, part.Pages...)
	}
	return report, nil
}

// =============================================================================
// Accessors
// =============================================================================

// Engine returns the underlying render engine for advanced use.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Config returns the app configuration.
func (a *App) Config() Config {
	return a.config
}

// Run starts an HTTP server on addr and blocks until it exits.
func (a *App) Run(addr string) error {
	a.logger.Info("listening", slog.String("addr", addr))
	return http.ListenAndServe(addr, a)
}
