package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/treeline-dev/treeline/internal/errors"
	"github.com/treeline-dev/treeline/pkg/engine"
	"github.com/treeline-dev/treeline/pkg/middleware"
	"github.com/treeline-dev/treeline/pkg/routetree"
)

const defaultConcurrency = 4

// Route names one path to export along with the dynamic parameter values
// that realize it.
type Route struct {
	Path   string
	Params routetree.Params

	// ForceStatic mirrors the route's static override.
	ForceStatic *bool
}

// Page describes one exported route.
type Page struct {
	// Path is the route path the page was rendered from.
	Path string

	// Document and Payload are the store keys the page was written under.
	Document string
	Payload  string

	// Status is the HTTP status the page would have served with.
	Status int

	// Revalidate is the resolved revalidation interval in seconds.
	// Zero means the page never revalidates.
	Revalidate int

	// CacheTags are the tags renderers attached for targeted invalidation.
	CacheTags []string

	// Postponed reports whether the page carries a resumable shell that
	// needs a live render to complete.
	Postponed bool
}

// Report summarizes a finished export.
type Report struct {
	Pages []Page
}

// Config configures an Exporter.
type Config struct {
	// Engine drives the static render passes.
	Engine *engine.Engine

	// App is the application to export.
	App *engine.AppModule

	// Store receives the exported files.
	Store Store

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// AssetPrefix is prepended to module asset references.
	AssetPrefix string

	// Lang is the document language attribute.
	Lang string

	// PartialPrerender lets dynamic routes export a resumable shell
	// instead of failing the pass.
	PartialPrerender bool

	// Concurrency bounds parallel renders (default 4).
	Concurrency int
}

// Exporter renders routes statically and writes them to a store.
type Exporter struct {
	engine           *engine.Engine
	app              *engine.AppModule
	store            Store
	logger           *slog.Logger
	assetPrefix      string
	lang             string
	partialPrerender bool
	concurrency      int
}

// New validates cfg and creates an Exporter.
func New(cfg Config) (*Exporter, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("export: Engine is required")
	}
	if cfg.App == nil {
		return nil, fmt.Errorf("export: App is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("export: Store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Exporter{
		engine:           cfg.Engine,
		app:              cfg.App,
		store:            cfg.Store,
		logger:           logger,
		assetPrefix:      cfg.AssetPrefix,
		lang:             cfg.Lang,
		partialPrerender: cfg.PartialPrerender,
		concurrency:      concurrency,
	}, nil
}

// Export renders every route and writes the results to the store. The first
// failure cancels the remaining renders and is returned.
func (ex *Exporter) Export(ctx context.Context, routes []Route) (*Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		pages    []Page
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	sem := make(chan struct{}, ex.concurrency)
	var wg sync.WaitGroup
	for _, route := range routes {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(route Route) {
			defer wg.Done()
			defer func() { <-sem }()

			page, err := ex.exportRoute(ctx, route)
			if err != nil {
				fail(err)
				return
			}
			mu.Lock()
			pages = append(pages, *page)
			mu.Unlock()
		}(route)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Path < pages[j].Path })
	return &Report{Pages: pages}, nil
}

func (ex *Exporter) exportRoute(ctx context.Context, route Route) (*Page, error) {
	res, err := ex.engine.Render(ctx, nil, nil, ex.app, engine.RenderOptions{
		Path:             route.Path,
		Params:           route.Params,
		AssetPrefix:      ex.assetPrefix,
		IsStatic:         true,
		PartialPrerender: ex.partialPrerender,
		ForceStatic:      route.ForceStatic,
		Lang:             ex.lang,
	})
	if err != nil {
		if engine.IsBailout(err) {
			return nil, errors.FromError(err, "T3002").
				WithDetail(fmt.Sprintf("Route %s depends on request data and bailed out of static generation. Exclude it from the export or enable partial prerendering.", route.Path))
		}
		return nil, fmt.Errorf("export: render %s: %w", route.Path, err)
	}

	base := routeKey(route.Path)
	page := &Page{
		Path:       route.Path,
		Document:   base + ".html",
		Payload:    base + ".txt",
		Status:     res.Status,
		Revalidate: res.Metadata.Revalidate(),
		CacheTags:  res.Metadata.CacheTags(),
		Postponed:  res.PostponedToken != "",
	}

	if err := ex.put(ctx, page.Document, "text/html; charset=utf-8", []byte(res.Body)); err != nil {
		return nil, err
	}
	if err := ex.put(ctx, page.Payload, engine.FlightContentType, []byte(res.Payload)); err != nil {
		return nil, err
	}
	if meta := pageMeta(res, page); meta != nil {
		if err := ex.put(ctx, base+".meta.json", "application/json", meta); err != nil {
			return nil, err
		}
	}

	middleware.RecordExport(int64(len(res.Body)))
	ex.logger.Info("exported route",
		slog.String("path", route.Path),
		slog.String("key", page.Document),
		slog.Int("status", page.Status),
		slog.Bool("postponed", page.Postponed))
	return page, nil
}

func (ex *Exporter) put(ctx context.Context, key, contentType string, body []byte) error {
	if err := ex.store.Put(ctx, key, contentType, body); err != nil {
		return errors.FromError(err, "T3001")
	}
	return nil
}

// pageMeta serializes serve-time metadata: the resume token for postponed
// shells, the revalidation interval, and cache tags. Returns nil when no
// metadata needs storing.
func pageMeta(res *engine.Result, page *Page) []byte {
	if res.PostponedToken == "" && page.Revalidate == 0 && len(page.CacheTags) == 0 && page.Status == 200 {
		return nil
	}
	meta := struct {
		Status     int      `json:"status,omitempty"`
		Revalidate int      `json:"revalidate,omitempty"`
		CacheTags  []string `json:"cacheTags,omitempty"`
		Postponed  string   `json:"postponed,omitempty"`
	}{
		Status:     page.Status,
		Revalidate: page.Revalidate,
		CacheTags:  page.CacheTags,
		Postponed:  res.PostponedToken,
	}
	out, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	return out
}

// routeKey maps a route path to the store key base: "/" becomes "index",
// "/blog/hello" becomes "blog/hello".
func routeKey(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "index"
	}
	return trimmed
}
