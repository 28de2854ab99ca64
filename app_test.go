package treeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/treeline-dev/treeline/pkg/engine"
)

func layoutModule(pageName, pageText string) *AppModule {
	layout := func(ctx context.Context, props RenderProps) (*VNode, error) {
		return El("div", Props{"id": "shell"}, props.Children), nil
	}
	page := func(ctx context.Context, props RenderProps) (*VNode, error) {
		return El("main", nil, Text(pageText)), nil
	}
	return &AppModule{Tree: &RouteTree{
		Segment: Literal(""),
		Module:  &SegmentModule{Name: "root-layout", Render: layout},
		Slots: []SlotEntry{{
			Name: DefaultSlot,
			Tree: &RouteTree{
				Segment: Literal(pageName),
				Module:  &SegmentModule{Name: pageName, Render: page, IsPage: true},
			},
		}},
	}}
}

func TestAppServesDocument(t *testing.T) {
	app := New(Config{})
	app.MustRoute("/home", layoutModule("home", "welcome"))

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/home", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content type = %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{"<!DOCTYPE html>", `<div id="shell">`, "welcome"} {
		if !strings.Contains(body, want) {
			t.Errorf("document missing %q", want)
		}
	}
}

func TestAppServesNavigationPayload(t *testing.T) {
	app := New(Config{})
	app.MustRoute("/home", layoutModule("home", "welcome"))

	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	req.Header.Set(engine.HeaderNavigation, "1")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != engine.FlightContentType {
		t.Fatalf("content type = %q, want %q", ct, engine.FlightContentType)
	}
	if !strings.Contains(rec.Body.String(), "welcome") {
		t.Error("payload missing page content")
	}
}

func TestAppRedirectsNonCanonicalPaths(t *testing.T) {
	app := New(Config{})
	app.MustRoute("/home", layoutModule("home", "welcome"))

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/home/?q=1", nil))

	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("status = %d, want 301", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/home?q=1" {
		t.Fatalf("location = %q", loc)
	}
}

func TestAppNotFoundForUnmatchedPath(t *testing.T) {
	app := New(Config{})
	app.MustRoute("/home", layoutModule("home", "welcome"))

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestAppServesStaticFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "app.css"), []byte("body{}"), 0644); err != nil {
		t.Fatal(err)
	}

	app := New(Config{Static: StaticConfig{Dir: dir, Prefix: "/static/"}})
	app.MustRoute("/home", layoutModule("home", "welcome"))

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "body{}" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestAppDevModeServesReloadScript(t *testing.T) {
	app := New(Config{DevMode: true, Dev: DevConfig{LiveReload: true}})
	module := layoutModule("home", "welcome")
	app.MustRoute("/home", module)

	if !containsScript(module.BootstrapScripts, devScriptPath) {
		t.Fatal("expected dev script in bootstrap scripts")
	}

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, devScriptPath, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "WebSocket") {
		t.Error("reload client script looks wrong")
	}
}

func TestAppProdModeSkipsReloadScript(t *testing.T) {
	app := New(Config{DevMode: false, Dev: DevConfig{LiveReload: true}})
	module := layoutModule("home", "welcome")
	app.MustRoute("/home", module)

	if containsScript(module.BootstrapScripts, devScriptPath) {
		t.Fatal("dev script injected outside development mode")
	}
}

func TestAppExport(t *testing.T) {
	app := New(Config{})
	app.MustRoute("/home", layoutModule("home", "welcome"))

	store := &memStore{files: map[string][]byte{}}
	report, err := app.Export(context.Background(), store, []string{"/home"})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(report.Pages) != 1 || report.Pages[0].Document != "home.html" {
		t.Fatalf("report = %+v", report)
	}
	if !strings.Contains(string(store.files["home.html"]), "welcome") {
		t.Error("exported document missing content")
	}
}

func TestAppExportUnmatchedPathFails(t *testing.T) {
	app := New(Config{})
	app.MustRoute("/home", layoutModule("home", "welcome"))

	_, err := app.Export(context.Background(), &memStore{files: map[string][]byte{}}, []string{"/missing"})
	if err == nil {
		t.Fatal("expected export of unmatched path to fail")
	}
}

type memStore struct {
	files map[string][]byte
}

func (s *memStore) Put(_ context.Context, key, _ string, body []byte) error {
	s.files[key] = append([]byte(nil), body...)
	return nil
}
