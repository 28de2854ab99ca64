package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/treeline-dev/treeline/pkg/routetree"
	"github.com/treeline-dev/treeline/pkg/vdom"
)

func textPage(text string) routetree.SegmentRenderer {
	return func(ctx context.Context, props routetree.RenderProps) (*vdom.VNode, error) {
		return vdom.El("main", nil, vdom.Text(text)), nil
	}
}

func failingPage(err error) routetree.SegmentRenderer {
	return func(ctx context.Context, props routetree.RenderProps) (*vdom.VNode, error) {
		return nil, err
	}
}

// testApp builds a root layout with one page slot under it.
func testApp(page *routetree.SegmentModule, notFound routetree.SegmentRenderer) *AppModule {
	layout := func(ctx context.Context, props routetree.RenderProps) (*vdom.VNode, error) {
		return vdom.El("div", vdom.Props{"id": "layout"}, props.Children), nil
	}
	tree := &routetree.RouteTree{
		Segment: routetree.Literal(""),
		Module: &routetree.SegmentModule{
			Name:     "root-layout",
			Render:   layout,
			NotFound: notFound,
		},
		Slots: []routetree.SlotEntry{{
			Name: routetree.DefaultSlot,
			Tree: &routetree.RouteTree{
				Segment: routetree.Literal("home"),
				Module:  page,
			},
		}},
	}
	return &AppModule{Tree: tree}
}

func pageModule(render routetree.SegmentRenderer) *routetree.SegmentModule {
	return &routetree.SegmentModule{Name: "home", Render: render, IsPage: true}
}

func materialize(t *testing.T, res *Result) string {
	t.Helper()
	if res.HTML == nil {
		return res.Body
	}
	body, err := res.HTML.Materialize()
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	return body
}

func TestRenderDocumentBasic(t *testing.T) {
	e := New(Config{})
	app := testApp(pageModule(textPage("hello")), nil)
	req := httptest.NewRequest(http.MethodGet, "/home", nil)

	res, err := e.Render(context.Background(), nil, req, app, RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Kind != ResultDocument {
		t.Fatalf("kind = %d, want document", res.Kind)
	}
	if res.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Status)
	}

	body := materialize(t, res)
	for _, want := range []string{
		"<!DOCTYPE html>",
		`<div id="layout"><main>hello</main></div>`,
		"self.__treeline_f.push(",
		"</body></html>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("document missing %q:\n%s", want, body)
		}
	}
	// Payload rows must land inside the body.
	if strings.Index(body, "self.__treeline_f.push(") > strings.Index(body, "</body>") {
		t.Error("payload row inlined after closing body tag")
	}
}

func TestRenderFlightNavigation(t *testing.T) {
	e := New(Config{})
	app := testApp(pageModule(textPage("hello")), nil)
	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	req.Header.Set(HeaderNavigation, "1")

	res, err := e.Render(context.Background(), nil, req, app, RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Kind != ResultFlight {
		t.Fatalf("kind = %d, want flight", res.Kind)
	}
	if res.HTML != nil {
		t.Error("flight result carries an HTML stream")
	}
	if !strings.Contains(res.Payload, "hello") {
		t.Errorf("payload missing rendered content: %s", res.Payload)
	}
}

func TestRenderNotFoundRecovery(t *testing.T) {
	notFound := func(ctx context.Context, props routetree.RenderProps) (*vdom.VNode, error) {
		return vdom.El("h1", nil, vdom.Text("missing page")), nil
	}
	e := New(Config{})
	app := testApp(pageModule(failingPage(NotFound())), notFound)
	req := httptest.NewRequest(http.MethodGet, "/home", nil)

	res, err := e.Render(context.Background(), nil, req, app, RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.Status)
	}
	body := materialize(t, res)
	if !strings.Contains(body, "missing page") {
		t.Errorf("document missing boundary content:\n%s", body)
	}
	if !strings.Contains(body, `id="layout"`) {
		t.Errorf("boundary render lost surrounding layout:\n%s", body)
	}
}

func TestRenderNotFoundWithoutBoundary(t *testing.T) {
	e := New(Config{})
	app := testApp(pageModule(failingPage(NotFound())), nil)
	req := httptest.NewRequest(http.MethodGet, "/home", nil)

	res, err := e.Render(context.Background(), nil, req, app, RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.Status)
	}
	if body := materialize(t, res); !strings.Contains(body, "Not Found") {
		t.Errorf("document missing default shell:\n%s", body)
	}
}

func TestRenderRedirectRecovery(t *testing.T) {
	signal := &RedirectError{
		URL:     "/login",
		Status:  http.StatusTemporaryRedirect,
		Cookies: []*http.Cookie{{Name: "session", Value: "expired"}},
	}
	e := New(Config{})
	app := testApp(pageModule(failingPage(signal)), nil)
	req := httptest.NewRequest(http.MethodGet, "/home", nil)

	res, err := e.Render(context.Background(), nil, req, app, RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Kind != ResultRedirect {
		t.Fatalf("kind = %d, want redirect", res.Kind)
	}
	if res.Status != http.StatusTemporaryRedirect || res.Location != "/login" {
		t.Fatalf("got %d %q, want 307 /login", res.Status, res.Location)
	}

	rec := httptest.NewRecorder()
	if err := res.WriteTo(rec); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if got := rec.Header().Get("Location"); got != "/login" {
		t.Errorf("Location = %q", got)
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), "session=expired") {
		t.Errorf("Set-Cookie = %q", rec.Header().Get("Set-Cookie"))
	}
}

func TestRenderGenericErrorRecovery(t *testing.T) {
	e := New(Config{})
	app := testApp(pageModule(failingPage(errors.New("database down"))), nil)
	req := httptest.NewRequest(http.MethodGet, "/home", nil)

	res, err := e.Render(context.Background(), nil, req, app, RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Status != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", res.Status)
	}
	body := materialize(t, res)
	if !strings.Contains(body, "Internal Server Error") {
		t.Errorf("document missing error shell:\n%s", body)
	}
	if strings.Contains(body, "database down") {
		t.Error("error detail leaked into the document")
	}
}

type stubBridge struct {
	result *ActionResult
	err    error
}

func (b *stubBridge) Dispatch(w http.ResponseWriter, r *http.Request, limit int64) (*ActionResult, error) {
	return b.result, b.err
}

func TestActionNotFound(t *testing.T) {
	notFound := func(ctx context.Context, props routetree.RenderProps) (*vdom.VNode, error) {
		return vdom.El("h1", nil, vdom.Text("no such thing")), nil
	}
	e := New(Config{Bridge: &stubBridge{result: &ActionResult{Outcome: ActionNotFound}}})
	app := testApp(pageModule(textPage("hello")), notFound)
	req := httptest.NewRequest(http.MethodPost, "/home", strings.NewReader("a=1"))

	res, err := e.Render(context.Background(), httptest.NewRecorder(), req, app, RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.Status)
	}
	if body := materialize(t, res); !strings.Contains(body, "no such thing") {
		t.Errorf("document missing not-found content:\n%s", body)
	}
}

func TestActionNotFoundWithoutBoundary(t *testing.T) {
	e := New(Config{Bridge: &stubBridge{result: &ActionResult{Outcome: ActionNotFound}}})
	app := testApp(pageModule(textPage("secret original content")), nil)
	req := httptest.NewRequest(http.MethodPost, "/home", strings.NewReader("a=1"))

	res, err := e.Render(context.Background(), httptest.NewRecorder(), req, app, RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.Status)
	}
	body := materialize(t, res)
	if strings.Contains(body, "secret original content") {
		t.Errorf("404 body leaked the page content:\n%s", body)
	}
	if !strings.Contains(body, "Not Found") {
		t.Errorf("404 body missing the default shell:\n%s", body)
	}
}

func TestActionFormState(t *testing.T) {
	e := New(Config{Bridge: &stubBridge{result: &ActionResult{
		Outcome:   ActionFormState,
		FormState: map[string]any{"saved": true},
	}}})
	app := testApp(pageModule(textPage("hello")), nil)
	req := httptest.NewRequest(http.MethodPost, "/home", strings.NewReader("a=1"))

	res, err := e.Render(context.Background(), httptest.NewRecorder(), req, app, RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	body := materialize(t, res)
	if !strings.Contains(body, "self.__treeline_fs") || !strings.Contains(body, "saved") {
		t.Errorf("document missing form state:\n%s", body)
	}
}

func TestActionDone(t *testing.T) {
	done := &Result{Kind: ResultAction, Status: http.StatusOK, Body: "ok"}
	e := New(Config{Bridge: &stubBridge{result: &ActionResult{Outcome: ActionDone, Result: done}}})
	app := testApp(pageModule(textPage("hello")), nil)
	req := httptest.NewRequest(http.MethodPost, "/home", strings.NewReader("a=1"))

	res, err := e.Render(context.Background(), httptest.NewRecorder(), req, app, RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res != done {
		t.Error("bridge result not returned as-is")
	}
	if res.Metadata == nil {
		t.Error("bridge result missing metadata")
	}
}

func TestStaticGeneration(t *testing.T) {
	e := New(Config{DefaultRevalidate: 300})
	app := testApp(pageModule(textPage("built")), nil)
	req := httptest.NewRequest(http.MethodGet, "/home", nil)

	res, err := e.Render(context.Background(), nil, req, app, RenderOptions{IsStatic: true})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.HTML != nil {
		t.Error("static result should be materialized")
	}
	if !strings.Contains(res.Body, "built") {
		t.Errorf("static body missing content:\n%s", res.Body)
	}
	if !strings.Contains(res.Payload, "built") {
		t.Errorf("static payload missing content: %s", res.Payload)
	}
	if got := res.Metadata.Revalidate(); got != 300 {
		t.Errorf("revalidate = %d, want 300", got)
	}
}

func TestStaticGenerationFailsOnComponentError(t *testing.T) {
	e := New(Config{})
	app := testApp(pageModule(failingPage(errors.New("boom"))), nil)
	req := httptest.NewRequest(http.MethodGet, "/home", nil)

	_, err := e.Render(context.Background(), nil, req, app, RenderOptions{IsStatic: true})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("err = %v, want wrapped component error", err)
	}
}

func TestStaticGenerationBailout(t *testing.T) {
	page := func(ctx context.Context, props routetree.RenderProps) (*vdom.VNode, error) {
		if _, err := props.Search(); err != nil {
			return nil, err
		}
		return vdom.El("main", nil, vdom.Text("dynamic")), nil
	}
	e := New(Config{})
	app := testApp(pageModule(page), nil)
	req := httptest.NewRequest(http.MethodGet, "/home?q=1", nil)

	_, err := e.Render(context.Background(), nil, req, app, RenderOptions{IsStatic: true})
	if !IsBailout(err) {
		t.Fatalf("err = %v, want static generation bailout", err)
	}
}

func TestRenderDocumentDeoptContinues(t *testing.T) {
	e := New(Config{})
	app := testApp(pageModule(failingPage(Deopt("client only"))), nil)
	req := httptest.NewRequest(http.MethodGet, "/home", nil)

	res, err := e.Render(context.Background(), nil, req, app, RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Status)
	}
	body := materialize(t, res)
	if !strings.Contains(body, `id="layout"`) {
		t.Errorf("surrounding layout dropped around deopted segment:\n%s", body)
	}
	if !strings.Contains(body, "data-treeline-deopt") {
		t.Errorf("missing client-render placeholder:\n%s", body)
	}
}

func TestRenderFlightDeoptContinues(t *testing.T) {
	e := New(Config{})
	app := testApp(pageModule(failingPage(Deopt("client only"))), nil)
	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	req.Header.Set(HeaderNavigation, "1")

	res, err := e.Render(context.Background(), nil, req, app, RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Status)
	}
	if !strings.Contains(res.Payload, "data-treeline-deopt") {
		t.Errorf("payload missing client-render placeholder: %s", res.Payload)
	}
}

func TestStaticDeoptBailsOut(t *testing.T) {
	e := New(Config{})
	app := testApp(pageModule(failingPage(Deopt("client only"))), nil)
	req := httptest.NewRequest(http.MethodGet, "/home", nil)

	_, err := e.Render(context.Background(), nil, req, app, RenderOptions{IsStatic: true})
	if !IsBailout(err) {
		t.Fatalf("err = %v, want bailout", err)
	}
}

func TestStaticNotFoundStillBuilds(t *testing.T) {
	notFound := func(ctx context.Context, props routetree.RenderProps) (*vdom.VNode, error) {
		return vdom.El("h1", nil, vdom.Text("gone")), nil
	}
	e := New(Config{})
	app := testApp(pageModule(failingPage(NotFound())), notFound)
	req := httptest.NewRequest(http.MethodGet, "/home", nil)

	res, err := e.Render(context.Background(), nil, req, app, RenderOptions{IsStatic: true})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.Status)
	}
	if !strings.Contains(res.Body, "gone") {
		t.Errorf("static 404 body missing boundary content:\n%s", res.Body)
	}
}

func TestPartialPrerender(t *testing.T) {
	var ran atomic.Int32
	dynamic := &routetree.SegmentModule{
		Name:    "home",
		IsPage:  true,
		Dynamic: true,
		Render: func(ctx context.Context, props routetree.RenderProps) (*vdom.VNode, error) {
			ran.Add(1)
			q, err := props.Search()
			if err != nil {
				return nil, err
			}
			return vdom.El("main", nil, vdom.Text("user "+q.Get("user"))), nil
		},
	}
	e := New(Config{})
	app := testApp(dynamic, nil)

	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	shell, err := e.Render(context.Background(), nil, req, app, RenderOptions{
		IsStatic:         true,
		PartialPrerender: true,
	})
	if err != nil {
		t.Fatalf("prerender: %v", err)
	}
	if shell.PostponedToken == "" {
		t.Fatal("prerender produced no resume token")
	}
	if !strings.Contains(shell.Body, "data-treeline-hole") {
		t.Errorf("shell missing hole placeholder:\n%s", shell.Body)
	}
	if strings.Contains(shell.Body, "__treeline_f.push") {
		t.Errorf("shell inlined payload rows; the payload travels separately:\n%s", shell.Body)
	}
	if got := ran.Load(); got != 0 {
		t.Fatalf("dynamic renderer ran %d times during prerender", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/home?user=ada", nil)
	resumed, err := e.Render(context.Background(), nil, req, app, RenderOptions{
		PartialPrerender: true,
		PostponedToken:   shell.PostponedToken,
	})
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	body := materialize(t, resumed)
	if !strings.Contains(body, "data-treeline-resume") {
		t.Errorf("resume output missing resume markers:\n%s", body)
	}
	if !strings.Contains(body, "user ada") {
		t.Errorf("resume output missing dynamic content:\n%s", body)
	}
	if strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("resume re-sent the static shell")
	}
}

func TestForceStaticFalseFreezesRevalidate(t *testing.T) {
	page := func(ctx context.Context, props routetree.RenderProps) (*vdom.VNode, error) {
		FromContext(ctx).Meta.SetRevalidate(60)
		return vdom.El("main", nil, vdom.Text("hello")), nil
	}
	forceStatic := false
	e := New(Config{DefaultRevalidate: 300})
	app := testApp(pageModule(page), nil)
	req := httptest.NewRequest(http.MethodGet, "/home", nil)

	res, err := e.Render(context.Background(), nil, req, app, RenderOptions{ForceStatic: &forceStatic})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	materialize(t, res)
	if got := res.Metadata.Revalidate(); got != 0 {
		t.Errorf("revalidate = %d, want frozen 0", got)
	}
}

func TestRenderFlightNotFound(t *testing.T) {
	e := New(Config{})
	app := testApp(pageModule(failingPage(NotFound())), nil)
	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	req.Header.Set(HeaderNavigation, "1")

	res, err := e.Render(context.Background(), nil, req, app, RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Kind != ResultFlight {
		t.Fatalf("kind = %d, want flight", res.Kind)
	}
	if res.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.Status)
	}
	if !strings.Contains(res.Payload, "Not Found") {
		t.Errorf("payload missing not-found shell: %s", res.Payload)
	}
}

func TestRenderFlightRedirect(t *testing.T) {
	e := New(Config{})
	app := testApp(pageModule(failingPage(Redirect("/login"))), nil)
	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	req.Header.Set(HeaderNavigation, "1")

	res, err := e.Render(context.Background(), nil, req, app, RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Kind != ResultRedirect || res.Location != "/login" {
		t.Fatalf("got kind %d location %q, want redirect to /login", res.Kind, res.Location)
	}
}
