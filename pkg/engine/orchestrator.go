package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/treeline-dev/treeline/pkg/flight"
	"github.com/treeline-dev/treeline/pkg/render"
	"github.com/treeline-dev/treeline/pkg/routetree"
	"github.com/treeline-dev/treeline/pkg/vdom"
)

// defaultActionBodyLimit bounds action request bodies when no limit is
// configured.
const defaultActionBodyLimit = 1 << 20

// ErrNilApp is returned when Render is called without a loaded app module.
var ErrNilApp = errors.New("engine: nil app module or route tree")

// Config configures an Engine.
type Config struct {
	Logger *slog.Logger

	// Bridge handles server actions. Nil disables action dispatch.
	Bridge ActionBridge

	// DefaultRevalidate is the starting revalidation interval in seconds
	// for renders that never adjust it. Zero means uncacheable.
	DefaultRevalidate int

	// ActionBodyLimit bounds action request bodies in bytes.
	ActionBodyLimit int64
}

// Engine orchestrates renders. One Engine serves many requests.
type Engine struct {
	logger            *slog.Logger
	bridge            ActionBridge
	defaultRevalidate int
	actionBodyLimit   int64
}

// New creates an Engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := cfg.ActionBodyLimit
	if limit <= 0 {
		limit = defaultActionBodyLimit
	}
	return &Engine{
		logger:            logger,
		bridge:            cfg.Bridge,
		defaultRevalidate: cfg.DefaultRevalidate,
		actionBodyLimit:   limit,
	}
}

// RenderOptions carries the per-request knobs the caller resolved before
// handing the request to the engine.
type RenderOptions struct {
	// Path is the canonical request path the tree was matched against.
	Path string

	// Params are the dynamic parameter values extracted during matching.
	Params routetree.Params

	// AssetPrefix is prepended to module asset references.
	AssetPrefix string

	// DevMode enables development-only validation.
	DevMode bool

	// IsStatic marks a build-time static generation pass.
	IsStatic bool

	// PartialPrerender allows dynamic segments to postpone instead of
	// failing a static pass, producing a resumable shell.
	PartialPrerender bool

	// PostponedToken resumes a partial prerender: only the postponed holes
	// render, against the live request.
	PostponedToken string

	// ForceStatic mirrors the route's static override. Explicitly false
	// freezes revalidation at zero.
	ForceStatic *bool

	// Lang is the document language attribute.
	Lang string
}

type payloadOutcome struct {
	entries []flight.PayloadEntry
	err     error
}

// Render runs the full orchestration for one request: mode selection, action
// dispatch, tree assembly, document streaming, and error recovery. w may be
// nil when no action bridge is configured (static generation passes).
func (e *Engine) Render(ctx context.Context, w http.ResponseWriter, r *http.Request, app *AppModule, opts RenderOptions) (*Result, error) {
	if app == nil || app.Tree == nil {
		return nil, ErrNilApp
	}

	rc := e.initContext(r, opts)
	ctx = withRenderContext(ctx, rc)
	rc.Logger.Debug("render start",
		slog.String("path", rc.Path),
		slog.Bool("navigation", rc.Navigation),
		slog.Bool("static", rc.IsStatic))

	// Client navigations need only the payload.
	if rc.Navigation && !rc.IsStatic {
		return e.renderFlight(ctx, rc, app)
	}

	// The payload is needed on every document path, so generation starts
	// before assembly and runs alongside it. Static and resumed renders
	// depend on its result even when the document itself fails.
	side := flight.NewDataStream()
	payloadDone := make(chan payloadOutcome, 1)
	resume := opts.PostponedToken != ""
	shellOnly := opts.IsStatic && opts.PartialPrerender
	go e.pumpPayload(ctx, rc, app, side, payloadDone, shellOnly)

	asNotFound := false
	var formState any
	if e.bridge != nil && w != nil && r != nil && actionable(r.Method) {
		action, err := e.bridge.Dispatch(w, r, e.actionBodyLimit)
		if err != nil {
			return e.recoverDocument(ctx, rc, app, opts, side, err)
		}
		switch action.Outcome {
		case ActionDone:
			side.Discard()
			res := action.Result
			if res.Metadata == nil {
				res.Metadata = rc.Meta
			}
			return res, nil
		case ActionNotFound:
			rc.Status.Set(http.StatusNotFound)
			if !hasNotFoundBoundary(app.Tree) {
				// Without an in-tree boundary the walk would render the
				// original page under a 404 status. The synthetic shell
				// replaces the page content entirely.
				return e.recoverDocument(ctx, rc, app, opts, side, NotFound())
			}
			asNotFound = true
		case ActionFormState:
			formState = action.FormState
		}
	}

	result, err := e.renderDocument(ctx, rc, app, opts, asNotFound, formState, side, resume)
	if err != nil {
		return e.recoverDocument(ctx, rc, app, opts, side, err)
	}
	return e.finalize(rc, opts, result, payloadDone)
}

// initContext builds the per-request render context from the raw request.
func (e *Engine) initContext(r *http.Request, opts RenderOptions) *RenderContext {
	rc := &RenderContext{
		Path:        opts.Path,
		Params:      opts.Params,
		DevMode:     opts.DevMode,
		IsStatic:    opts.IsStatic,
		AssetPrefix: opts.AssetPrefix,
		RequestID:   newRequestID(),
		Status:      &ResponseStatus{},
		Meta:        newMetadata(e.defaultRevalidate),
	}
	if r != nil {
		if rc.Path == "" {
			rc.Path = r.URL.Path
		}
		rc.Query = stripInternalQuery(r.URL.Query())
		rc.Navigation = r.Header.Get(HeaderNavigation) != ""
		rc.Prefetch = r.Header.Get(HeaderPrefetch) != ""
		rc.Provided = parseProvidedState(r.Header.Get(HeaderStateTree))
		rc.Nonce = parseNonce(r.Header.Get("Content-Security-Policy"))
	}
	rc.Resolve = func(seg routetree.Segment) *routetree.DynamicParam {
		return routetree.ResolveSegment(seg, rc.Params, rc.Provided)
	}
	rc.Logger = e.logger.With(slog.String("request_id", rc.RequestID))
	rc.Captured = NewCapturedErrors(rc.Logger)
	if opts.ForceStatic != nil && !*opts.ForceStatic {
		rc.Meta.freezeRevalidate(0)
	}
	return rc
}

// actionable reports whether the method may carry a server action.
func actionable(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// renderFlight serves a payload-only navigation response.
func (e *Engine) renderFlight(ctx context.Context, rc *RenderContext, app *AppModule) (*Result, error) {
	gen := flight.NewGenerator(flight.Options{
		Resolve:     rc.Resolve,
		Search:      rc.Search(),
		Query:       rc.Query.Encode(),
		AssetPrefix: rc.AssetPrefix,
		Provided:    rc.Provided,
		Prefetch:    rc.Prefetch,
		OnError:     e.flightErrorHandler(rc),
	})
	entries, err := gen.Generate(ctx, app.Tree)
	if err != nil {
		if rd, ok := AsRedirect(err); ok {
			return &Result{
				Kind:     ResultRedirect,
				Status:   rd.Status,
				Location: rd.URL,
				Cookies:  rd.Cookies,
				Metadata: rc.Meta,
			}, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
		// Re-render the whole payload through the not-found shell so the
		// navigating client can swap in the 404 view.
		rc.Status.Set(http.StatusNotFound)
		nf := flight.NewGenerator(flight.Options{
			Resolve: rc.Resolve,
			Search:  rc.Search(),
			Query:   rc.Query.Encode(),
			Force:   true,
		})
		entries, err = nf.Generate(ctx, e.errorTree(app, true))
		if err != nil {
			return nil, err
		}
	}
	payload, err := flight.EncodePayload(entries)
	if err != nil {
		return nil, err
	}
	return &Result{
		Kind:     ResultFlight,
		Status:   rc.Status.Code(),
		Payload:  payload,
		Metadata: rc.Meta,
	}, nil
}

// deoptNode is the placeholder a deopted subtree leaves behind for the
// client to render itself.
func deoptNode(reason string) *vdom.VNode {
	return vdom.El("template", vdom.Props{"data-treeline-deopt": reason})
}

// handleDeopt consumes a deopt signal: a warning and a client-render
// placeholder on live renders, a bailout during static generation where no
// client exists to pick the hole up.
func handleDeopt(rc *RenderContext, slot string, err error) (*vdom.VNode, error, bool) {
	var d *DeoptError
	if !errors.As(err, &d) {
		return nil, nil, false
	}
	if rc.IsStatic {
		return nil, Bailout("segment deopted to client rendering: " + d.Reason), true
	}
	rc.Logger.Warn("segment deopted to client rendering",
		slog.String("slot", slot),
		slog.String("reason", d.Reason))
	return deoptNode(d.Reason), nil, true
}

// flightErrorHandler records payload render failures and substitutes a typed
// failure node so one broken segment does not sink the rest of the payload.
// Signals propagate untouched. Outside development the message is masked and
// the request id points at the server log.
func (e *Engine) flightErrorHandler(rc *RenderContext) func(string, error) (*vdom.VNode, error) {
	return func(slot string, err error) (*vdom.VNode, error) {
		if node, derr, ok := handleDeopt(rc, slot, err); ok {
			return node, derr
		}
		if IsSignal(err) {
			return nil, err
		}
		rc.Captured.Capture(SourceFlight, err)
		message := "internal server error"
		if rc.DevMode {
			message = err.Error()
		}
		return vdom.El("template", vdom.Props{
			"data-treeline-error": message,
			"data-treeline-req":   rc.RequestID,
		}), nil
	}
}

// pumpPayload generates the full payload for a document render, feeding rows
// into the side channel as they serialize and reporting the entries (or the
// terminal error) on done.
func (e *Engine) pumpPayload(ctx context.Context, rc *RenderContext, app *AppModule, side *flight.DataStream, done chan<- payloadOutcome, shellOnly bool) {
	gen := flight.NewGenerator(flight.Options{
		Resolve:     rc.Resolve,
		Search:      rc.Search(),
		Query:       rc.Query.Encode(),
		AssetPrefix: rc.AssetPrefix,
		Force:       true,
		Prefetch:    shellOnly,
		OnError:     e.flightErrorHandler(rc),
	})
	entries, err := gen.Generate(ctx, app.Tree)
	if err != nil {
		_ = side.CloseWithError(err)
		done <- payloadOutcome{err: err}
		return
	}
	for _, entry := range entries {
		var buf bytes.Buffer
		if werr := flight.WriteEntry(&buf, entry); werr != nil {
			_ = side.CloseWithError(werr)
			done <- payloadOutcome{err: werr}
			return
		}
		if werr := side.Write(buf.Bytes()); werr != nil {
			done <- payloadOutcome{err: werr}
			return
		}
	}
	_ = side.Close()
	done <- payloadOutcome{entries: entries}
}

// relayData forwards a side-channel branch into a fresh stream, converting a
// terminal error into a captured failure and a clean close. A payload error
// must degrade the inlined data, never the HTML stream around it.
func relayData(in *flight.DataStream, captured *CapturedErrors) *flight.DataStream {
	out := flight.NewDataStream()
	go func() {
		for {
			row, err := in.Next()
			if err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, flight.ErrStreamSealed) {
					captured.Capture(SourceFlight, err)
				}
				_ = out.Close()
				return
			}
			if werr := out.Write(row); werr != nil {
				return
			}
		}
	}()
	return out
}

// renderDocument assembles the component tree and starts the document
// stream, wiring in the side channel.
func (e *Engine) renderDocument(ctx context.Context, rc *RenderContext, app *AppModule, opts RenderOptions, asNotFound bool, formState any, side *flight.DataStream, resume bool) (*Result, error) {
	var postponed *render.PostponedToken
	if resume {
		token, err := render.DecodePostponed(opts.PostponedToken)
		if err != nil {
			return nil, fmt.Errorf("engine: invalid resume token: %w", err)
		}
		postponed = token
	}

	asm := &assembler{
		rc:           rc,
		app:          app,
		deferDynamic: opts.PartialPrerender && (opts.IsStatic || resume),
	}
	body, err := asm.assemble(ctx, asNotFound)
	if err != nil {
		return nil, err
	}

	allowPostpone := opts.PartialPrerender && opts.IsStatic && postponed == nil
	sr, err := render.RenderDocument(ctx, body, render.StreamConfig{
		Lang:             opts.Lang,
		Nonce:            rc.Nonce,
		Head:             app.Head,
		BootstrapScripts: app.BootstrapScripts,
		FormState:        formState,
		AllowPostpone:    allowPostpone,
		Postponed:        postponed,
		OnError:          rc.Captured.Handler(SourceDocument),
	})
	if err != nil {
		return nil, err
	}

	var out *render.HTMLStream
	if allowPostpone {
		// A postponed shell is surfaced as-is. The payload is attached to
		// the result for the export to store; inlining it into a body the
		// resume pass will finish would duplicate it.
		side.Discard()
		out = sr.Stream
	} else {
		out = sr.Continue(render.ContinueOptions{
			Data:               relayData(side, rc.Captured),
			ExtraHead:          rc.ExtraHead,
			ValidateRootLayout: opts.DevMode && !resume,
			OnError:            rc.Captured.Handler(SourceDocument),
		})
	}

	result := &Result{
		Kind:     ResultDocument,
		Status:   rc.Status.Code(),
		HTML:     out,
		Metadata: rc.Meta,
	}
	if allowPostpone {
		// The token is read in finalize, after the stream drains; waiting
		// here would deadlock against the unconsumed output buffer.
		result.shell = sr
	}
	return result, nil
}

// finalize resolves metadata and, for static passes, materializes the stream
// and fails the pass when any segment renderer errored.
func (e *Engine) finalize(rc *RenderContext, opts RenderOptions, result *Result, payloadDone <-chan payloadOutcome) (*Result, error) {
	if !opts.IsStatic {
		return result, nil
	}

	body, err := result.HTML.Materialize()
	if err != nil {
		return nil, err
	}
	if errs := rc.Captured.ComponentErrors(); len(errs) > 0 {
		return nil, fmt.Errorf("engine: static generation failed: %w", errs[0])
	}
	result.Body = body
	result.HTML = nil

	if result.shell != nil {
		if token := result.shell.Postponed(); token != nil {
			encoded, terr := token.Encode()
			if terr != nil {
				return nil, terr
			}
			result.PostponedToken = encoded
		}
		result.shell = nil
	}

	outcome := <-payloadDone
	if outcome.err != nil {
		return nil, outcome.err
	}
	payload, err := flight.EncodePayload(outcome.entries)
	if err != nil {
		return nil, err
	}
	result.Payload = payload

	if rc.Meta.Revalidate() == 0 && rc.Meta.Bailout == nil {
		rc.Meta.setBailout("revalidation resolved to zero during static generation", nil)
	}
	return result, nil
}

// errorTree builds the synthetic one-segment tree used when the app's own
// tree cannot render: the not-found or global error shell.
func (e *Engine) errorTree(app *AppModule, notFound bool) *routetree.RouteTree {
	renderer := app.GlobalError
	if notFound && app.NotFound != nil {
		renderer = app.NotFound
	}
	if renderer == nil {
		renderer = defaultShell(notFound)
	}
	name := "error"
	if notFound {
		name = "not-found"
	}
	return &routetree.RouteTree{
		Segment: routetree.Literal(""),
		Module: &routetree.SegmentModule{
			Name:   name,
			Render: renderer,
			IsPage: true,
		},
	}
}

// defaultShell is the last-resort document body when the app supplies no
// error boundaries of its own.
func defaultShell(notFound bool) routetree.SegmentRenderer {
	message := "Internal Server Error"
	if notFound {
		message = "Not Found"
	}
	return func(ctx context.Context, props routetree.RenderProps) (*vdom.VNode, error) {
		return vdom.El("h1", nil, vdom.Text(message)), nil
	}
}
