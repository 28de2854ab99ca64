package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/treeline-dev/treeline/pkg/flight"
	"github.com/treeline-dev/treeline/pkg/render"
	"github.com/treeline-dev/treeline/pkg/routetree"
	"github.com/treeline-dev/treeline/pkg/vdom"
)

// recoverDocument handles a failed document render. The cause is classified
// into redirect, not-found, or generic failure, and an error shell is
// re-rendered over a cloned branch of the side channel so the abandoned
// primary attempt never consumes rows the shell still needs. Bailouts are
// re-thrown untouched.
func (e *Engine) recoverDocument(ctx context.Context, rc *RenderContext, app *AppModule, opts RenderOptions, side *flight.DataStream, cause error) (*Result, error) {
	if IsBailout(cause) {
		side.Discard()
		return nil, cause
	}
	if rd, ok := AsRedirect(cause); ok {
		side.Discard()
		return &Result{
			Kind:     ResultRedirect,
			Status:   rd.Status,
			Location: rd.URL,
			Cookies:  rd.Cookies,
			Metadata: rc.Meta,
		}, nil
	}

	notFound := IsNotFound(cause)
	if notFound {
		rc.Status.Set(http.StatusNotFound)
	} else {
		rc.Status.Set(http.StatusInternalServerError)
		rc.Logger.Error("document render failed, recovering",
			slog.String("error", cause.Error()))
	}

	branch, abandoned := side.Tee()
	abandoned.Discard()

	result, err := e.renderRecoveryShell(ctx, rc, app, opts, branch, notFound)
	if err != nil {
		if rc.DevMode && IsNotFound(err) {
			return nil, Bailout("not-found raised inside the recovery shell")
		}
		return nil, err
	}

	if opts.IsStatic {
		return e.finalizeRecovered(ctx, rc, app, result, notFound)
	}
	return result, nil
}

// renderRecoveryShell renders the error document. A not-found with an
// in-tree boundary re-renders the app tree through that boundary, keeping
// the surrounding layouts; everything else (and a boundary render that
// itself fails) falls back to the synthetic one-segment shell.
func (e *Engine) renderRecoveryShell(ctx context.Context, rc *RenderContext, app *AppModule, opts RenderOptions, data *flight.DataStream, notFound bool) (*Result, error) {
	var body *vdom.VNode
	if notFound && hasNotFoundBoundary(app.Tree) {
		asm := &assembler{rc: rc, app: app}
		if rendered, err := asm.assemble(ctx, true); err == nil {
			body = rendered
		}
	}
	if body == nil {
		rendered, err := routetree.RenderSubtree(ctx, e.errorTree(app, notFound), rc.Params, &routetree.WalkOptions{
			Resolve: rc.Resolve,
			Search:  rc.Search(),
		})
		if err != nil {
			return nil, err
		}
		body = rendered
	}

	sr, err := render.RenderDocument(ctx, body, render.StreamConfig{
		Lang:             opts.Lang,
		Nonce:            rc.Nonce,
		Head:             app.Head,
		BootstrapScripts: app.BootstrapScripts,
		OnError:          rc.Captured.Handler(SourceDocument),
	})
	if err != nil {
		return nil, err
	}
	out := sr.Continue(render.ContinueOptions{
		Data:    relayData(data, rc.Captured),
		OnError: rc.Captured.Handler(SourceDocument),
	})
	return &Result{
		Kind:     ResultDocument,
		Status:   rc.Status.Code(),
		HTML:     out,
		Metadata: rc.Meta,
	}, nil
}

// finalizeRecovered materializes a recovered static pass. The payload is
// regenerated for the shell: the primary pump's output described the tree
// that failed.
func (e *Engine) finalizeRecovered(ctx context.Context, rc *RenderContext, app *AppModule, result *Result, notFound bool) (*Result, error) {
	body, err := result.HTML.Materialize()
	if err != nil {
		return nil, err
	}
	if errs := rc.Captured.ComponentErrors(); len(errs) > 0 {
		return nil, fmt.Errorf("engine: static generation failed: %w", errs[0])
	}
	result.Body = body
	result.HTML = nil

	gen := flight.NewGenerator(flight.Options{
		Resolve: rc.Resolve,
		Search:  rc.Search(),
		Query:   rc.Query.Encode(),
		Force:   true,
	})
	entries, err := gen.Generate(ctx, e.errorTree(app, notFound))
	if err != nil {
		return nil, err
	}
	payload, err := flight.EncodePayload(entries)
	if err != nil {
		return nil, err
	}
	result.Payload = payload
	return result, nil
}

// hasNotFoundBoundary reports whether any module in the tree can render
// not-found content.
func hasNotFoundBoundary(tree *routetree.RouteTree) bool {
	if tree == nil {
		return false
	}
	if tree.Module != nil && tree.Module.NotFound != nil {
		return true
	}
	for _, slot := range tree.Slots {
		if hasNotFoundBoundary(slot.Tree) {
			return true
		}
	}
	return false
}
