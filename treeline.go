// Package treeline provides the public API for the Treeline rendering
// framework.
//
// This is the recommended import for most applications:
//
//	import "github.com/treeline-dev/treeline"
//
// An application mounts route trees on an App and serves it as a standard
// http.Handler:
//
//	app := treeline.New(treeline.Config{DevMode: true})
//	app.Route("/blog/[slug]", blogModule)
//	http.ListenAndServe(":3000", app)
//
// Renderers signal control flow by returning errors:
//
//	func accountPage(ctx context.Context, props treeline.RenderProps) (*treeline.VNode, error) {
//	    if !loggedIn(ctx) {
//	        return nil, treeline.Redirect("/login")
//	    }
//	    ...
//	}
package treeline

import (
	"github.com/treeline-dev/treeline/pkg/engine"
	"github.com/treeline-dev/treeline/pkg/routetree"
	"github.com/treeline-dev/treeline/pkg/vdom"
)

// =============================================================================
// Tree building (re-export from pkg/routetree and pkg/vdom)
// =============================================================================

// VNode is the immutable render-tree node produced by renderers.
type VNode = vdom.VNode

// Props holds element attributes.
type Props = vdom.Props

// RenderProps carries a segment's inputs: slot children, params, and search
// access.
type RenderProps = routetree.RenderProps

// RouteTree is one segment of an application's route hierarchy.
type RouteTree = routetree.RouteTree

// SlotEntry names a child subtree of a layout segment.
type SlotEntry = routetree.SlotEntry

// SegmentModule provides a segment's rendering behavior and metadata.
type SegmentModule = routetree.SegmentModule

// SegmentRenderer produces a segment's content.
type SegmentRenderer = routetree.SegmentRenderer

// Params maps route parameter names to raw values.
type Params = routetree.Params

// ParamValue is the raw value of one route parameter.
type ParamValue = routetree.ParamValue

// DefaultSlot is the slot name layout children mount under.
const DefaultSlot = routetree.DefaultSlot

// Element and text constructors.
var (
	El       = vdom.El
	Text     = vdom.Text
	Textf    = vdom.Textf
	Raw      = vdom.Raw
	Fragment = vdom.Fragment
)

// Segment constructors.
var (
	Literal          = routetree.Literal
	Dynamic          = routetree.Dynamic
	CatchAll         = routetree.CatchAll
	OptionalCatchAll = routetree.OptionalCatchAll
	SingleValue      = routetree.SingleValue
	MultiValue       = routetree.MultiValue
)

// =============================================================================
// Orchestration (re-export from pkg/engine)
// =============================================================================

// AppModule bundles a route tree with its application-level boundaries.
type AppModule = engine.AppModule

// ActionBridge dispatches mutation requests before document rendering.
type ActionBridge = engine.ActionBridge

// ActionResult is the outcome of one action dispatch.
type ActionResult = engine.ActionResult

// RenderContext is the per-request state renderers can reach through their
// context.
type RenderContext = engine.RenderContext

// FromContext returns the RenderContext stored on ctx, or nil outside a
// render.
var FromContext = engine.FromContext

// Control-flow signals.
var (
	NotFound          = engine.NotFound
	Redirect          = engine.Redirect
	PermanentRedirect = engine.PermanentRedirect
	Bailout           = engine.Bailout
	Deopt             = engine.Deopt
	IsNotFound        = engine.IsNotFound
	IsBailout         = engine.IsBailout
	IsDeopt           = engine.IsDeopt
)
