package routetree

import (
	"context"
	"net/url"

	"github.com/treeline-dev/treeline/pkg/vdom"
)

// DefaultSlot is the reserved name of a node's primary child position.
const DefaultSlot = "children"

// RouteTree is one node of the hierarchical route description supplied by
// the module loader. The tree is immutable for the duration of a request:
// the engine borrows it, it never mutates it.
type RouteTree struct {
	// Segment identifies the path component this node matches.
	Segment Segment

	// Slots are the named parallel sub-trees, in declaration order. Names
	// are unique within a node; DefaultSlot is the primary child.
	Slots []SlotEntry

	// Module provides the node's rendering behavior and metadata.
	Module *SegmentModule
}

// SlotEntry pairs a parallel slot name with its sub-tree.
type SlotEntry struct {
	Name string
	Tree *RouteTree
}

// Slot returns the sub-tree for the named slot, or nil.
func (t *RouteTree) Slot(name string) *RouteTree {
	for _, e := range t.Slots {
		if e.Name == name {
			return e.Tree
		}
	}
	return nil
}

// Primary returns the default slot's sub-tree, or nil.
func (t *RouteTree) Primary() *RouteTree {
	return t.Slot(DefaultSlot)
}

// IsLeaf reports whether the node has no sub-trees (a page, not a layout).
func (t *RouteTree) IsLeaf() bool {
	return len(t.Slots) == 0
}

// SearchParams yields the request's search parameters. During static
// generation the accessor may instead return an error that bails the render
// out of static generation; callers must propagate it.
type SearchParams func() (url.Values, error)

// RenderProps carries everything a segment renderer receives.
type RenderProps struct {
	// Params is the accumulated parameter mapping, including every dynamic
	// segment resolved on the path from the root to this node.
	Params Params

	// Search is the search parameter accessor.
	Search SearchParams

	// Children is the rendered content of the default slot, nil for pages.
	Children *vdom.VNode

	// Slots is the rendered content of every parallel slot by name.
	Slots map[string]*vdom.VNode
}

// SegmentRenderer renders one segment's module to a renderable tree.
type SegmentRenderer func(ctx context.Context, props RenderProps) (*vdom.VNode, error)

// SegmentModule provides a segment's rendering behavior and metadata. Owned
// by the module loader, borrowed by the engine.
type SegmentModule struct {
	// Name identifies the module in logs and diagnostics.
	Name string

	// Render produces the segment's content. A nil Render passes the default
	// slot's content through unchanged.
	Render SegmentRenderer

	// NotFound is the segment's not-found boundary, if any.
	NotFound SegmentRenderer

	// Head produces head content injected for this segment's branch.
	Head SegmentRenderer

	// IsPage marks leaf (page) modules as opposed to layouts.
	IsPage bool

	// Dynamic marks modules whose output depends on request data. Under
	// partial prerendering these render as deferred holes.
	Dynamic bool

	// Stylesheets and Scripts are asset references this segment injects.
	// Ancestors' references are deduplicated during assembly.
	Stylesheets []string
	Scripts     []string
}
