package flight

import (
	"context"

	"github.com/treeline-dev/treeline/pkg/routetree"
	"github.com/treeline-dev/treeline/pkg/vdom"
)

// PayloadEntry is one path-addressed subtree update: where it applies, the
// router state describing it, the rendered content, and head content for the
// branch. Node is nil for shell-only (prefetch) entries.
type PayloadEntry struct {
	Path []string
	Tree *routetree.RouterState
	Node *vdom.VNode
	Head *vdom.VNode
}

// Options configures a Generator for one request.
type Options struct {
	// Resolve resolves dynamic segments. Required.
	Resolve routetree.Resolver

	// Search is handed to segment renderers.
	Search routetree.SearchParams

	// Query is the canonical query string, folded into leaf descriptors so
	// search-parameter changes diff as changed.
	Query string

	// AssetPrefix is prepended to asset references in rendered subtrees.
	AssetPrefix string

	// Provided is the navigating client's current router state. Nil means
	// first load: the whole tree is emitted.
	Provided *routetree.RouterState

	// Force re-renders every branch regardless of the provided state
	// (not-found substitution, refresh).
	Force bool

	// Prefetch emits shell-only entries for branches containing dynamic
	// modules instead of rendering them.
	Prefetch bool

	// OnError is consulted when a segment renderer fails; see
	// routetree.WalkOptions. Signals must be returned as the abort error so
	// they propagate to the orchestrator.
	OnError func(slot string, err error) (*vdom.VNode, error)
}

// Generator walks a route tree and produces the ordered payload entries for
// the branches that changed relative to the provided router state.
type Generator struct {
	opts Options
}

// NewGenerator creates a generator with the given options.
func NewGenerator(opts Options) *Generator {
	return &Generator{opts: opts}
}

// Generate walks tree and returns the payload entries in traversal order.
func (g *Generator) Generate(ctx context.Context, tree *routetree.RouteTree) ([]PayloadEntry, error) {
	return g.walk(ctx, tree, g.opts.Provided, routetree.Params{}, nil, true)
}

// walk implements the diff-aware traversal. path accumulates alternating
// slot names and segment keys addressing the current node; the synthetic
// root segment is never part of it.
func (g *Generator) walk(ctx context.Context, node *routetree.RouteTree, provided *routetree.RouterState, params routetree.Params, path []string, isFirst bool) ([]PayloadEntry, error) {
	if node == nil {
		return nil, nil
	}

	if dp := g.opts.Resolve(node.Segment); dp != nil {
		params = params.Clone()
		params[dp.Param] = dp.Value
	}

	state := routetree.BuildRouterState(node, g.opts.Resolve, g.opts.Query)

	changed := g.opts.Force ||
		provided == nil ||
		provided.Refresh ||
		!state.Segment.Equal(provided.Segment)

	// The synthetic root is always known to the client; when slots hang off
	// it the changes live deeper. A leaf root carries its content itself
	// (the one-segment error and not-found shells), so it is the entry.
	if changed && (!isFirst || node.IsLeaf()) {
		entry, err := g.renderEntry(ctx, node, state, params, path)
		if err != nil {
			return nil, err
		}
		return []PayloadEntry{entry}, nil
	}

	// Unchanged (or root): recurse to find deeper changes. Navigation can
	// target a deep segment while upper segments stay stable.
	var entries []PayloadEntry
	for _, slot := range node.Slots {
		var childProvided *routetree.RouterState
		if provided != nil {
			childProvided = provided.Slot(slot.Name)
		}
		childKey := routetree.BuildRouterState(slot.Tree, g.opts.Resolve, g.opts.Query).Segment.Key()
		childPath := append(append([]string{}, path...), slot.Name, childKey)

		childEntries, err := g.walk(ctx, slot.Tree, childProvided, params, childPath, false)
		if err != nil {
			return nil, err
		}
		entries = append(entries, childEntries...)
	}
	return entries, nil
}

// renderEntry renders a changed subtree into a single payload entry.
func (g *Generator) renderEntry(ctx context.Context, node *routetree.RouteTree, state *routetree.RouterState, params routetree.Params, path []string) (PayloadEntry, error) {
	entry := PayloadEntry{
		Path: append([]string{}, path...),
		Tree: state,
	}

	head, err := g.renderHead(ctx, node, params)
	if err != nil {
		return PayloadEntry{}, err
	}
	entry.Head = head

	if g.opts.Prefetch && hasDynamic(node) {
		// Prefetches must stay cheap: branches with request-dependent
		// modules ship only their shell.
		return entry, nil
	}

	rendered, err := routetree.RenderSubtree(ctx, node, params, &routetree.WalkOptions{
		Resolve:     g.opts.Resolve,
		Search:      g.opts.Search,
		AssetPrefix: g.opts.AssetPrefix,
		Assets:      routetree.NewAssetSet(),
		OnError:     g.opts.OnError,
	})
	if err != nil {
		return PayloadEntry{}, err
	}
	entry.Node = rendered
	return entry, nil
}

// renderHead renders the deepest head producer on the primary chain.
func (g *Generator) renderHead(ctx context.Context, node *routetree.RouteTree, params routetree.Params) (*vdom.VNode, error) {
	var producer routetree.SegmentRenderer
	for t := node; t != nil; t = t.Primary() {
		if t.Module != nil && t.Module.Head != nil {
			producer = t.Module.Head
		}
	}
	if producer == nil {
		return nil, nil
	}
	return producer(ctx, routetree.RenderProps{Params: params, Search: g.opts.Search})
}

// hasDynamic reports whether any module in the subtree depends on request
// data.
func hasDynamic(node *routetree.RouteTree) bool {
	if node == nil {
		return false
	}
	if node.Module != nil && node.Module.Dynamic {
		return true
	}
	for _, slot := range node.Slots {
		if hasDynamic(slot.Tree) {
			return true
		}
	}
	return false
}
