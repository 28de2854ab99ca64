package routetree

import (
	"context"
	"strings"

	"github.com/treeline-dev/treeline/pkg/vdom"
)

// AssetSet tracks stylesheet and script references already injected by an
// ancestor so descendants do not duplicate link/script tags.
type AssetSet struct {
	seen map[string]struct{}
}

// NewAssetSet creates an empty asset set.
func NewAssetSet() *AssetSet {
	return &AssetSet{seen: make(map[string]struct{})}
}

// Add records a reference. It returns false if the reference was already
// present.
func (s *AssetSet) Add(ref string) bool {
	if _, ok := s.seen[ref]; ok {
		return false
	}
	s.seen[ref] = struct{}{}
	return true
}

// Len returns the number of distinct references recorded.
func (s *AssetSet) Len() int {
	return len(s.seen)
}

// WalkOptions parameterizes RenderSubtree. The same traversal serves both
// the full-document assembler and the diff-aware payload generator; only the
// options differ.
type WalkOptions struct {
	// Resolve resolves dynamic segments. Required.
	Resolve Resolver

	// Search is handed to segment renderers unchanged.
	Search SearchParams

	// AssetPrefix is prepended to emitted asset references.
	AssetPrefix string

	// Assets, when non-nil, deduplicates asset references across the walk.
	Assets *AssetSet

	// AsNotFound forces the deepest segment owning a not-found boundary to
	// render that boundary instead of its normal content.
	AsNotFound bool

	// DeferDynamic wraps dynamic modules in deferred holes instead of
	// rendering them eagerly (partial prerendering).
	DeferDynamic bool

	// OnError is consulted when a segment renderer fails. It returns a
	// replacement node to continue with, or a non-nil error to abort the
	// walk. A nil OnError aborts on the first failure.
	OnError func(slot string, err error) (*vdom.VNode, error)
}

// RenderSubtree renders node and all descendants to a renderable tree,
// merging resolved dynamic params into params as it descends. The traversal
// is unconditional; diff-aware callers decide inclusion before calling.
func RenderSubtree(ctx context.Context, node *RouteTree, params Params, opts *WalkOptions) (*vdom.VNode, error) {
	return renderSubtree(ctx, node, params, opts, node.Segment.String())
}

func renderSubtree(ctx context.Context, node *RouteTree, params Params, opts *WalkOptions, path string) (*vdom.VNode, error) {
	if node == nil {
		return nil, nil
	}

	if dp := opts.Resolve(node.Segment); dp != nil {
		params = params.Clone()
		params[dp.Param] = dp.Value
	}

	// Asset references are claimed before recursing so descendants see them
	// as already injected.
	var assets []*vdom.VNode
	if node.Module != nil {
		assets = claimAssets(node.Module, opts)
	}

	asNotFound := opts.AsNotFound
	renderer := moduleRenderer(node)
	descend := true
	if asNotFound && node.Module != nil && node.Module.NotFound != nil && !deeperNotFound(node.Primary()) {
		// Deepest boundary on the primary chain renders the not-found
		// content; anything below it is unreachable.
		renderer = node.Module.NotFound
		descend = false
	}

	slots := make(map[string]*vdom.VNode, len(node.Slots))
	if descend {
		for _, entry := range node.Slots {
			child, err := renderSubtree(ctx, entry.Tree, params, opts, path+"/"+entry.Name)
			if err != nil {
				if opts.OnError == nil {
					return nil, err
				}
				replacement, abort := opts.OnError(entry.Name, err)
				if abort != nil {
					return nil, abort
				}
				child = replacement
			}
			slots[entry.Name] = child
		}
	}

	props := RenderProps{
		Params:   params,
		Search:   opts.Search,
		Children: slots[DefaultSlot],
		Slots:    slots,
	}

	if renderer == nil {
		return passthrough(assets, props.Children), nil
	}

	if opts.DeferDynamic && node.Module != nil && node.Module.Dynamic && descend {
		return passthrough(assets, deferNode(ctx, path, renderer, props, opts)), nil
	}

	rendered, err := renderer(ctx, props)
	if err != nil {
		return nil, err
	}
	return passthrough(assets, rendered), nil
}

// moduleRenderer returns the node's render function, or nil for passthrough
// nodes.
func moduleRenderer(node *RouteTree) SegmentRenderer {
	if node.Module == nil {
		return nil
	}
	return node.Module.Render
}

// deeperNotFound reports whether any node further down the primary chain
// owns a not-found boundary.
func deeperNotFound(node *RouteTree) bool {
	for node != nil {
		if node.Module != nil && node.Module.NotFound != nil {
			return true
		}
		node = node.Primary()
	}
	return false
}

// deferNode wraps a renderer invocation in a deferred hole. The renderer
// does not run during the shell pass; the document renderer invokes the
// component when (and if) the hole is resumed.
func deferNode(ctx context.Context, id string, renderer SegmentRenderer, props RenderProps, opts *WalkOptions) *vdom.VNode {
	return vdom.Deferred(id, vdom.Func(func() *vdom.VNode {
		rendered, err := renderer(ctx, props)
		if err != nil {
			if opts.OnError != nil {
				opts.OnError(DefaultSlot, err)
			}
			return nil
		}
		return rendered
	}))
}

// claimAssets emits link/script nodes for references not yet injected and
// records them in the walk's asset set.
func claimAssets(module *SegmentModule, opts *WalkOptions) []*vdom.VNode {
	var nodes []*vdom.VNode
	for _, href := range module.Stylesheets {
		if opts.Assets != nil && !opts.Assets.Add(href) {
			continue
		}
		nodes = append(nodes, vdom.El("link", vdom.Props{
			"rel":  "stylesheet",
			"href": assetURL(opts.AssetPrefix, href),
		}))
	}
	for _, src := range module.Scripts {
		if opts.Assets != nil && !opts.Assets.Add(src) {
			continue
		}
		nodes = append(nodes, vdom.El("script", vdom.Props{
			"src":   assetURL(opts.AssetPrefix, src),
			"async": true,
		}))
	}
	return nodes
}

// assetURL joins the asset prefix and reference with exactly one slash.
func assetURL(prefix, ref string) string {
	if prefix == "" {
		return ref
	}
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(ref, "/")
}

// passthrough prepends claimed asset nodes to rendered content, avoiding a
// wrapper when there is nothing to prepend.
func passthrough(assets []*vdom.VNode, rendered *vdom.VNode) *vdom.VNode {
	if len(assets) == 0 {
		return rendered
	}
	children := make([]*vdom.VNode, 0, len(assets)+1)
	children = append(children, assets...)
	if rendered != nil {
		children = append(children, rendered)
	}
	return vdom.Fragment(children...)
}
