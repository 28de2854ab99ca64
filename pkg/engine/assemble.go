package engine

import (
	"context"

	"github.com/treeline-dev/treeline/pkg/routetree"
	"github.com/treeline-dev/treeline/pkg/vdom"
)

// AppModule is everything the orchestrator needs to render one route: the
// matched route tree plus the app-level boundaries and document chrome.
type AppModule struct {
	Tree *routetree.RouteTree

	// RouterShell wraps the rendered tree in the app's outermost chrome.
	// When nil the tree output is used directly as the document body.
	RouterShell func(state *routetree.RouterState, children *vdom.VNode) *vdom.VNode

	// GlobalError renders the last-resort error shell.
	GlobalError routetree.SegmentRenderer

	// NotFound renders the app-level 404 shell when no boundary in the
	// tree claims the miss.
	NotFound routetree.SegmentRenderer

	// Head and BootstrapScripts feed the document shell.
	Head             []*vdom.VNode
	BootstrapScripts []string
}

// assembler produces the full component tree for a document render. Unlike
// payload generation it renders everything, and any segment failure aborts
// the pass so recovery can take over before bytes reach the client.
type assembler struct {
	rc  *RenderContext
	app *AppModule

	// deferDynamic turns dynamic segments into deferred holes instead of
	// executing them, for partial prerenders.
	deferDynamic bool
}

func (a *assembler) assemble(ctx context.Context, asNotFound bool) (*vdom.VNode, error) {
	assets := routetree.NewAssetSet()
	captured := false
	body, err := routetree.RenderSubtree(ctx, a.app.Tree, a.rc.Params, &routetree.WalkOptions{
		Resolve:      a.rc.Resolve,
		Search:       a.rc.Search(),
		AssetPrefix:  a.rc.AssetPrefix,
		Assets:       assets,
		AsNotFound:   asNotFound,
		DeferDynamic: a.deferDynamic,
		// Document renders abort on the first segment failure; the hook
		// also hears from deferred holes resumed after assembly, where the
		// capture is the only trace the failure leaves.
		OnError: func(slot string, err error) (*vdom.VNode, error) {
			if node, derr, ok := handleDeopt(a.rc, slot, err); ok {
				if derr != nil {
					captured = true
				}
				return node, derr
			}
			captured = true
			a.rc.Captured.Capture(SourceComponent, err)
			return nil, err
		},
	})
	if err != nil {
		// Errors from the root module's own renderer bypass the hook.
		if !captured {
			a.rc.Captured.Capture(SourceComponent, err)
		}
		return nil, err
	}
	if a.app.RouterShell != nil {
		state := routetree.BuildRouterState(a.app.Tree, a.rc.Resolve, a.rc.Query.Encode())
		body = a.app.RouterShell(state, body)
	}
	return body, nil
}
