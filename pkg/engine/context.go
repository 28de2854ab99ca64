package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/treeline-dev/treeline/pkg/routetree"
	"github.com/treeline-dev/treeline/pkg/vdom"
)

// Request headers understood by the orchestrator. Navigation marks a
// client-side transition that only needs the tree payload; Prefetch asks for
// a cheap speculative payload; StateTree carries the client's current router
// state so unchanged subtrees can be skipped.
const (
	HeaderNavigation = "Treeline-Navigation"
	HeaderPrefetch   = "Treeline-Prefetch"
	HeaderStateTree  = "Treeline-State-Tree"
)

// internalQueryPrefix marks query parameters owned by the client runtime.
// They are stripped before the search params reach application code.
const internalQueryPrefix = "_treeline"

// ResponseStatus is a mutable status handle. Segment renderers run before
// any byte is written, so recovery and boundaries can still adjust the code.
type ResponseStatus struct {
	mu   sync.Mutex
	code int
}

// Set overrides the response status code.
func (s *ResponseStatus) Set(code int) {
	s.mu.Lock()
	s.code = code
	s.mu.Unlock()
}

// Code returns the current status, defaulting to 200.
func (s *ResponseStatus) Code() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.code == 0 {
		return http.StatusOK
	}
	return s.code
}

// RenderContext is the per-request state shared by every render stage. It is
// stored on the context.Context passed to segment renderers so application
// code can reach the metadata and status handles.
type RenderContext struct {
	Path       string
	Query      url.Values
	Params     routetree.Params
	Provided   *routetree.RouterState
	Resolve    routetree.Resolver
	RequestID  string
	Nonce      string
	Navigation bool
	Prefetch   bool
	DevMode    bool
	IsStatic   bool

	AssetPrefix string

	Status   *ResponseStatus
	Captured *CapturedErrors
	Meta     *RenderResultMetadata
	Logger   *slog.Logger

	mu        sync.Mutex
	extraHead []*vdom.VNode
}

// Search returns the accessor segment renderers use to read query
// parameters. During static generation without partial prerendering the
// access triggers a bailout, because the query cannot exist at build time.
func (rc *RenderContext) Search() routetree.SearchParams {
	return func() (url.Values, error) {
		if rc.IsStatic {
			return nil, Bailout("request search params accessed during static generation")
		}
		return rc.Query, nil
	}
}

// RegisterHead queues extra head nodes discovered during render. They are
// appended to the document after the static shell has flushed.
func (rc *RenderContext) RegisterHead(nodes ...*vdom.VNode) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.extraHead = append(rc.extraHead, nodes...)
}

// ExtraHead returns the head nodes registered so far.
func (rc *RenderContext) ExtraHead() []*vdom.VNode {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make([]*vdom.VNode, len(rc.extraHead))
	copy(out, rc.extraHead)
	return out
}

type ctxKey struct{}

// FromContext returns the RenderContext stored on ctx, or nil when ctx does
// not belong to a render.
func FromContext(ctx context.Context) *RenderContext {
	rc, _ := ctx.Value(ctxKey{}).(*RenderContext)
	return rc
}

func withRenderContext(ctx context.Context, rc *RenderContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

func newRequestID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(b[:])
}

// stripInternalQuery removes runtime-owned parameters so application code
// never observes them.
func stripInternalQuery(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, vs := range q {
		if strings.HasPrefix(k, internalQueryPrefix) {
			continue
		}
		out[k] = vs
	}
	return out
}

// parseNonce extracts a script-src nonce from a Content-Security-Policy
// header value. An empty string means the policy carries no nonce.
func parseNonce(csp string) string {
	for _, directive := range strings.Split(csp, ";") {
		fields := strings.Fields(directive)
		if len(fields) == 0 {
			continue
		}
		name := strings.ToLower(fields[0])
		if name != "script-src" && name != "default-src" {
			continue
		}
		for _, src := range fields[1:] {
			if strings.HasPrefix(src, "'nonce-") && strings.HasSuffix(src, "'") {
				return strings.TrimSuffix(strings.TrimPrefix(src, "'nonce-"), "'")
			}
		}
	}
	return ""
}

// parseProvidedState decodes the client's router state header. Malformed
// state is discarded rather than failing the request: the render falls back
// to a full payload.
func parseProvidedState(raw string) *routetree.RouterState {
	if raw == "" {
		return nil
	}
	var state routetree.RouterState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil
	}
	return &state
}
