package treeline

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/treeline-dev/treeline/pkg/routetree"
)

// =============================================================================
// Route Table
// =============================================================================

// RouteOption configures a mounted route.
type RouteOption func(*route)

// WithForceStatic overrides the route's rendering mode. Explicitly false
// freezes revalidation at zero during static passes.
func WithForceStatic(static bool) RouteOption {
	return func(rt *route) {
		rt.forceStatic = &static
	}
}

type route struct {
	pattern     string
	segs        []patternSeg
	module      *AppModule
	forceStatic *bool
}

// specificity orders candidate routes: literal segments beat dynamic ones,
// dynamic ones beat catch-alls. Higher wins.
func (rt *route) specificity() int {
	score := 0
	for _, seg := range rt.segs {
		switch seg.kind {
		case routetree.SegmentLiteral:
			score += 4
		case routetree.SegmentDynamic:
			score += 2
		case routetree.SegmentCatchAll:
			score += 1
		}
	}
	return score
}

type patternSeg struct {
	literal string
	name    string
	kind    routetree.SegmentKind
}

// parsePattern splits a route pattern into matchable segments. Dynamic
// segments use bracket syntax: "[slug]" matches one segment, "[...parts]"
// matches one or more, "[[...parts]]" matches zero or more. Catch-alls must
// be last.
func parsePattern(pattern string) ([]patternSeg, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, fmt.Errorf("route pattern %q must start with /", pattern)
	}
	trimmed := strings.Trim(pattern, "/")
	if trimmed == "" {
		return nil, nil
	}

	parts := strings.Split(trimmed, "/")
	segs := make([]patternSeg, 0, len(parts))
	for i, part := range parts {
		seg, err := parseSegment(part)
		if err != nil {
			return nil, fmt.Errorf("route pattern %q: %w", pattern, err)
		}
		if seg.kind.Multi() && i != len(parts)-1 {
			return nil, fmt.Errorf("route pattern %q: catch-all segment must be last", pattern)
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

func parseSegment(part string) (patternSeg, error) {
	switch {
	case strings.HasPrefix(part, "[[...") && strings.HasSuffix(part, "]]"):
		name := part[5 : len(part)-2]
		if name == "" {
			return patternSeg{}, fmt.Errorf("segment %q has no parameter name", part)
		}
		return patternSeg{name: name, kind: routetree.SegmentOptionalCatchAll}, nil
	case strings.HasPrefix(part, "[...") && strings.HasSuffix(part, "]"):
		name := part[4 : len(part)-1]
		if name == "" {
			return patternSeg{}, fmt.Errorf("segment %q has no parameter name", part)
		}
		return patternSeg{name: name, kind: routetree.SegmentCatchAll}, nil
	case strings.HasPrefix(part, "[") && strings.HasSuffix(part, "]"):
		name := part[1 : len(part)-1]
		if name == "" || strings.ContainsAny(name, "[]") {
			return patternSeg{}, fmt.Errorf("segment %q has no parameter name", part)
		}
		return patternSeg{name: name, kind: routetree.SegmentDynamic}, nil
	case strings.ContainsAny(part, "[]"):
		return patternSeg{}, fmt.Errorf("segment %q mixes literal and bracket syntax", part)
	default:
		return patternSeg{literal: part, kind: routetree.SegmentLiteral}, nil
	}
}

// RouteTable maps request paths to mounted application modules.
type RouteTable struct {
	mu     sync.RWMutex
	routes []*route
}

// NewRouteTable creates an empty table.
func NewRouteTable() *RouteTable {
	return &RouteTable{}
}

// Add mounts a module under a pattern. Routes are matched most-specific
// first regardless of registration order.
func (t *RouteTable) Add(pattern string, module *AppModule, opts ...RouteOption) error {
	if module == nil || module.Tree == nil {
		return fmt.Errorf("route %q: module with a tree is required", pattern)
	}
	segs, err := parsePattern(pattern)
	if err != nil {
		return err
	}

	rt := &route{pattern: pattern, segs: segs, module: module}
	for _, opt := range opts {
		opt(rt)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, existing := range t.routes {
		if existing.pattern == rt.pattern {
			return fmt.Errorf("route %q already registered", pattern)
		}
	}
	t.routes = append(t.routes, rt)
	sort.SliceStable(t.routes, func(i, j int) bool {
		return t.routes[i].specificity() > t.routes[j].specificity()
	})
	return nil
}

// Match finds the route for a canonical request path and extracts its
// dynamic parameter values.
func (t *RouteTable) Match(path string) (*route, routetree.Params, bool) {
	var parts []string
	if trimmed := strings.Trim(path, "/"); trimmed != "" {
		parts = strings.Split(trimmed, "/")
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, rt := range t.routes {
		if params, ok := matchSegments(rt.segs, parts); ok {
			return rt, params, true
		}
	}
	return nil, nil, false
}

func matchSegments(segs []patternSeg, parts []string) (routetree.Params, bool) {
	params := make(routetree.Params)
	for i, seg := range segs {
		switch seg.kind {
		case routetree.SegmentLiteral:
			if i >= len(parts) || parts[i] != seg.literal {
				return nil, false
			}
		case routetree.SegmentDynamic:
			if i >= len(parts) {
				return nil, false
			}
			params[seg.name] = routetree.SingleValue(parts[i])
		case routetree.SegmentCatchAll:
			if i >= len(parts) {
				return nil, false
			}
			params[seg.name] = routetree.MultiValue(parts[i:]...)
			return params, true
		case routetree.SegmentOptionalCatchAll:
			params[seg.name] = routetree.MultiValue(parts[i:]...)
			return params, true
		}
	}
	if len(parts) != len(segs) {
		return nil, false
	}
	return params, true
}
