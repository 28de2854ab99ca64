// Package routetree defines the hierarchical route description consumed by
// the render engine, and the addressing logic that resolves dynamic segments
// against request parameters.
//
// # Core Types
//
// RouteTree is the nested tree of layout/page segments supplied by the module
// loader: each node has a segment (literal or dynamic placeholder), an
// ordered set of named parallel slots, and a SegmentModule providing the
// node's rendering behavior. RouterState is the serializable mirror of the
// subset of a RouteTree actually rendered; it travels to the client and is
// replayed on later navigations to compute diffs.
//
// # Segment Addressing
//
// ResolveSegment turns a dynamic placeholder into a DynamicParam: the raw
// value application code sees plus the encoded SegmentRef used for router
// state serialization. When the request path carries no value (intercepted
// routes), the previously provided RouterState is scanned for a compatible
// segment instead.
//
// # Traversal
//
// RenderSubtree is the single traversal core shared by the full-document
// assembler and the diff-aware payload generator. Callers parameterize it
// with a resolver, an error policy, and asset bookkeeping; inclusion
// decisions stay with the caller.
package routetree
