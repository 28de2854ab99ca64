// Package flight produces the structured tree payload sent alongside (or
// instead of) HTML: an ordered sequence of path-addressed subtree updates a
// client can reconcile without a full page load.
//
// # Generation
//
// Generator walks a route tree, diffing each node against the router state a
// navigating client provided. Unchanged branches are skipped but still
// descended through so deeper changes are found; changed branches are
// rendered once and emitted whole. Emission order guarantees parents appear
// at or before the first child referencing them.
//
// # Transport
//
// Entries serialize to newline-delimited JSON rows. DataStream is the
// single-use duplex channel wiring payload generation into the document
// renderer: rows become available for inlining as they are produced, not
// after the walk finishes. Tee splits an in-flight stream when the error
// recovery path needs a second reader over the unread remainder.
package flight
