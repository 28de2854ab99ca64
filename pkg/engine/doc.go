// Package engine is the render orchestrator: it turns one page request into
// either a streamed HTML document or a serialized tree payload.
//
// # Request lifecycle
//
// Render selects a mode from the request: pure client navigations short-
// circuit to a payload-only response; everything else offers the request to
// the action bridge, assembles the full component tree, and drives the
// document renderer with the payload side channel wired in. A failed
// document render enters error recovery: the error is classified into
// not-found, redirect, or generic, and a minimal error shell is re-rendered
// over a cloned copy of the side channel so the original stream is never
// consumed twice.
//
// # Signals
//
// Segment renderers communicate alternate responses by returning control
// errors: NotFound, Redirect, and the static-generation bailout. The bailout
// is never recovered here; it always propagates to the caller.
package engine
