// Package render turns renderable trees into streamed HTML documents.
//
// RenderDocument drives a full document render: shell markup first, body
// content in flushable chunks, deferred holes either rendered inline,
// postponed behind placeholders, or resumed from a prior postponed token.
// The resulting HTMLStream is consumed chunk by chunk; Continue wires in the
// side-channel data stream so structured payload rows are inlined between
// HTML chunks as they arrive instead of buffering the payload whole.
//
// The renderer is deliberately dumb about routing: it receives one finished
// tree and a configuration bag. Mode selection, error recovery, and payload
// generation all belong to the engine.
package render
