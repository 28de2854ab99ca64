package engine

import (
	"log/slog"
	"sync"
)

// ErrorSource identifies which stage of a render an error surfaced in.
type ErrorSource uint8

const (
	// SourceComponent marks errors raised while executing segment renderers.
	SourceComponent ErrorSource = iota
	// SourceFlight marks errors raised while generating the tree payload.
	SourceFlight
	// SourceDocument marks errors raised by the HTML document renderer.
	SourceDocument
)

func (s ErrorSource) String() string {
	switch s {
	case SourceComponent:
		return "component"
	case SourceFlight:
		return "flight"
	case SourceDocument:
		return "document"
	}
	return "unknown"
}

// CapturedError is one recorded failure together with the stage it came from.
type CapturedError struct {
	Source ErrorSource
	Err    error
}

// CapturedErrors accumulates non-fatal render errors across the concurrent
// stages of a request. Control-flow signals are never recorded; they are
// routed, not reported.
type CapturedErrors struct {
	mu     sync.Mutex
	errs   []CapturedError
	logger *slog.Logger
}

// NewCapturedErrors returns an empty collector that logs each capture
// through logger.
func NewCapturedErrors(logger *slog.Logger) *CapturedErrors {
	if logger == nil {
		logger = slog.Default()
	}
	return &CapturedErrors{logger: logger}
}

// Capture records err under the given source. Signals are dropped.
func (c *CapturedErrors) Capture(source ErrorSource, err error) {
	if err == nil || IsSignal(err) {
		return
	}
	c.mu.Lock()
	c.errs = append(c.errs, CapturedError{Source: source, Err: err})
	c.mu.Unlock()
	c.logger.Error("render error captured",
		slog.String("source", source.String()),
		slog.String("error", err.Error()))
}

// Handler returns an error callback bound to source, suitable for the
// renderer and generator hooks.
func (c *CapturedErrors) Handler(source ErrorSource) func(error) {
	return func(err error) { c.Capture(source, err) }
}

// All returns a snapshot of everything captured so far.
func (c *CapturedErrors) All() []CapturedError {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CapturedError, len(c.errs))
	copy(out, c.errs)
	return out
}

// ComponentErrors returns the captured errors that came from segment
// renderers. Static generation fails when any exist.
func (c *CapturedErrors) ComponentErrors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []error
	for _, ce := range c.errs {
		if ce.Source == SourceComponent {
			out = append(out, ce.Err)
		}
	}
	return out
}

// Empty reports whether nothing has been captured.
func (c *CapturedErrors) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs) == 0
}
