package engine

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
)

// Control-flow signals. Segment renderers return these instead of producing a
// node when the request should resolve to something other than the rendered
// page. They travel as ordinary errors and are classified during recovery.

// NotFoundError aborts the current render and resolves the request as a 404
// rendered through the nearest not-found boundary.
type NotFoundError struct{}

func (*NotFoundError) Error() string { return "engine: not found" }

// NotFound returns the signal that converts the response into a 404.
func NotFound() error { return &NotFoundError{} }

// IsNotFound reports whether err is, or wraps, a not-found signal.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// RedirectError aborts the current render and resolves the request as an
// HTTP redirect. Cookies set alongside the redirect are carried so they can
// be written before the response status.
type RedirectError struct {
	URL     string
	Status  int
	Cookies []*http.Cookie
}

func (r *RedirectError) Error() string {
	return fmt.Sprintf("engine: redirect to %s (%d)", r.URL, r.Status)
}

// Redirect returns a temporary (307) redirect signal.
func Redirect(url string) error {
	return &RedirectError{URL: url, Status: http.StatusTemporaryRedirect}
}

// PermanentRedirect returns a permanent (308) redirect signal.
func PermanentRedirect(url string) error {
	return &RedirectError{URL: url, Status: http.StatusPermanentRedirect}
}

// AsRedirect extracts a redirect signal from err, if present.
func AsRedirect(err error) (*RedirectError, bool) {
	var rd *RedirectError
	if errors.As(err, &rd) {
		return rd, true
	}
	return nil, false
}

// StaticGenBailoutError aborts static generation when a render touches
// request-bound data that cannot exist at build time. It is never handled by
// error recovery: the orchestrator re-throws it to the caller so the page can
// be demoted to dynamic rendering.
type StaticGenBailoutError struct {
	Reason string
	Stack  []byte
}

func (b *StaticGenBailoutError) Error() string {
	return "engine: static generation bailout: " + b.Reason
}

// Bailout returns a static-generation bailout signal carrying the call stack
// of the offending access.
func Bailout(reason string) error {
	return &StaticGenBailoutError{Reason: reason, Stack: debug.Stack()}
}

// IsBailout reports whether err is, or wraps, a static-generation bailout.
func IsBailout(err error) bool {
	var b *StaticGenBailoutError
	return errors.As(err, &b)
}

// DeoptError marks a subtree that gave up on server rendering and degrades
// to client-side rendering. During document renders the affected hole is
// left for the client; during static generation it behaves like a bailout.
type DeoptError struct{ Reason string }

func (d *DeoptError) Error() string { return "engine: deopted to client rendering: " + d.Reason }

// Deopt returns the signal that degrades a subtree to client rendering.
func Deopt(reason string) error { return &DeoptError{Reason: reason} }

// IsDeopt reports whether err is, or wraps, a client-rendering deopt.
func IsDeopt(err error) bool {
	var d *DeoptError
	return errors.As(err, &d)
}

// IsSignal reports whether err is one of the control-flow signals rather
// than a genuine render failure.
func IsSignal(err error) bool {
	if err == nil {
		return false
	}
	if IsNotFound(err) || IsBailout(err) || IsDeopt(err) {
		return true
	}
	_, redirect := AsRedirect(err)
	return redirect
}
