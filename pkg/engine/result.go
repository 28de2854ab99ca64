package engine

import (
	"io"
	"net/http"

	"github.com/treeline-dev/treeline/pkg/render"
)

// ResultKind classifies what a render produced.
type ResultKind uint8

const (
	// ResultDocument is a streamed (or materialized) HTML document.
	ResultDocument ResultKind = iota
	// ResultFlight is a serialized tree payload for a client navigation.
	ResultFlight
	// ResultRedirect is a redirect resolved during render; it has no body.
	ResultRedirect
	// ResultAction is a response the action bridge produced itself.
	ResultAction
)

// FlightContentType is the media type of serialized tree payloads.
const FlightContentType = "text/x-component"

// Result is the outcome of one orchestrated render.
type Result struct {
	Kind   ResultKind
	Status int

	// HTML carries the document stream for ResultDocument.
	HTML *render.HTMLStream

	// Body is the materialized document, populated during static generation.
	Body string

	// Payload is the serialized tree payload: the response body for
	// ResultFlight, and the stored payload for static generation.
	Payload string

	// PostponedToken resumes a partial prerender. Empty when the render
	// postponed nothing.
	PostponedToken string

	// Location and Cookies describe a ResultRedirect.
	Location string
	Cookies  []*http.Cookie

	Metadata *RenderResultMetadata

	// shell exposes the resume token once the stream has fully drained.
	shell *render.StreamResult
}

// WriteTo writes the result to an HTTP response: cookies, then status and
// headers, then the body. Document results stream chunk by chunk.
func (res *Result) WriteTo(w http.ResponseWriter) error {
	for _, c := range res.Cookies {
		http.SetCookie(w, c)
	}
	switch res.Kind {
	case ResultRedirect:
		w.Header().Set("Location", res.Location)
		w.WriteHeader(res.Status)
		return nil
	case ResultFlight:
		w.Header().Set("Content-Type", FlightContentType)
		w.WriteHeader(res.Status)
		_, err := io.WriteString(w, res.Payload)
		return err
	default:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(res.Status)
		if res.HTML != nil {
			_, err := res.HTML.WriteTo(w)
			return err
		}
		_, err := io.WriteString(w, res.Body)
		return err
	}
}
