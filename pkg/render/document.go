package render

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/treeline-dev/treeline/pkg/flight"
	"github.com/treeline-dev/treeline/pkg/vdom"
)

// payloadGlobal is the client-side array inlined payload rows are pushed to.
const payloadGlobal = "self.__treeline_f"

// formStateGlobal carries action form state into the document.
const formStateGlobal = "self.__treeline_fs"

// StreamConfig is the configuration bag for one document render attempt.
type StreamConfig struct {
	// Lang is the html element's lang attribute. Defaults to "en".
	Lang string

	// Nonce is added to every emitted script tag.
	Nonce string

	// Head is the static head content rendered into the document shell.
	Head []*vdom.VNode

	// BootstrapScripts are script sources loaded in the shell.
	BootstrapScripts []string

	// FormState, when non-nil, is serialized into the shell for the client
	// to replay after an action round trip.
	FormState any

	// AllowPostpone enables partial prerendering: deferred holes become
	// placeholders and the result carries a resume token.
	AllowPostpone bool

	// Postponed switches the render into resume mode: only the holes named
	// by the token are rendered.
	Postponed *PostponedToken

	// OnError observes render failures before they terminate the stream.
	OnError func(error)
}

// StreamResult is the outcome of starting a document render.
type StreamResult struct {
	// Stream is the document's chunked HTML.
	Stream *HTMLStream

	cfg   StreamConfig
	done  chan struct{}
	token *PostponedToken
}

// Postponed blocks until the render attempt finishes and returns the resume
// token, or nil when nothing was deferred.
func (r *StreamResult) Postponed() *PostponedToken {
	<-r.done
	return r.token
}

// RenderDocument starts rendering root as a complete HTML document. The
// render proceeds in a background goroutine; chunks become readable as they
// are produced. Failures surface on the stream after cfg.OnError runs.
func RenderDocument(ctx context.Context, root *vdom.VNode, cfg StreamConfig) (*StreamResult, error) {
	if root == nil {
		return nil, errors.New("render: nil document root")
	}

	result := &StreamResult{
		Stream: newHTMLStream(),
		cfg:    cfg,
		done:   make(chan struct{}),
	}

	if cfg.Postponed != nil {
		go result.renderResume(root)
		return result, nil
	}

	go result.renderFull(ctx, root)
	return result, nil
}

// renderFull produces the document shell and body.
func (r *StreamResult) renderFull(ctx context.Context, root *vdom.VNode) {
	defer close(r.done)

	cw := &chunkWriter{stream: r.Stream}
	nr := &nodeRenderer{
		w:     cw,
		nonce: r.cfg.Nonce,
		mode:  deferInline,
		flush: cw.flushChunk,
	}
	if r.cfg.AllowPostpone {
		nr.mode = deferPlaceholder
	}

	err := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.writeShellOpen(cw, nr); err != nil {
			return err
		}
		cw.flushChunk()

		if err := nr.render(root); err != nil {
			return err
		}
		cw.flushChunk()
		return nil
	}()
	if err != nil {
		if r.cfg.OnError != nil {
			r.cfg.OnError(err)
		}
		r.Stream.closeWith(err)
		return
	}

	if len(nr.holes) > 0 {
		r.token = &PostponedToken{Holes: nr.holes}
	}

	// The closing tags travel as their own chunk so a continuation can
	// inject trailing content before them.
	r.Stream.write([]byte("</body></html>"))
	r.Stream.closeWith(nil)
}

// renderResume renders only the holes a previous partial prerender deferred.
// The shell was already sent with the static part; this stream carries hole
// content exclusively.
func (r *StreamResult) renderResume(root *vdom.VNode) {
	defer close(r.done)

	resume := make(map[string]bool, len(r.cfg.Postponed.Holes))
	for _, hole := range r.cfg.Postponed.Holes {
		resume[hole] = true
	}

	cw := &chunkWriter{stream: r.Stream}
	nr := &nodeRenderer{
		w:      cw,
		nonce:  r.cfg.Nonce,
		mode:   deferResume,
		resume: resume,
		flush:  cw.flushChunk,
	}
	if err := nr.render(root); err != nil {
		if r.cfg.OnError != nil {
			r.cfg.OnError(err)
		}
		r.Stream.closeWith(err)
		return
	}
	cw.flushChunk()
	r.Stream.closeWith(nil)
}

// writeShellOpen emits everything up to and including the <body> open tag.
func (r *StreamResult) writeShellOpen(w io.Writer, nr *nodeRenderer) error {
	lang := r.cfg.Lang
	if lang == "" {
		lang = "en"
	}
	if _, err := fmt.Fprintf(w, "<!DOCTYPE html><html lang=\"%s\"><head><meta charset=\"utf-8\">", escapeAttr(lang)); err != nil {
		return err
	}
	for _, node := range r.cfg.Head {
		if err := nr.render(node); err != nil {
			return err
		}
	}
	if err := r.writeInlineScript(w, payloadGlobal+"="+payloadGlobal+"||[]"); err != nil {
		return err
	}
	if r.cfg.FormState != nil {
		state, err := json.Marshal(r.cfg.FormState)
		if err != nil {
			return err
		}
		if err := r.writeInlineScript(w, formStateGlobal+"="+string(state)); err != nil {
			return err
		}
	}
	for _, src := range r.cfg.BootstrapScripts {
		if _, err := fmt.Fprintf(w, `<script src="%s" async%s></script>`, escapeAttr(src), r.nonceAttr()); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</head><body>")
	return err
}

func (r *StreamResult) nonceAttr() string {
	if r.cfg.Nonce == "" {
		return ""
	}
	return fmt.Sprintf(` nonce="%s"`, escapeAttr(r.cfg.Nonce))
}

func (r *StreamResult) writeInlineScript(w io.Writer, body string) error {
	_, err := fmt.Fprintf(w, "<script%s>%s</script>", r.nonceAttr(), body)
	return err
}

// ContinueOptions wires a finished shell render to its trailing content.
type ContinueOptions struct {
	// Data is the side-channel payload stream inlined as script chunks as
	// rows arrive. May be nil.
	Data *flight.DataStream

	// ExtraHead yields head content registered dynamically during the
	// render, emitted near the end of the body. May be nil.
	ExtraHead func() []*vdom.VNode

	// ValidateRootLayout checks the shell for html/body tags (development
	// only) and reports through OnError.
	ValidateRootLayout bool

	// OnError observes continuation failures.
	OnError func(error)
}

// ErrMissingRootLayout reports a document whose root layout did not produce
// html and body tags.
var ErrMissingRootLayout = errors.New("render: root layout is missing html or body tag")

// Continue interleaves the document stream with the side-channel data
// stream: HTML chunks pass through as produced, payload rows are inlined as
// script tags between them, and extra head content lands before the closing
// tags. The returned stream replaces both inputs; neither may be read again.
func (r *StreamResult) Continue(opts ContinueOptions) *HTMLStream {
	out := newHTMLStream()

	go func() {
		var wg sync.WaitGroup
		var dataErr error

		if opts.Data != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					row, err := opts.Data.Next()
					if err == io.EOF {
						return
					}
					if err != nil {
						dataErr = err
						return
					}
					out.write(r.inlineRow(row))
				}
			}()
		}

		var shell strings.Builder
		var held []byte
		var htmlErr error
		for {
			chunk, err := r.Stream.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				htmlErr = err
				break
			}
			if shell.Len() < 4096 {
				shell.Write(chunk)
			}
			if held != nil {
				out.write(held)
			}
			held = chunk
		}

		// All payload rows must land inside the body, so the final chunk
		// (the closing tags) is held until the data stream finishes.
		wg.Wait()

		if opts.ValidateRootLayout && htmlErr == nil {
			markup := shell.String()
			if !strings.Contains(markup, "<html") || !strings.Contains(markup, "<body") {
				if opts.OnError != nil {
					opts.OnError(ErrMissingRootLayout)
				}
			}
		}

		if htmlErr == nil && opts.ExtraHead != nil {
			for _, node := range opts.ExtraHead() {
				markup, err := RenderToString(node)
				if err != nil {
					htmlErr = err
					break
				}
				out.write([]byte(markup))
			}
		}

		if held != nil {
			out.write(held)
		}

		err := htmlErr
		if err == nil {
			err = dataErr
		}
		if err != nil && opts.OnError != nil {
			opts.OnError(err)
		}
		out.closeWith(err)
	}()

	return out
}

// inlineRow wraps one payload row in a script tag. json.Marshal escapes the
// characters that could terminate the script element early.
func (r *StreamResult) inlineRow(row []byte) []byte {
	encoded, err := json.Marshal(string(row))
	if err != nil {
		return nil
	}
	return []byte(fmt.Sprintf("<script%s>%s.push(%s)</script>", r.nonceAttr(), payloadGlobal, encoded))
}
