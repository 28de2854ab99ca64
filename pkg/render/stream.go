package render

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"sync"
)

// HTMLStream is a chunked byte stream of rendered HTML. It has exactly one
// reader; chunks are delivered in order.
type HTMLStream struct {
	ch chan []byte

	mu     sync.Mutex
	err    error
	closed bool
}

// htmlStreamBuffer bounds how many chunks may queue before the producer
// blocks.
const htmlStreamBuffer = 8

func newHTMLStream() *HTMLStream {
	return &HTMLStream{ch: make(chan []byte, htmlStreamBuffer)}
}

// write queues one chunk. Chunks written after close are dropped.
func (s *HTMLStream) write(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.ch <- chunk
}

// closeWith terminates the stream. A non-nil err is surfaced to the reader
// after buffered chunks.
func (s *HTMLStream) closeWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	close(s.ch)
}

// Next returns the next chunk, io.EOF at clean end of stream, or the
// producer's terminal error.
func (s *HTMLStream) Next() ([]byte, error) {
	chunk, ok := <-s.ch
	if !ok {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	return chunk, nil
}

// WriteTo copies the stream to w, flushing after each chunk when w is an
// http.Flusher so slow networks see content incrementally.
func (s *HTMLStream) WriteTo(w io.Writer) (int64, error) {
	flusher, _ := w.(http.Flusher)
	var total int64
	for {
		chunk, err := s.Next()
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		n, err := w.Write(chunk)
		total += int64(n)
		if err != nil {
			return total, err
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// Materialize drains the stream into a single string. Static generation uses
// this to persist the finished document.
func (s *HTMLStream) Materialize() (string, error) {
	var sb strings.Builder
	for {
		chunk, err := s.Next()
		if err == io.EOF {
			return sb.String(), nil
		}
		if err != nil {
			return "", err
		}
		sb.Write(chunk)
	}
}

// chunkWriter buffers renderer output and forwards it to a stream at flush
// points.
type chunkWriter struct {
	buf    bytes.Buffer
	stream *HTMLStream
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

// flushChunk sends buffered bytes as one chunk.
func (w *chunkWriter) flushChunk() {
	if w.buf.Len() == 0 {
		return
	}
	chunk := make([]byte, w.buf.Len())
	copy(chunk, w.buf.Bytes())
	w.buf.Reset()
	w.stream.write(chunk)
}
