package flight

import (
	"errors"
	"io"
	"sync"
)

// Sentinel errors for side-channel stream misuse.
var (
	// ErrStreamClosed is returned when writing to a closed stream.
	ErrStreamClosed = errors.New("flight: stream closed")

	// ErrStreamSealed is returned when reading a stream after Tee has
	// transferred its remainder to the branches.
	ErrStreamSealed = errors.New("flight: stream sealed by tee")
)

// DataStream is the side channel between payload generation and HTML
// inlining: a single-writer, single-reader pipe of serialized payload rows.
// Writes block once the small internal buffer fills, so production stays in
// step with consumption and rows can flush incrementally on slow networks.
type DataStream struct {
	ch chan []byte

	mu     sync.Mutex
	err    error
	closed bool
	sealed bool
}

// streamBuffer bounds how far production may run ahead of consumption.
const streamBuffer = 16

// NewDataStream creates an open stream.
func NewDataStream() *DataStream {
	return &DataStream{ch: make(chan []byte, streamBuffer)}
}

// Write appends one row. It blocks when the buffer is full and fails after
// Close.
func (s *DataStream) Write(row []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStreamClosed
	}
	s.mu.Unlock()
	s.ch <- row
	return nil
}

// Close marks the end of the stream. Subsequent writes fail; the reader
// drains buffered rows and then sees io.EOF.
func (s *DataStream) Close() error {
	return s.CloseWithError(nil)
}

// CloseWithError closes the stream with a terminal error delivered to the
// reader after buffered rows. A nil err closes cleanly.
func (s *DataStream) CloseWithError(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	s.closed = true
	s.err = err
	close(s.ch)
	return nil
}

// Next returns the next row, blocking until one is available. It returns
// io.EOF after a clean close, the terminal error after CloseWithError, and
// ErrStreamSealed once the stream has been teed.
func (s *DataStream) Next() ([]byte, error) {
	s.mu.Lock()
	if s.sealed {
		s.mu.Unlock()
		return nil, ErrStreamSealed
	}
	s.mu.Unlock()

	row, ok := <-s.ch
	if !ok {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	return row, nil
}

// Discard drains and drops the stream's remaining rows in the background so
// a teed sibling branch is never blocked by an abandoned reader.
func (s *DataStream) Discard() {
	go func() {
		for {
			if _, err := s.Next(); err != nil {
				return
			}
		}
	}()
}

// Tee seals the stream and fans its unread remainder out to two fresh
// streams. The original must not be read again: its bytes now belong to the
// branches. Exactly one branch should be consumed; the other must be
// discarded with Discard, or the pump stalls.
func (s *DataStream) Tee() (*DataStream, *DataStream) {
	s.mu.Lock()
	s.sealed = true
	s.mu.Unlock()

	a, b := NewDataStream(), NewDataStream()
	go func() {
		for row := range s.ch {
			// Both writes block until their reader keeps up; this is the
			// same backpressure the original stream applied. A branch closed
			// early simply drops the row.
			_ = a.Write(row)
			_ = b.Write(row)
		}
		s.mu.Lock()
		err := s.err
		s.mu.Unlock()
		_ = a.CloseWithError(err)
		_ = b.CloseWithError(err)
	}()
	return a, b
}
