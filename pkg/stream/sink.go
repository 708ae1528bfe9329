// Package stream implements the sink that collects or forwards decoded audio.
//
// A Sink wraps a caller destination, usually the write half of an io.Pipe
// feeding an HTTP response, or buffers internally when none is given. Its
// result resolves exactly once, on the first End or Error.
package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// ErrSinkClosed is returned by Push after the sink has ended or failed.
var ErrSinkClosed = errors.New("stream: sink closed")

// Destination receives audio bytes. *io.PipeWriter satisfies it.
// Write must block rather than drop data when the reader is slow.
type Destination interface {
	io.Writer
	Close() error
	CloseWithError(err error) error
}

// Status is how a sink resolved.
type Status string

const (
	StatusOK      Status = "ok"
	StatusErrored Status = "errored"
)

// Result is the terminal outcome of a sink.
// Audio is set only for internally buffered sinks that ended cleanly
// with at least one byte. The zero Result is unresolved.
type Result struct {
	Audio  []byte
	Status Status
	Err    error
}

// OK reports whether the sink ended without error.
func (r Result) OK() bool { return r.Status == StatusOK }

// Sink is a single-writer audio sink. Push is called from one goroutine;
// Error and End may be called from any goroutine.
type Sink struct {
	dst    Destination
	buf    *bytes.Buffer
	logger *slog.Logger

	mu      sync.Mutex
	closed  bool
	written int64

	once   sync.Once
	done   chan struct{}
	result Result
}

// Option configures a Sink.
type Option func(*Sink)

// WithLogger sets the logger used for failure reports.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) { s.logger = l }
}

// New creates a sink writing to dst. A nil dst buffers in memory.
func New(dst Destination, opts ...Option) *Sink {
	s := &Sink{
		dst:    dst,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	if dst == nil {
		s.buf = new(bytes.Buffer)
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "stream.sink")
	return s
}

// Push appends p. It blocks while the destination applies backpressure.
// Pushing after End or Error is a no-op returning ErrSinkClosed.
func (s *Sink) Push(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSinkClosed
	}
	if s.buf != nil {
		s.buf.Write(p)
		s.written += int64(len(p))
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	// The destination write happens unlocked so Error can interrupt it.
	n, err := s.dst.Write(p)
	s.mu.Lock()
	s.written += int64(n)
	s.mu.Unlock()
	if err != nil {
		s.Error(err, "write destination")
		return err
	}
	return nil
}

// Error fails the sink, forwards the failure to the destination and
// resolves the result. Later calls to Error or End are ignored.
func (s *Sink) Error(cause error, where string) {
	if cause == nil {
		cause = errors.New("unknown error")
	}
	err := cause
	if where != "" {
		err = fmt.Errorf("%s: %w", where, cause)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.logger.Error("sink failed", "where", where, "error", cause)
	if s.dst != nil {
		_ = s.dst.CloseWithError(err)
	}
	s.resolve(Result{Status: StatusErrored, Err: err})
}

// End closes the sink without error. It is idempotent.
func (s *Sink) End() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	var audio []byte
	if s.buf != nil && s.buf.Len() > 0 {
		audio = s.buf.Bytes()
	}
	s.mu.Unlock()

	if s.dst != nil {
		if err := s.dst.Close(); err != nil {
			s.logger.Warn("close destination", "error", err)
		}
	}
	s.resolve(Result{Audio: audio, Status: StatusOK})
}

func (s *Sink) resolve(r Result) {
	s.once.Do(func() {
		s.result = r
		close(s.done)
	})
}

// Done is closed when the result resolves.
func (s *Sink) Done() <-chan struct{} { return s.done }

// Closed reports whether End or Error has been called.
func (s *Sink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Written returns the number of bytes accepted so far.
func (s *Sink) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Result blocks until the sink resolves and returns its outcome.
func (s *Sink) Result() Result {
	<-s.done
	return s.result
}

// Wait is Result bounded by ctx.
func (s *Sink) Wait(ctx context.Context) (Result, error) {
	select {
	case <-s.done:
		return s.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
