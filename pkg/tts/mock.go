package tts

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Mock implements Provider for testing.
// All methods can be customized via function fields.
type Mock struct {
	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// VoiceList is returned by Voices.
	VoiceList []Voice

	// SynthesizeFunc is called when Synthesize is invoked.
	// If nil, returns an error.
	SynthesizeFunc func(ctx context.Context, req Request) (*AudioResult, error)

	// StreamFunc is called when Stream is invoked.
	// If nil, the Synthesize result is returned as a single chunk.
	StreamFunc func(ctx context.Context, req Request) (AudioStream, error)

	// HealthFunc is called when Health is invoked.
	// If nil, returns nil (healthy).
	HealthFunc func(ctx context.Context) error

	// CloseFunc is called when Close is invoked.
	// If nil, returns nil.
	CloseFunc func() error

	// Tracking
	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method string
	Text   string
	Voice  string
	Time   time.Time
}

// NewMock creates a mock provider that echoes the request as audio bytes.
// The audio for text "hi" with voice "v" is "[v]hi".
func NewMock(voices ...Voice) *Mock {
	return &Mock{
		VoiceList: voices,
		SynthesizeFunc: func(ctx context.Context, req Request) (*AudioResult, error) {
			var b strings.Builder
			if req.Voice != "" {
				b.WriteString("[" + req.Voice + "]")
			}
			b.WriteString(req.Text)
			return &AudioResult{
				Audio:     []byte(b.String()),
				Format:    AudioFormat{Encoding: EncodingMP3, SampleRate: 24000, Channels: 1},
				Voice:     req.Voice,
				CharCount: len(req.Text),
			}, nil
		},
		HealthFunc: func(ctx context.Context) error {
			return nil
		},
	}
}

// Name implements Provider.
func (m *Mock) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// Voices implements Provider.
func (m *Mock) Voices() []Voice {
	return m.VoiceList
}

// Synthesize calls SynthesizeFunc and records the call.
func (m *Mock) Synthesize(ctx context.Context, req Request) (*AudioResult, error) {
	m.recordCall("Synthesize", req)
	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, req)
	}
	return nil, WrapError(m.Name(), ErrProviderUnavailable)
}

// Stream calls StreamFunc and records the call.
func (m *Mock) Stream(ctx context.Context, req Request) (AudioStream, error) {
	m.recordCall("Stream", req)
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, req)
	}
	if m.SynthesizeFunc != nil {
		result, err := m.SynthesizeFunc(ctx, req)
		if err != nil {
			return nil, err
		}
		return &bufferStream{data: result.Audio, format: result.Format}, nil
	}
	return nil, WrapError(m.Name(), ErrProviderUnavailable)
}

// Health calls HealthFunc and records the call.
func (m *Mock) Health(ctx context.Context) error {
	m.recordCall("Health", Request{})
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.recordCall("Close", Request{})
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *Mock) recordCall(method string, req Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{
		Method: method,
		Text:   req.Text,
		Voice:  req.Voice,
		Time:   time.Now(),
	})
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// LastCall returns the most recent call, or nil if none.
func (m *Mock) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	call := m.calls[len(m.calls)-1]
	return &call
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// WithError returns a mock that always returns the given error.
func WithError(err error, voices ...Voice) *Mock {
	return &Mock{
		VoiceList: voices,
		SynthesizeFunc: func(ctx context.Context, req Request) (*AudioResult, error) {
			return nil, err
		},
		StreamFunc: func(ctx context.Context, req Request) (AudioStream, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
	}
}

// WithLatency wraps a mock to add artificial latency.
func WithLatency(m *Mock, delay time.Duration) *Mock {
	originalSynthesize := m.SynthesizeFunc
	m.SynthesizeFunc = func(ctx context.Context, req Request) (*AudioResult, error) {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if originalSynthesize != nil {
			return originalSynthesize(ctx, req)
		}
		return nil, WrapError(m.Name(), ErrProviderUnavailable)
	}
	return m
}

// bufferStream wraps a byte slice as AudioStream.
type bufferStream struct {
	data   []byte
	offset int
	format AudioFormat
}

// Read returns the remaining buffer as one chunk.
func (s *bufferStream) Read() ([]byte, error) {
	if s.offset >= len(s.data) {
		return nil, nil
	}
	chunk := s.data[s.offset:]
	s.offset = len(s.data)
	return chunk, nil
}

// Close releases resources.
func (s *bufferStream) Close() error {
	return nil
}

// Format returns the audio format.
func (s *bufferStream) Format() AudioFormat {
	return s.format
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
