package volcano

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/teslashibe/go-tts/pkg/tts"
)

// Provider adapts a Client to tts.Provider for registry-based selection.
type Provider struct {
	client    *Client
	variant   Variant
	operation Operation
}

// NewProvider wraps client. A nil variant selects Basic.
func NewProvider(client *Client, v Variant, op Operation) *Provider {
	if v == nil {
		v = Basic
	}
	if op == "" {
		op = OperationSubmit
	}
	return &Provider{client: client, variant: v, operation: op}
}

// Name implements tts.Provider.
func (p *Provider) Name() string { return providerName }

// Voices implements tts.Provider.
func (p *Provider) Voices() []tts.Voice { return Voices }

// Synthesize runs one buffered session.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (*tts.AudioResult, error) {
	start := time.Now()
	voice := voiceOrDefault(req.Voice)

	res := p.client.Synthesize(ctx, p.request(req), p.variant, nil)
	if res.Err != nil {
		return nil, tts.WrapError(providerName, res.Err)
	}
	return &tts.AudioResult{
		Audio:     res.Audio,
		Format:    p.format(),
		Voice:     voice,
		CharCount: len(req.Text),
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// Stream runs the session in the background and returns its audio as it arrives.
// Credential problems are reported before any goroutine starts.
func (p *Provider) Stream(ctx context.Context, req tts.Request) (tts.AudioStream, error) {
	if err := p.client.cfg.Validate(); err != nil {
		return nil, tts.WrapError(providerName, err)
	}
	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	go func() {
		p.client.Synthesize(ctx, p.request(req), p.variant, pw)
	}()
	return &pipeStream{r: pr, cancel: cancel, format: p.format()}, nil
}

// Health reports missing credentials. The service has no cheap probe endpoint.
func (p *Provider) Health(ctx context.Context) error {
	return p.client.cfg.Validate()
}

// Close implements tts.Provider.
func (p *Provider) Close() error { return nil }

func (p *Provider) request(req tts.Request) Request {
	return Request{
		Text:      req.Text,
		VoiceID:   voiceOrDefault(req.Voice),
		Operation: p.operation,
	}
}

func (p *Provider) format() tts.AudioFormat {
	return tts.AudioFormat{Encoding: tts.Encoding(p.client.cfg.Encoding), SampleRate: 24000, Channels: 1}
}

func voiceOrDefault(v string) string {
	if v == "" {
		return DefaultVoice
	}
	return v
}

const streamChunkSize = 32 * 1024

// pipeStream reads a session's output pipe as an AudioStream.
type pipeStream struct {
	r      *io.PipeReader
	cancel context.CancelFunc
	format tts.AudioFormat
}

func (s *pipeStream) Read() ([]byte, error) {
	buf := make([]byte, streamChunkSize)
	n, err := s.r.Read(buf)
	for n == 0 && err == nil {
		n, err = s.r.Read(buf)
	}
	if n > 0 {
		return buf[:n], nil
	}
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if errors.Is(err, io.ErrClosedPipe) {
		return nil, tts.ErrStreamClosed
	}
	return nil, err
}

func (s *pipeStream) Close() error {
	s.cancel()
	return s.r.Close()
}

func (s *pipeStream) Format() tts.AudioFormat { return s.format }

var _ tts.Provider = (*Provider)(nil)
