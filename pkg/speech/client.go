// Package speech is the synthesis entry point. It picks a backend for each
// request, either the streaming volcano session or a registry provider with
// default-voice fallback, and runs the text through the segment pipeline
// when replacement rules, a custom splitter or a text filter are present.
package speech

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/teslashibe/go-tts/internal/metrics"
	"github.com/teslashibe/go-tts/pkg/segment"
	"github.com/teslashibe/go-tts/pkg/stream"
	"github.com/teslashibe/go-tts/pkg/tts"
	"github.com/teslashibe/go-tts/pkg/volcano"
)

// DefaultText is synthesized when a request carries no text.
const DefaultText = "你好，我是语音合成助手。"

// Protocol selects the backend.
type Protocol string

const (
	// ProtocolDefault resolves the voice through the provider registry.
	ProtocolDefault Protocol = "default"

	// ProtocolStreaming talks to the volcano service directly with the
	// extended dialect.
	ProtocolStreaming Protocol = "streaming"
)

// ParseProtocol accepts "streaming" and its alias "websocket".
func ParseProtocol(s string) Protocol {
	switch s {
	case "streaming", "websocket":
		return ProtocolStreaming
	default:
		return ProtocolDefault
	}
}

// Request is one synthesis call.
type Request struct {
	Text     string
	Voice    string
	Protocol Protocol

	// Operation is only sent on the streaming protocol.
	Operation volcano.Operation

	// Destination receives audio as it is produced. When nil the audio is
	// buffered and returned by Synthesize.
	Destination stream.Destination

	// Rules and Splitter enable segmentation; Splitter wins when both are set.
	Rules    []segment.Rule
	Splitter segment.Splitter

	// TextFilter rewrites each text segment before synthesis.
	TextFilter func(string) string

	// Assets overrides the client's asset filesystem.
	Assets fs.FS
}

// Client is a preconfigured synthesizer.
type Client struct {
	volcano      *volcano.Client
	registry     *tts.Registry
	defaultVoice string
	defaultText  string
	assets       fs.FS
	rules        []segment.Rule
	filter       func(string) string
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithVolcano enables the streaming protocol and registers the client as a
// basic-dialect registry provider.
func WithVolcano(c *volcano.Client) Option {
	return func(cl *Client) {
		cl.volcano = c
		cl.registry.Register(volcano.NewProvider(c, volcano.Basic, volcano.OperationSubmit))
	}
}

// WithProvider registers an additional provider.
func WithProvider(p tts.Provider) Option {
	return func(c *Client) { c.registry.Register(p) }
}

// WithDefaultVoice sets the fallback voice, by ID or display name.
func WithDefaultVoice(v string) Option {
	return func(c *Client) { c.defaultVoice = v }
}

// WithDefaultText sets the text used for empty requests.
func WithDefaultText(s string) Option {
	return func(c *Client) {
		if s != "" {
			c.defaultText = s
		}
	}
}

// WithAssets sets the filesystem audio rule paths are resolved in.
func WithAssets(fsys fs.FS) Option {
	return func(c *Client) { c.assets = fsys }
}

// WithRules sets replacement rules applied to every request without its own.
func WithRules(rules []segment.Rule) Option {
	return func(c *Client) { c.rules = rules }
}

// WithTextFilter sets the filter applied when a request has none.
func WithTextFilter(f func(string) string) Option {
	return func(c *Client) { c.filter = f }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics sets the collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client.
func New(opts ...Option) *Client {
	c := &Client{
		registry:    tts.NewRegistry(),
		defaultText: DefaultText,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "speech")
	return c
}

// Registry returns the provider registry.
func (c *Client) Registry() *tts.Registry { return c.registry }

// ListVoices returns every voice of every registered provider.
func (c *Client) ListVoices() []tts.Voice { return c.registry.ListVoices() }

// Synthesize runs req. It returns the audio when req.Destination is nil and
// nil bytes otherwise. Failures of individual segments are logged and
// skipped; failures of the whole call are returned.
func (c *Client) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	text := req.Text
	if text == "" {
		text = c.defaultText
	}

	b, err := c.backend(req)
	if err != nil {
		c.logger.Warn("no backend for request", "voice", req.Voice, "error", err)
		if req.Destination != nil {
			_ = req.Destination.CloseWithError(err)
		}
		return nil, err
	}

	out := stream.New(req.Destination, stream.WithLogger(c.logger))

	rules := req.Rules
	if rules == nil {
		rules = c.rules
	}
	filter := req.TextFilter
	if filter == nil {
		filter = c.filter
	}

	if req.Splitter == nil && len(rules) == 0 && filter == nil {
		b.StreamText(ctx, text, out)
	} else {
		assets := req.Assets
		if assets == nil {
			assets = c.assets
		}
		p := &segment.Pipeline{
			Synth:   b,
			Assets:  assets,
			Filter:  filter,
			Logger:  c.logger,
			Metrics: c.metrics,
		}
		report := p.Run(ctx, text, segment.Select(req.Splitter, rules), out)
		if len(report.Failures) > 0 || len(report.MissingAssets) > 0 {
			c.logger.Warn("document synthesized with gaps",
				"segments", len(report.Segments),
				"failures", len(report.Failures),
				"missing_assets", len(report.MissingAssets),
			)
		}
	}

	res := out.Result()
	if res.Err != nil {
		c.logger.Warn("synthesis failed", "kind", tts.KindOf(res.Err), "error", res.Err)
		return nil, res.Err
	}
	return res.Audio, nil
}

// Health checks every provider and returns the failures by provider name.
func (c *Client) Health(ctx context.Context) map[string]error {
	out := make(map[string]error)
	for _, p := range c.registry.Providers() {
		out[p.Name()] = p.Health(ctx)
	}
	return out
}

// backend is the per-request synthesis target.
type backend interface {
	segment.Synthesizer

	// StreamText synthesizes text straight into out and resolves it.
	StreamText(ctx context.Context, text string, out *stream.Sink)
}

func (c *Client) backend(req Request) (backend, error) {
	if req.Protocol == ProtocolStreaming {
		if c.volcano != nil {
			return &volcanoBackend{
				client:    c.volcano,
				voice:     c.volcanoVoice(req.Voice),
				operation: req.Operation,
			}, nil
		}
		c.logger.Warn("streaming protocol requested without volcano credentials, using registry")
	}

	candidates, err := c.registry.Candidates(req.Voice, c.defaultVoice)
	if err != nil {
		return nil, err
	}
	chain, err := tts.NewChainWithLogger(c.logger, candidates...)
	if err != nil {
		return nil, err
	}
	return &providerBackend{chain: chain}, nil
}

// volcanoVoice maps a selector to a volcano voice ID, passing unknown IDs through.
func (c *Client) volcanoVoice(sel string) string {
	if sel == "" {
		sel = c.defaultVoice
	}
	if p, v, ok := c.registry.Lookup(sel); ok && p.Name() == "volcano" {
		return v.ID
	}
	if sel == "" {
		return volcano.DefaultVoice
	}
	return sel
}

type volcanoBackend struct {
	client    *volcano.Client
	voice     string
	operation volcano.Operation
}

func (b *volcanoBackend) request(text string) volcano.Request {
	return volcano.Request{Text: text, VoiceID: b.voice, Operation: b.operation}
}

func (b *volcanoBackend) SynthesizeText(ctx context.Context, text string) ([]byte, error) {
	res := b.client.Synthesize(ctx, b.request(text), volcano.Extended, nil)
	return res.Audio, res.Err
}

func (b *volcanoBackend) StreamText(ctx context.Context, text string, out *stream.Sink) {
	b.client.NewSession(b.request(text), volcano.Extended, out).Run(ctx)
}

type providerBackend struct {
	chain *tts.Chain
}

func (b *providerBackend) SynthesizeText(ctx context.Context, text string) ([]byte, error) {
	res, err := b.chain.Synthesize(ctx, tts.Request{Text: text})
	if err != nil {
		return nil, err
	}
	return res.Audio, nil
}

func (b *providerBackend) StreamText(ctx context.Context, text string, out *stream.Sink) {
	st, err := b.chain.Stream(ctx, tts.Request{Text: text})
	if err != nil {
		out.Error(err, "open stream")
		return
	}
	defer st.Close()

	for {
		chunk, err := st.Read()
		if err != nil {
			out.Error(err, "read stream")
			return
		}
		if chunk == nil {
			out.End()
			return
		}
		if err := out.Push(chunk); err != nil {
			if !errors.Is(err, stream.ErrSinkClosed) {
				out.Error(err, "push")
			}
			return
		}
	}
}
