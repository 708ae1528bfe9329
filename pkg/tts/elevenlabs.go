package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/teslashibe/go-tts/internal/httpc"
)

const (
	elevenLabsBaseURL  = "https://api.elevenlabs.io/v1"
	providerElevenLabs = "elevenlabs"
)

// ElevenLabs model IDs
const (
	// ModelTurboV2_5 is the fastest English model (~200ms latency).
	ModelTurboV2_5 = "eleven_turbo_v2_5"

	// ModelFlashV2_5 is the fastest multilingual model (~150ms latency).
	ModelFlashV2_5 = "eleven_flash_v2_5"

	// ModelMultilingualV2 is the highest quality multilingual model (~300ms latency).
	ModelMultilingualV2 = "eleven_multilingual_v2"
)

// ElevenLabsVoices are the premade voices, selectable by id or name.
var ElevenLabsVoices = []Voice{
	{ID: "XB0fDUnXU5powFXDhCwa", DisplayName: "Charlotte", Gender: "female"}, // British, warm
	{ID: "9BWtsMINqrJLrRacOk9x", DisplayName: "Aria", Gender: "female"},
	{ID: "EXAVITQu4vr4xnSDxMaL", DisplayName: "Sarah", Gender: "female"},
	{ID: "pFZP5JQG7iQjIQuC4Bku", DisplayName: "Lily", Gender: "female"},
	{ID: "21m00Tcm4TlvDq8ikWAM", DisplayName: "Rachel", Gender: "female"},
	{ID: "AZnzlk1XvdvUeBnXmlld", DisplayName: "Domi", Gender: "female"},
	{ID: "MF3mGyEYCl7XYWbV9V6O", DisplayName: "Elli", Gender: "female"},
	{ID: "TxGEqnHWrfWFTfGW9XjX", DisplayName: "Josh", Gender: "male"},
	{ID: "pNInz6obpgDQGcFmaJgB", DisplayName: "Adam", Gender: "male"},
	{ID: "yoZ06aMxZJJ28mfd3POQ", DisplayName: "Sam", Gender: "male"},
}

// DefaultElevenLabsVoice is Charlotte.
const DefaultElevenLabsVoice = "XB0fDUnXU5powFXDhCwa"

// ElevenLabs implements Provider for the ElevenLabs text-to-speech API.
// Stream reads the chunked /stream endpoint as audio arrives.
type ElevenLabs struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewElevenLabs creates a new ElevenLabs TTS provider.
func NewElevenLabs(opts ...Option) (*ElevenLabs, error) {
	cfg := DefaultConfig()
	cfg.ModelID = ModelTurboV2_5
	cfg.VoiceID = DefaultElevenLabsVoice
	cfg.Apply(opts...)

	if err := cfg.ValidateWithVoice(); err != nil {
		return nil, err
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = elevenLabsBaseURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = httpc.NewClient(cfg.Timeout)
	}

	return &ElevenLabs{
		config:  cfg,
		client:  client,
		logger:  cfg.Logger.With("component", "tts.elevenlabs"),
		baseURL: baseURL,
	}, nil
}

// Name implements Provider.
func (e *ElevenLabs) Name() string { return providerElevenLabs }

// Voices implements Provider.
func (e *ElevenLabs) Voices() []Voice { return ElevenLabsVoices }

// Synthesize converts text to audio, returning the complete audio buffer.
func (e *ElevenLabs) Synthesize(ctx context.Context, req Request) (*AudioResult, error) {
	start := time.Now()
	voice := e.voice(req)

	resp, err := e.post(ctx, "/text-to-speech/"+voice, req.Text)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(providerElevenLabs, &TransportError{Op: "read", Err: err})
	}

	latency := elapsedMs(start)
	e.logger.Debug("synthesized audio",
		"chars", len(req.Text),
		"bytes", len(audio),
		"latency_ms", latency,
		"model", e.config.ModelID,
	)

	return &AudioResult{
		Audio:     audio,
		Format:    e.outputFormat(),
		Voice:     voice,
		CharCount: len(req.Text),
		LatencyMs: latency,
	}, nil
}

// Stream converts text to audio with streaming output for lowest latency.
func (e *ElevenLabs) Stream(ctx context.Context, req Request) (AudioStream, error) {
	resp, err := e.post(ctx, "/text-to-speech/"+e.voice(req)+"/stream", req.Text)
	if err != nil {
		return nil, err
	}
	return &httpStream{body: resp.Body, format: e.outputFormat()}, nil
}

// Health checks API connectivity and API key validity.
func (e *ElevenLabs) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/user", nil)
	if err != nil {
		return WrapError(providerElevenLabs, err)
	}
	req.Header.Set("xi-api-key", e.config.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return WrapError(providerElevenLabs, &TransportError{Op: "health", Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return e.parseError(resp)
	}
	return nil
}

// Close releases resources held by the provider.
func (e *ElevenLabs) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

func (e *ElevenLabs) voice(req Request) string {
	if req.Voice != "" {
		return req.Voice
	}
	return e.config.VoiceID
}

// post sends a synthesis request and returns the response on 200.
func (e *ElevenLabs) post(ctx context.Context, path, text string) (*http.Response, error) {
	body, err := sonic.Marshal(map[string]any{
		"text":     text,
		"model_id": e.config.ModelID,
	})
	if err != nil {
		return nil, WrapError(providerElevenLabs, fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(providerElevenLabs, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("xi-api-key", e.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", e.config.OutputFormat.ContentType())

	resp, err := e.doWithRetry(ctx, req, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, e.parseError(resp)
	}
	return resp, nil
}

// doWithRetry performs the request, retrying rate limits and server errors.
func (e *ElevenLabs) doWithRetry(ctx context.Context, req *http.Request, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= e.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.config.RetryDelay * time.Duration(attempt)):
			}
			req.Body = io.NopCloser(bytes.NewReader(body))
		}

		resp, err := e.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = WrapError(providerElevenLabs, &TransportError{Op: "request", Err: err})
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = e.parseError(resp)
			resp.Body.Close()
			e.logger.Warn("retrying request",
				"attempt", attempt+1,
				"status", resp.StatusCode,
			)
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// parseError reads and parses an error response.
func (e *ElevenLabs) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Detail struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"detail"`
	}

	message := string(body)
	code := ""
	if sonic.Unmarshal(body, &errResp) == nil && errResp.Detail.Message != "" {
		message = errResp.Detail.Message
		code = errResp.Detail.Status
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Code:       code,
		Provider:   providerElevenLabs,
	}
}

func (e *ElevenLabs) outputFormat() AudioFormat {
	return AudioFormat{Encoding: e.config.OutputFormat, SampleRate: 44100, Channels: 1}
}

// httpStream wraps an HTTP response body as AudioStream.
type httpStream struct {
	body   io.ReadCloser
	format AudioFormat
	buf    [4096]byte
}

// Read returns the next audio chunk.
func (s *httpStream) Read() ([]byte, error) {
	n, err := s.body.Read(s.buf[:])
	if n > 0 {
		chunk := make([]byte, n)
		copy(chunk, s.buf[:n])
		return chunk, nil
	}
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, WrapError(providerElevenLabs, &TransportError{Op: "read", Err: err})
	}
	return s.Read()
}

// Close stops the stream.
func (s *httpStream) Close() error {
	return s.body.Close()
}

// Format returns the audio format.
func (s *httpStream) Format() AudioFormat {
	return s.format
}

// Verify ElevenLabs implements Provider at compile time.
var _ Provider = (*ElevenLabs)(nil)
