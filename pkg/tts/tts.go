// Package tts provides a unified interface for text-to-speech providers.
//
// The package supports multiple TTS backends including the Volcengine streaming
// websocket service (see pkg/volcano) and the OpenAI speech API. All providers
// implement the Provider interface, and a Registry maps voice selectors to the
// provider that owns them.
//
// Example usage:
//
//	provider, _ := tts.NewOpenAI(
//	    tts.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    tts.WithVoice(tts.VoiceNova),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, tts.Request{Text: "Hello world"})
//	// result.Audio contains MP3 audio bytes
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
// All implementations must satisfy this interface for seamless provider switching.
type Provider interface {
	// Name identifies the provider in logs and errors.
	Name() string

	// Voices lists the voices this provider can synthesize.
	Voices() []Voice

	// Synthesize converts text to audio, returning the complete audio buffer.
	Synthesize(ctx context.Context, req Request) (*AudioResult, error)

	// Stream converts text to audio with streaming output.
	// Audio chunks are returned as they become available.
	Stream(ctx context.Context, req Request) (AudioStream, error)

	// Health checks provider connectivity and credentials.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Request is a single synthesis call.
type Request struct {
	Text string

	// Voice is a provider voice ID. Empty selects the provider default.
	Voice string
}

// Voice describes one selectable speaker.
type Voice struct {
	ID          string `json:"id"`
	DisplayName string `json:"name,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Provider    string `json:"provider,omitempty"`
}

// AudioStream represents a streaming audio response.
// Callers should read until Read returns nil, then call Close.
type AudioStream interface {
	// Read returns the next audio chunk.
	// Returns nil when the stream is complete (not an error).
	Read() ([]byte, error)

	// Close stops the stream and releases resources.
	Close() error

	// Format returns the audio format metadata.
	Format() AudioFormat
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the raw audio data in the specified format.
	Audio []byte

	// Format describes the audio encoding and sample rate.
	Format AudioFormat

	// Voice is the voice that produced the audio.
	Voice string

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the total synthesis time in milliseconds.
	LatencyMs int64
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	// Encoding specifies the audio codec.
	Encoding Encoding

	// SampleRate in Hz (e.g., 24000, 44100, 22050).
	SampleRate int

	// Channels is 1 for mono, 2 for stereo.
	Channels int
}

// Encoding represents audio encoding types.
type Encoding string

const (
	EncodingMP3 Encoding = "mp3"
	EncodingWAV Encoding = "wav"
	EncodingPCM Encoding = "pcm"
	EncodingOGG Encoding = "ogg_opus"
)

// ContentType returns the MIME type for an encoding.
func (e Encoding) ContentType() string {
	switch e {
	case EncodingWAV:
		return "audio/wav"
	case EncodingPCM:
		return "audio/pcm"
	case EncodingOGG:
		return "audio/ogg"
	default:
		return "audio/mpeg"
	}
}

// elapsedMs is a small helper for latency fields.
func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
