//go:build integration

package tts_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/teslashibe/go-tts/pkg/tts"
)

func exercise(t *testing.T, provider tts.Provider, text string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t.Run("Health", func(t *testing.T) {
		if err := provider.Health(ctx); err != nil {
			t.Fatalf("health check failed: %v", err)
		}
	})

	t.Run("Synthesize", func(t *testing.T) {
		result, err := provider.Synthesize(ctx, tts.Request{Text: text})
		if err != nil {
			t.Fatalf("synthesize failed: %v", err)
		}
		t.Logf("synthesized %d bytes, latency %dms", len(result.Audio), result.LatencyMs)
		if len(result.Audio) < 1000 {
			t.Error("audio too short, expected at least 1KB")
		}
	})

	t.Run("Stream", func(t *testing.T) {
		stream, err := provider.Stream(ctx, tts.Request{Text: text})
		if err != nil {
			t.Fatalf("stream failed: %v", err)
		}
		defer stream.Close()

		total, chunks := 0, 0
		for {
			chunk, err := stream.Read()
			if err != nil {
				t.Fatalf("stream read error: %v", err)
			}
			if chunk == nil {
				break
			}
			total += len(chunk)
			chunks++
		}
		t.Logf("streamed %d bytes in %d chunks", total, chunks)
		if total < 1000 {
			t.Error("streamed audio too short")
		}
	})
}

// Run with: go test -tags=integration -v ./pkg/tts/...
func TestOpenAIIntegration(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set")
	}

	provider, err := tts.NewOpenAI(
		tts.WithAPIKey(apiKey),
		tts.WithVoice(tts.VoiceShimmer),
		tts.WithModel(tts.ModelTTS1),
	)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer provider.Close()

	exercise(t, provider, "Hello, this is a speech synthesis test.")
}

func TestElevenLabsIntegration(t *testing.T) {
	apiKey := os.Getenv("ELEVENLABS_API_KEY")
	if apiKey == "" {
		t.Skip("ELEVENLABS_API_KEY not set")
	}

	provider, err := tts.NewElevenLabs(tts.WithAPIKey(apiKey))
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer provider.Close()

	exercise(t, provider, "Testing streaming audio.")
}
