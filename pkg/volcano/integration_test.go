//go:build integration

package volcano_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/teslashibe/go-tts/pkg/volcano"
)

// Run with: go test -tags=integration -v ./pkg/volcano/...
func TestVolcanoIntegration(t *testing.T) {
	appID := os.Getenv("VOLCANO_TTS_APP_ID")
	token := os.Getenv("VOLCANO_TTS_ACCESS_TOKEN")
	if appID == "" || token == "" {
		t.Skip("VOLCANO_TTS_APP_ID or VOLCANO_TTS_ACCESS_TOKEN not set")
	}

	client := volcano.NewClient(volcano.WithCredentials(appID, token))

	for _, v := range []volcano.Variant{volcano.Basic, volcano.Extended} {
		t.Run(v.Name(), func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			res := client.Synthesize(ctx, volcano.Request{
				Text:      "你好，我是语音合成助手。",
				VoiceID:   volcano.DefaultVoice,
				Operation: volcano.OperationSubmit,
			}, v, nil)
			if res.Err != nil {
				t.Fatalf("synthesize failed: %v", res.Err)
			}
			t.Logf("received %d bytes", len(res.Audio))
			if len(res.Audio) < 1000 {
				t.Error("audio too short, expected at least 1KB")
			}
		})
	}
}
