package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/teslashibe/go-tts/internal/config"
	"github.com/teslashibe/go-tts/internal/log"
	"github.com/teslashibe/go-tts/internal/metrics"
	"github.com/teslashibe/go-tts/pkg/segment"
	"github.com/teslashibe/go-tts/pkg/speech"
	"github.com/teslashibe/go-tts/pkg/tts"
	"github.com/teslashibe/go-tts/pkg/volcano"
)

// buildClient wires the providers named by cfg into a speech client.
// reg may be nil when nothing scrapes the collectors.
func buildClient(cfg config.Config, reg prometheus.Registerer) (*speech.Client, error) {
	logger := log.L()
	m := metrics.New(reg)

	opts := []speech.Option{
		speech.WithLogger(logger),
		speech.WithMetrics(m),
		speech.WithDefaultVoice(cfg.TTS.DefaultVoice),
		speech.WithDefaultText(cfg.TTS.DefaultText),
	}

	if cfg.Volcano.Configured() {
		opts = append(opts, speech.WithVolcano(volcano.NewClient(
			volcano.WithCredentials(cfg.Volcano.AppID, cfg.Volcano.AccessToken),
			volcano.WithUserID(cfg.Volcano.UserID),
			volcano.WithCluster(cfg.Volcano.Cluster),
			volcano.WithEndpoint(cfg.Volcano.Endpoint),
			volcano.WithEncoding(cfg.Volcano.Encoding),
			volcano.WithLogger(logger),
			volcano.WithMetrics(m),
		)))
	} else {
		logger.Warn("volcano credentials not set, provider disabled")
	}

	if cfg.OpenAI.Configured() {
		p, err := tts.NewOpenAI(
			tts.WithAPIKey(cfg.OpenAI.APIKey),
			tts.WithModel(cfg.OpenAI.Model),
			tts.WithBaseURL(cfg.OpenAI.BaseURL),
			tts.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("openai provider: %w", err)
		}
		opts = append(opts, speech.WithProvider(p))
	}

	if cfg.ElevenLabs.Configured() {
		p, err := tts.NewElevenLabs(
			tts.WithAPIKey(cfg.ElevenLabs.APIKey),
			tts.WithModel(cfg.ElevenLabs.Model),
			tts.WithBaseURL(cfg.ElevenLabs.BaseURL),
			tts.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("elevenlabs provider: %w", err)
		}
		opts = append(opts, speech.WithProvider(p))
	}

	if cfg.TTS.RulesFile != "" {
		rules, err := segment.LoadRules(cfg.TTS.RulesFile)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded replacement rules", "file", cfg.TTS.RulesFile, "count", len(rules))
		opts = append(opts, speech.WithRules(rules))
	}

	if dir := cfg.TTS.AudioBasePath; dir != "" {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			opts = append(opts, speech.WithAssets(os.DirFS(dir)))
		} else {
			logger.Debug("audio asset directory unavailable", slog.String("path", dir))
		}
	}

	return speech.New(opts...), nil
}
