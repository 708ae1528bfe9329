package web

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-tts/pkg/speech"
	"github.com/teslashibe/go-tts/pkg/tts"
	"github.com/teslashibe/go-tts/pkg/volcano"
)

// SynthesizeRequest is the body of POST /api/tts
type SynthesizeRequest struct {
	Text      string `json:"text"`
	Speaker   string `json:"speaker"`
	Protocol  string `json:"protocol,omitempty"`
	Operation string `json:"operation,omitempty"`
}

const streamChunk = 32 * 1024

// handleSynthesize streams synthesized audio as chunked audio/mpeg.
// The status is decided by the first chunk: a failure before any audio
// is reported as JSON with a status matching the error kind.
func (s *Server) handleSynthesize(c *fiber.Ctx) error {
	var req SynthesizeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "text is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	pr, pw := io.Pipe()
	go func() {
		// Errors reach the reader through the pipe.
		_, _ = s.synth.Synthesize(ctx, speech.Request{
			Text:        req.Text,
			Voice:       req.Speaker,
			Protocol:    speech.ParseProtocol(req.Protocol),
			Operation:   volcano.ParseOperation(req.Operation),
			Destination: pw,
		})
	}()

	br := bufio.NewReaderSize(pr, streamChunk)
	if _, err := br.Peek(1); err != nil && !errors.Is(err, io.EOF) {
		cancel()
		s.logger.Warn("synthesis failed", "kind", tts.KindOf(err), "error", err)
		return c.Status(statusFor(err)).JSON(fiber.Map{
			"error": err.Error(),
			"kind":  string(tts.KindOf(err)),
		})
	}

	c.Set(fiber.HeaderContentType, tts.EncodingMP3.ContentType())
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		buf := make([]byte, streamChunk)
		for {
			n, err := br.Read(buf)
			if n > 0 {
				if _, werr := w.Write(buf[:n]); werr != nil {
					pr.CloseWithError(werr)
					return
				}
				if ferr := w.Flush(); ferr != nil {
					// Client went away.
					pr.CloseWithError(ferr)
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					s.logger.Warn("synthesis failed mid-stream", "kind", tts.KindOf(err), "error", err)
				}
				return
			}
		}
	})
	return nil
}

// statusFor maps a synthesis failure to an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, tts.ErrUnknownVoice) {
		return fiber.StatusBadRequest
	}
	switch tts.KindOf(err) {
	case tts.KindConfiguration:
		return fiber.StatusServiceUnavailable
	case tts.KindTransport, tts.KindProtocol, tts.KindService:
		return fiber.StatusBadGateway
	case tts.KindAborted:
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

// handleListVoices returns the voice catalog, optionally for one provider
func (s *Server) handleListVoices(c *fiber.Ctx) error {
	voices := s.synth.ListVoices()
	if p := c.Query("provider"); p != "" {
		filtered := make([]tts.Voice, 0, len(voices))
		for _, v := range voices {
			if v.Provider == p {
				filtered = append(filtered, v)
			}
		}
		voices = filtered
	}
	return c.JSON(voices)
}

// handleHealth reports per-provider health. It fails only when no
// provider is healthy.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	results := s.synth.Health(ctx)
	providers := make(fiber.Map, len(results))
	healthy := 0
	for name, err := range results {
		if err != nil {
			providers[name] = err.Error()
			continue
		}
		providers[name] = "ok"
		healthy++
	}

	status := "ok"
	code := fiber.StatusOK
	if healthy == 0 {
		status = "unavailable"
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":    status,
		"providers": providers,
	})
}
