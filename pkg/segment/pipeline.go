package segment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/teslashibe/go-tts/internal/metrics"
	"github.com/teslashibe/go-tts/pkg/stream"
	"github.com/teslashibe/go-tts/pkg/tts"
)

// Synthesizer produces the audio for one text segment. Each call owns its
// own request-scoped sink and returns the accumulated bytes.
type Synthesizer interface {
	SynthesizeText(ctx context.Context, text string) ([]byte, error)
}

// SynthesizerFunc adapts a function to Synthesizer.
type SynthesizerFunc func(ctx context.Context, text string) ([]byte, error)

// SynthesizeText implements Synthesizer.
func (f SynthesizerFunc) SynthesizeText(ctx context.Context, text string) ([]byte, error) {
	return f(ctx, text)
}

// AssetNotFoundError reports an audio path missing from the asset filesystem.
type AssetNotFoundError struct {
	Path string
	Err  error
}

func (e *AssetNotFoundError) Error() string {
	return fmt.Sprintf("segment: audio asset %q not found", e.Path)
}

func (e *AssetNotFoundError) Unwrap() error { return e.Err }

// Kind implements the tts error classification.
func (e *AssetNotFoundError) Kind() tts.Kind { return tts.KindAssetNotFound }

// SegmentError is a failure isolated to one segment.
type SegmentError struct {
	Index   int
	Segment Segment
	Err     error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %d (%s): %v", e.Index, e.Segment.Kind, e.Err)
}

func (e *SegmentError) Unwrap() error { return e.Err }

// Kind implements the tts error classification.
func (e *SegmentError) Kind() tts.Kind { return tts.KindSegment }

// Report summarizes one pipeline run.
type Report struct {
	Segments      []Segment
	Failures      []error
	MissingAssets []string
	Bytes         int64
}

// Pipeline runs segments in document order into one shared sink.
type Pipeline struct {
	Synth Synthesizer

	// Assets holds audio files referenced by rules. Nil means none exist.
	Assets fs.FS

	// Filter rewrites text segments before synthesis.
	Filter func(string) string

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Run splits text and processes every segment, one at a time, into out.
// A failing segment is logged and skipped. out is closed exactly once
// when Run returns.
func (p *Pipeline) Run(ctx context.Context, text string, splitter Splitter, out *stream.Sink) Report {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "segment.pipeline")

	if splitter == nil {
		splitter = Whole{}
	}

	var report Report
	segs, err := splitter.Split(text)
	if err != nil {
		logger.Error("split document", "error", err)
		report.Failures = append(report.Failures, err)
		out.Error(err, "split document")
		return report
	}
	report.Segments = segs
	logger.Debug("document split", "segments", len(segs), "chars", len(text))

	for i, seg := range segs {
		if err := ctx.Err(); err != nil {
			logger.Info("pipeline aborted", "segment", i, "error", err)
			out.Error(fmt.Errorf("%w: %w", tts.ErrAborted, err), "pipeline")
			report.Bytes = out.Written()
			return report
		}
		if out.Closed() {
			logger.Warn("output closed early, stopping", "segment", i)
			break
		}

		var segErr error
		switch seg.Kind {
		case KindText:
			segErr = p.runText(ctx, seg, out, logger)
		case KindAudio:
			segErr = p.runAudio(seg, out, &report, logger)
		default:
			segErr = fmt.Errorf("unknown segment kind %d", seg.Kind)
		}

		outcome := "ok"
		if segErr != nil {
			outcome = "failed"
			se := &SegmentError{Index: i, Segment: seg, Err: segErr}
			report.Failures = append(report.Failures, se)
			logger.Warn("segment failed, continuing", "segment", i, "kind", seg.Kind, "error", segErr)
		}
		p.Metrics.Segment(seg.Kind.String(), outcome)
	}

	report.Bytes = out.Written()
	out.End()
	return report
}

func (p *Pipeline) runText(ctx context.Context, seg Segment, out *stream.Sink, logger *slog.Logger) error {
	text := seg.Text
	if p.Filter != nil {
		text = p.Filter(text)
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if p.Synth == nil {
		return tts.ErrProviderUnavailable
	}
	audio, err := p.Synth.SynthesizeText(ctx, text)
	if err != nil {
		return err
	}
	if len(audio) == 0 {
		logger.Debug("text segment produced no audio", "chars", len(text))
		return nil
	}
	p.Metrics.AudioBytes("synthesis", len(audio))
	return out.Push(audio)
}

func (p *Pipeline) runAudio(seg Segment, out *stream.Sink, report *Report, logger *slog.Logger) error {
	for _, raw := range seg.AudioPaths {
		name := assetName(raw)
		n, err := p.copyAsset(name, out)
		if err != nil {
			var missing *AssetNotFoundError
			if errors.As(err, &missing) {
				logger.Warn("audio asset missing, skipped", "path", raw)
				report.MissingAssets = append(report.MissingAssets, raw)
				p.Metrics.AssetMiss()
				continue
			}
			return err
		}
		p.Metrics.AudioBytes("asset", int(n))
	}
	return nil
}

func (p *Pipeline) copyAsset(name string, out *stream.Sink) (int64, error) {
	if p.Assets == nil || !fs.ValidPath(name) {
		return 0, &AssetNotFoundError{Path: name, Err: fs.ErrNotExist}
	}
	f, err := p.Assets.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, &AssetNotFoundError{Path: name, Err: err}
		}
		return 0, err
	}
	defer f.Close()
	if info, err := f.Stat(); err == nil && info.IsDir() {
		return 0, &AssetNotFoundError{Path: name, Err: fs.ErrNotExist}
	}
	return io.Copy(sinkWriter{out}, f)
}

// assetName maps a rule path to an fs.FS name relative to the asset root.
func assetName(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return path.Clean(strings.TrimLeft(p, "/"))
}

// sinkWriter streams asset bytes onto the shared sink.
type sinkWriter struct{ s *stream.Sink }

func (w sinkWriter) Write(p []byte) (int, error) {
	if err := w.s.Push(p); err != nil {
		return 0, err
	}
	return len(p), nil
}
