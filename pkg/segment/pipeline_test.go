package segment_test

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-tts/pkg/segment"
	"github.com/teslashibe/go-tts/pkg/stream"
	"github.com/teslashibe/go-tts/pkg/tts"
)

var assets = fstest.MapFS{
	"0.wav":         {Data: []byte("<0>")},
	"1.wav":         {Data: []byte("<1>")},
	"2.wav":         {Data: []byte("<2>")},
	"fx/bell.wav":   {Data: []byte("<bell>")},
	"fx/nested.wav": {Data: []byte("<nested>")},
}

// echoSynth returns the text in braces, sleeping longer for earlier calls
// so out-of-order execution would show in the output.
func echoSynth(calls *atomic.Int32) segment.Synthesizer {
	return segment.SynthesizerFunc(func(ctx context.Context, text string) ([]byte, error) {
		n := calls.Add(1)
		time.Sleep(time.Duration(5-min(n, 5)) * 5 * time.Millisecond)
		return []byte("{" + text + "}"), nil
	})
}

func cueRules() []segment.Rule {
	return []segment.Rule{{
		Pattern: regexp.MustCompile(`\[([^\]]+)\]`),
		Resolve: func(m []string) []string {
			var out []string
			for _, code := range strings.Split(m[1], ",") {
				switch strings.TrimSpace(code) {
				case "Ⅱ":
					out = append(out, "1.wav")
				case "Ⅲ":
					out = append(out, "2.wav")
				default:
					out = append(out, "0.wav")
				}
			}
			return out
		},
	}}
}

func TestPipelineOrdering(t *testing.T) {
	var calls atomic.Int32
	p := &segment.Pipeline{Synth: echoSynth(&calls), Assets: assets}
	out := stream.New(nil)

	report := p.Run(context.Background(), "one [Ⅱ,Ⅲ] two [x] three", segment.Select(nil, cueRules()), out)

	res := out.Result()
	require.NoError(t, res.Err)
	assert.Equal(t, "{one }<1><2>{ two }<0>{ three}", string(res.Audio))
	assert.Empty(t, report.Failures)
	assert.Len(t, report.Segments, 5)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, int64(len(res.Audio)), report.Bytes)
}

func TestPipelineMissingAsset(t *testing.T) {
	var calls atomic.Int32
	p := &segment.Pipeline{Synth: echoSynth(&calls), Assets: assets}
	out := stream.New(nil)

	splitter := segment.SplitterFunc(func(string) ([]segment.Segment, error) {
		return []segment.Segment{
			segment.Text("a"),
			segment.Audio("missing.wav", "1.wav", "../escape.wav", "fx"),
			segment.Text("b"),
			segment.Audio("/fx/bell.wav"),
		}, nil
	})
	report := p.Run(context.Background(), "ignored", splitter, out)

	res := out.Result()
	require.NoError(t, res.Err)
	assert.Equal(t, "{a}<1>{b}<bell>", string(res.Audio))
	assert.Equal(t, []string{"missing.wav", "../escape.wav", "fx"}, report.MissingAssets)
	assert.Empty(t, report.Failures)
}

func TestPipelineSegmentFailureContinues(t *testing.T) {
	boom := errors.New("synthesis failed")
	synth := segment.SynthesizerFunc(func(ctx context.Context, text string) ([]byte, error) {
		if text == "bad" {
			return nil, boom
		}
		return []byte(text), nil
	})
	p := &segment.Pipeline{Synth: synth, Assets: assets}
	out := stream.New(nil)

	splitter := segment.SplitterFunc(func(string) ([]segment.Segment, error) {
		return []segment.Segment{
			segment.Text("good1"),
			segment.Text("bad"),
			segment.Audio("0.wav"),
			segment.Text("good2"),
		}, nil
	})
	report := p.Run(context.Background(), "", splitter, out)

	res := out.Result()
	require.NoError(t, res.Err)
	assert.Equal(t, "good1<0>good2", string(res.Audio))
	require.Len(t, report.Failures, 1)

	var se *segment.SegmentError
	require.True(t, errors.As(report.Failures[0], &se))
	assert.Equal(t, 1, se.Index)
	assert.ErrorIs(t, se, boom)
	assert.Equal(t, tts.KindSegment, tts.KindOf(se))
}

func TestPipelineFilterAndBlankText(t *testing.T) {
	var seen []string
	synth := segment.SynthesizerFunc(func(ctx context.Context, text string) ([]byte, error) {
		seen = append(seen, text)
		return []byte(text), nil
	})
	filter := regexp.MustCompile(`\([^)]*\)`)
	p := &segment.Pipeline{
		Synth:  synth,
		Assets: assets,
		Filter: func(s string) string { return filter.ReplaceAllString(s, "") },
	}
	out := stream.New(nil)

	p.Run(context.Background(), "(sigh) [Ⅱ]  \n hello (smiles)", segment.Select(nil, cueRules()), out)

	assert.Equal(t, []string{"  \n hello "}, seen)
	assert.Equal(t, "<1>  \n hello ", string(out.Result().Audio))
}

func TestPipelineWholeText(t *testing.T) {
	var calls atomic.Int32
	p := &segment.Pipeline{Synth: echoSynth(&calls)}
	out := stream.New(nil)

	p.Run(context.Background(), "A[X]B", nil, out)
	assert.Equal(t, "{A[X]B}", string(out.Result().Audio))
}

func TestPipelineStreamsToDestination(t *testing.T) {
	var calls atomic.Int32
	p := &segment.Pipeline{Synth: echoSynth(&calls), Assets: assets}

	pr, pw := io.Pipe()
	got := make(chan string, 1)
	go func() {
		b, _ := io.ReadAll(pr)
		got <- string(b)
	}()

	out := stream.New(pw)
	p.Run(context.Background(), "x[Ⅲ]y", segment.Select(nil, cueRules()), out)

	assert.Equal(t, "{x}<2>{y}", <-got)
	res := out.Result()
	assert.NoError(t, res.Err)
	assert.Nil(t, res.Audio)
}

func TestPipelineClosesOnce(t *testing.T) {
	p := &segment.Pipeline{}
	out := stream.New(nil)

	report := p.Run(context.Background(), "", nil, out)
	assert.Empty(t, report.Segments)
	assert.True(t, out.Closed())
	assert.NoError(t, out.Result().Err)
}

func TestPipelineCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	synth := segment.SynthesizerFunc(func(ctx context.Context, text string) ([]byte, error) {
		cancel()
		return []byte(text), nil
	})
	p := &segment.Pipeline{Synth: synth, Assets: assets}
	out := stream.New(nil)

	splitter := segment.SplitterFunc(func(string) ([]segment.Segment, error) {
		return []segment.Segment{segment.Text("first"), segment.Text("second")}, nil
	})
	p.Run(ctx, "", splitter, out)

	res := out.Result()
	assert.ErrorIs(t, res.Err, tts.ErrAborted)
	assert.Nil(t, res.Audio)
}

func TestPipelineSplitError(t *testing.T) {
	boom := errors.New("bad splitter")
	p := &segment.Pipeline{}
	out := stream.New(nil)

	report := p.Run(context.Background(), "x", segment.SplitterFunc(func(string) ([]segment.Segment, error) {
		return nil, boom
	}), out)

	assert.ErrorIs(t, out.Result().Err, boom)
	require.Len(t, report.Failures, 1)
}
