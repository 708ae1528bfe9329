package segment_test

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-tts/pkg/segment"
)

func fixed(paths ...string) func([]string) []string {
	return func([]string) []string { return paths }
}

func TestRuleSplitter(t *testing.T) {
	t.Run("single match splits around it", func(t *testing.T) {
		rules := []segment.Rule{{Pattern: regexp.MustCompile(`\[X\]`), Resolve: fixed("a.wav")}}
		segs, err := segment.RuleSplitter{Rules: rules}.Split("A[X]B")
		require.NoError(t, err)
		assert.Equal(t, []segment.Segment{
			segment.Text("A"),
			segment.Audio("a.wav"),
			segment.Text("B"),
		}, segs)
	})

	t.Run("matches at the edges emit no empty text", func(t *testing.T) {
		rules := []segment.Rule{{Pattern: regexp.MustCompile(`\[X\]`), Resolve: fixed("a.wav")}}
		segs, err := segment.RuleSplitter{Rules: rules}.Split("[X]mid[X]")
		require.NoError(t, err)
		assert.Equal(t, []segment.Segment{
			segment.Audio("a.wav"),
			segment.Text("mid"),
			segment.Audio("a.wav"),
		}, segs)
	})

	t.Run("matches from all rules are ordered by offset", func(t *testing.T) {
		rules := []segment.Rule{
			{Name: "bell", Pattern: regexp.MustCompile(`<bell>`), Resolve: fixed("bell.wav")},
			{Name: "clap", Pattern: regexp.MustCompile(`<clap>`), Resolve: fixed("clap.wav")},
		}
		segs, err := segment.RuleSplitter{Rules: rules}.Split("a<clap>b<bell>c<clap>")
		require.NoError(t, err)
		assert.Equal(t, []segment.Segment{
			segment.Text("a"),
			segment.Audio("clap.wav"),
			segment.Text("b"),
			segment.Audio("bell.wav"),
			segment.Text("c"),
			segment.Audio("clap.wav"),
		}, segs)
	})

	t.Run("same offset keeps declaration order", func(t *testing.T) {
		rules := []segment.Rule{
			{Name: "first", Pattern: regexp.MustCompile(`\[\w+\]`), Resolve: fixed("first.wav")},
			{Name: "second", Pattern: regexp.MustCompile(`\[X`), Resolve: fixed("second.wav")},
		}
		segs, err := segment.RuleSplitter{Rules: rules}.Split("A[X]B")
		require.NoError(t, err)
		require.Len(t, segs, 4)
		assert.Equal(t, segment.Audio("first.wav"), segs[1])
		assert.Equal(t, segment.Audio("second.wav"), segs[2])
		assert.Equal(t, segment.Text("B"), segs[3])
	})

	t.Run("overlapping spans add no text for the overlap", func(t *testing.T) {
		rules := []segment.Rule{
			{Pattern: regexp.MustCompile(`abc`), Resolve: fixed("1.wav")},
			{Pattern: regexp.MustCompile(`bcd`), Resolve: fixed("2.wav")},
		}
		segs, err := segment.RuleSplitter{Rules: rules}.Split("xabcdy")
		require.NoError(t, err)
		assert.Equal(t, []segment.Segment{
			segment.Text("x"),
			segment.Audio("1.wav"),
			segment.Audio("2.wav"),
			segment.Text("y"),
		}, segs)
	})

	t.Run("resolve sees submatches", func(t *testing.T) {
		var got []string
		rules := []segment.Rule{{
			Pattern: regexp.MustCompile(`\[([^\]]+)\]`),
			Resolve: func(m []string) []string {
				got = m
				return strings.Split(m[1], ",")
			},
		}}
		segs, err := segment.RuleSplitter{Rules: rules}.Split("x[a,b]")
		require.NoError(t, err)
		assert.Equal(t, []string{"[a,b]", "a,b"}, got)
		assert.Equal(t, segment.Audio("a", "b"), segs[1])
	})

	t.Run("no matches yields the whole text", func(t *testing.T) {
		rules := []segment.Rule{{Pattern: regexp.MustCompile(`\[X\]`), Resolve: fixed("a.wav")}}
		segs, err := segment.RuleSplitter{Rules: rules}.Split("plain")
		require.NoError(t, err)
		assert.Equal(t, []segment.Segment{segment.Text("plain")}, segs)
	})
}

func TestSelect(t *testing.T) {
	rules := []segment.Rule{{Pattern: regexp.MustCompile(`\[X\]`), Resolve: fixed("a.wav")}}
	custom := segment.SplitterFunc(func(text string) ([]segment.Segment, error) {
		return []segment.Segment{segment.Audio("custom.wav")}, nil
	})

	t.Run("custom splitter overrides rules", func(t *testing.T) {
		segs, err := segment.Select(custom, rules).Split("A[X]B")
		require.NoError(t, err)
		assert.Equal(t, []segment.Segment{segment.Audio("custom.wav")}, segs)
	})

	t.Run("rules without custom splitter", func(t *testing.T) {
		_, ok := segment.Select(nil, rules).(segment.RuleSplitter)
		assert.True(t, ok)
	})

	t.Run("neither gives one text segment", func(t *testing.T) {
		segs, err := segment.Select(nil, nil).Split("A[X]B")
		require.NoError(t, err)
		assert.Equal(t, []segment.Segment{segment.Text("A[X]B")}, segs)
	})

	t.Run("custom errors are returned", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := segment.Select(segment.SplitterFunc(func(string) ([]segment.Segment, error) {
			return nil, boom
		}), nil).Split("x")
		assert.ErrorIs(t, err, boom)
	})
}

func TestParseRules(t *testing.T) {
	data := []byte(`
rules:
  - name: cues
    pattern: '\[([^\]]+)\]'
    group: 1
    split: ","
    map:
      "Ⅱ": 1.wav
      "Ⅲ": 2.wav
    default: 0.wav
  - name: bell
    pattern: '<bell>'
    paths: [bell.wav, bell.wav]
  - pattern: '\{(\w+\.mp3)\}'
    group: 1
`)
	rules, err := segment.ParseRules(data)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, "cues", rules[0].Name)
	assert.Equal(t, `\{(\w+\.mp3)\}`, rules[2].Name)

	segs, err := segment.RuleSplitter{Rules: rules}.Split("正常文本 [Ⅱ, Ⅲ,Ⅱ,Ⅸ] 继续<bell>{ding.mp3}")
	require.NoError(t, err)
	assert.Equal(t, []segment.Segment{
		segment.Text("正常文本 "),
		segment.Audio("1.wav", "2.wav", "1.wav", "0.wav"),
		segment.Text(" 继续"),
		segment.Audio("bell.wav", "bell.wav"),
		segment.Audio("ding.mp3"),
	}, segs)
}

func TestParseRulesErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing pattern", "rules:\n  - name: x\n"},
		{"bad regexp", "rules:\n  - pattern: '(['\n"},
		{"group out of range", "rules:\n  - pattern: 'a(b)'\n    group: 2\n"},
		{"bad yaml", "rules: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := segment.ParseRules([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}
