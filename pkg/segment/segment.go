// Package segment splits a document into text and audio segments and runs
// them, strictly in order, into one shared output sink.
//
// Text segments are synthesized; audio segments splice pre-recorded assets
// resolved by replacement rules. A caller may replace the rule engine
// entirely by supplying its own Splitter.
package segment

import (
	"regexp"
	"sort"
)

// Kind tags a segment.
type Kind int

const (
	KindText Kind = iota
	KindAudio
)

func (k Kind) String() string {
	if k == KindAudio {
		return "audio"
	}
	return "text"
}

// Segment is one ordered unit of a document.
type Segment struct {
	Kind       Kind
	Text       string
	AudioPaths []string
}

// Text builds a text segment.
func Text(s string) Segment { return Segment{Kind: KindText, Text: s} }

// Audio builds an audio segment.
func Audio(paths ...string) Segment { return Segment{Kind: KindAudio, AudioPaths: paths} }

// Rule replaces every match of Pattern with the assets Resolve returns.
// Resolve receives the full match followed by its submatches.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Resolve func(match []string) []string
}

// Splitter turns a document into segments.
type Splitter interface {
	Split(text string) ([]Segment, error)
}

// SplitterFunc adapts a function to Splitter. It is the full-override hook:
// its output is used as is.
type SplitterFunc func(text string) ([]Segment, error)

// Split implements Splitter.
func (f SplitterFunc) Split(text string) ([]Segment, error) { return f(text) }

// Select picks the splitter for one call: custom wins over rules, and with
// neither the whole text is a single segment.
func Select(custom Splitter, rules []Rule) Splitter {
	switch {
	case custom != nil:
		return custom
	case len(rules) > 0:
		return RuleSplitter{Rules: rules}
	default:
		return Whole{}
	}
}

// Whole returns the document as one text segment.
type Whole struct{}

// Split implements Splitter.
func (Whole) Split(text string) ([]Segment, error) {
	if text == "" {
		return nil, nil
	}
	return []Segment{Text(text)}, nil
}

// RuleSplitter is the built-in replacement rule engine.
//
// Matches from all rules are ordered by start offset; at equal offsets the
// earlier declared rule comes first. Overlapping matches are kept: each
// still yields an audio segment and no text is emitted for the overlap.
type RuleSplitter struct {
	Rules []Rule
}

type ruleMatch struct {
	start, end int
	paths      []string
}

// Split implements Splitter.
func (r RuleSplitter) Split(text string) ([]Segment, error) {
	var matches []ruleMatch
	for _, rule := range r.Rules {
		if rule.Pattern == nil {
			continue
		}
		for _, loc := range rule.Pattern.FindAllStringSubmatchIndex(text, -1) {
			groups := make([]string, len(loc)/2)
			for i := range groups {
				if loc[2*i] >= 0 {
					groups[i] = text[loc[2*i]:loc[2*i+1]]
				}
			}
			var paths []string
			if rule.Resolve != nil {
				paths = rule.Resolve(groups)
			}
			matches = append(matches, ruleMatch{start: loc[0], end: loc[1], paths: paths})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].start < matches[j].start
	})

	var segs []Segment
	cursor := 0
	for _, m := range matches {
		if m.start > cursor {
			segs = append(segs, Text(text[cursor:m.start]))
		}
		segs = append(segs, Audio(m.paths...))
		if m.end > cursor {
			cursor = m.end
		}
	}
	if cursor < len(text) {
		segs = append(segs, Text(text[cursor:]))
	}
	return segs, nil
}
