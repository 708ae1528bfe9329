package segment

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// RuleSpec is the file form of a Rule.
//
//	rules:
//	  - name: cues
//	    pattern: '\[([^\]]+)\]'
//	    group: 1
//	    split: ","
//	    map: {"Ⅱ": "1.wav", "Ⅲ": "2.wav"}
//	    default: 0.wav
//
// The captured group is split into codes; each code maps to a path, falls
// back to Default, or is used as the path itself when neither applies.
// Paths, when set, replaces code resolution with a fixed list.
type RuleSpec struct {
	Name    string            `yaml:"name"`
	Pattern string            `yaml:"pattern"`
	Group   int               `yaml:"group"`
	Split   string            `yaml:"split"`
	Map     map[string]string `yaml:"map"`
	Default string            `yaml:"default"`
	Paths   []string          `yaml:"paths"`
}

type ruleFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

// ParseRules decodes a YAML rule file.
func ParseRules(data []byte) ([]Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("segment: parse rules: %w", err)
	}
	rules := make([]Rule, 0, len(f.Rules))
	for i, spec := range f.Rules {
		r, err := spec.Compile()
		if err != nil {
			return nil, fmt.Errorf("segment: rule %d: %w", i, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// LoadRules reads and decodes a YAML rule file.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("segment: read rules: %w", err)
	}
	return ParseRules(data)
}

// Compile builds the Rule.
func (s RuleSpec) Compile() (Rule, error) {
	if s.Pattern == "" {
		return Rule{}, fmt.Errorf("pattern is required")
	}
	re, err := regexp.Compile(s.Pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("compile %q: %w", s.Pattern, err)
	}
	if s.Group < 0 || s.Group > re.NumSubexp() {
		return Rule{}, fmt.Errorf("group %d out of range for %q", s.Group, s.Pattern)
	}
	name := s.Name
	if name == "" {
		name = s.Pattern
	}
	return Rule{Name: name, Pattern: re, Resolve: s.resolve}, nil
}

func (s RuleSpec) resolve(match []string) []string {
	if len(s.Paths) > 0 {
		return append([]string(nil), s.Paths...)
	}
	if s.Group >= len(match) {
		return nil
	}
	codes := []string{match[s.Group]}
	if s.Split != "" {
		codes = strings.Split(match[s.Group], s.Split)
	}
	paths := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		switch p, ok := s.Map[code]; {
		case ok:
			paths = append(paths, p)
		case s.Default != "":
			paths = append(paths, s.Default)
		case code != "":
			paths = append(paths, code)
		}
	}
	return paths
}
