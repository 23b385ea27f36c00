package botdetect

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// Rules is the ordered heuristic data used by a Classifier.
type Rules struct {
	UserAgents []string `yaml:"user_agents"`
	IPPrefixes []string `yaml:"ip_prefixes"`
}

// DefaultRules returns the rule set compiled into the binary.
func DefaultRules() Rules {
	rules, err := ParseRules(defaultRulesYAML)
	if err != nil {
		// The embedded document is covered by tests; failing here is a build defect.
		panic(fmt.Sprintf("botdetect: embedded rules: %v", err))
	}
	return rules
}

// LoadRules reads a YAML rules file from disk.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read bot rules %s: %w", path, err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return Rules{}, fmt.Errorf("parse bot rules %s: %w", path, err)
	}
	return rules, nil
}

// ParseRules decodes a YAML rules document and normalises it: user-agent
// substrings are lowercased, blanks are dropped, and order is preserved.
func ParseRules(data []byte) (Rules, error) {
	var raw Rules
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Rules{}, err
	}
	return raw.normalize(), nil
}

func (r Rules) normalize() Rules {
	out := Rules{
		UserAgents: make([]string, 0, len(r.UserAgents)),
		IPPrefixes: make([]string, 0, len(r.IPPrefixes)),
	}
	for _, ua := range r.UserAgents {
		if ua = strings.ToLower(strings.TrimSpace(ua)); ua != "" {
			out.UserAgents = append(out.UserAgents, ua)
		}
	}
	for _, p := range r.IPPrefixes {
		if p = strings.TrimSpace(p); p != "" {
			out.IPPrefixes = append(out.IPPrefixes, p)
		}
	}
	return out
}
