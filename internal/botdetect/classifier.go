package botdetect

import (
	"strings"

	"github.com/ignite/pixel-tracker/internal/domain"
)

// Classifier applies Rules to a request's user agent and source address.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	rules Rules
}

// New creates a classifier over the given rules.
func New(rules Rules) *Classifier {
	return &Classifier{rules: rules.normalize()}
}

// NewDefault creates a classifier over the embedded rule set.
func NewDefault() *Classifier {
	return New(DefaultRules())
}

// Rules returns a copy of the rules in use.
func (c *Classifier) Rules() Rules {
	return Rules{
		UserAgents: append([]string(nil), c.rules.UserAgents...),
		IPPrefixes: append([]string(nil), c.rules.IPPrefixes...),
	}
}

// Classify never fails. User-agent matches take precedence over IP matches.
func (c *Classifier) Classify(userAgent, sourceIP string) domain.Classification {
	if ua := strings.ToLower(strings.TrimSpace(userAgent)); ua != "" {
		for _, pattern := range c.rules.UserAgents {
			if strings.Contains(ua, pattern) {
				return domain.Classification{IsBot: true, Reason: "user-agent: " + pattern}
			}
		}
	}

	if ip := strings.TrimSpace(sourceIP); ip != "" {
		for _, prefix := range c.rules.IPPrefixes {
			if strings.HasPrefix(ip, prefix) {
				return domain.Classification{IsBot: true, Reason: "ip-range: " + prefix + "*"}
			}
		}
	}

	return domain.Classification{}
}
