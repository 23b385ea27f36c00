package botdetect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_UserAgentAnyCase(t *testing.T) {
	c := NewDefault()

	for _, ua := range []string{
		"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
		"GOOGLEBOT",
		"googlebot",
	} {
		got := c.Classify(ua, "203.0.113.10")
		assert.True(t, got.IsBot, ua)
		assert.Equal(t, "user-agent: googlebot", got.Reason, ua)
	}
}

func TestClassify_SpecificBeforeGeneric(t *testing.T) {
	c := NewDefault()

	got := c.Classify("Mozilla/5.0 (compatible; bingbot/2.0)", "")
	assert.Equal(t, "user-agent: bingbot", got.Reason)

	got = c.Classify("SomeCrawler/1.0", "")
	assert.Equal(t, "user-agent: crawler", got.Reason)
}

func TestClassify_IPPrefix(t *testing.T) {
	c := NewDefault()

	got := c.Classify("Mozilla/5.0 (Windows NT 10.0; Win64; x64)", "66.249.64.1")
	assert.True(t, got.IsBot)
	assert.Equal(t, "ip-range: 66.249.*", got.Reason)

	// No user agent at all still reaches the IP step.
	got = c.Classify("", "74.125.1.1")
	assert.Equal(t, "ip-range: 74.125.*", got.Reason)
}

func TestClassify_UserAgentWinsOverIP(t *testing.T) {
	got := NewDefault().Classify("Googlebot", "66.249.64.1")
	assert.Equal(t, "user-agent: googlebot", got.Reason)
}

func TestClassify_Human(t *testing.T) {
	c := NewDefault()

	for _, tc := range []struct{ ua, ip string }{
		{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15", "203.0.113.10"},
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)", ""},
		{"", ""},
		// 172.x must not match the 17. prefix
		{"Thunderbird/115.0", "172.16.0.4"},
	} {
		got := c.Classify(tc.ua, tc.ip)
		assert.False(t, got.IsBot, "%q %q", tc.ua, tc.ip)
		assert.Empty(t, got.Reason)
	}
}

func TestDefaultRules_Normalized(t *testing.T) {
	rules := DefaultRules()
	require.NotEmpty(t, rules.UserAgents)
	require.NotEmpty(t, rules.IPPrefixes)

	assert.Equal(t, "googlebot", rules.UserAgents[0])
	assert.Equal(t, "bot", rules.UserAgents[len(rules.UserAgents)-1])
	for _, p := range rules.IPPrefixes {
		assert.Equal(t, byte('.'), p[len(p)-1], p)
	}
}

func TestParseRules_NormalizesAndKeepsOrder(t *testing.T) {
	rules, err := ParseRules([]byte(`
user_agents:
  - "  FooBot "
  - ""
  - Scanner
ip_prefixes:
  - " 10.1. "
  - "192.0.2."
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"foobot", "scanner"}, rules.UserAgents)
	assert.Equal(t, []string{"10.1.", "192.0.2."}, rules.IPPrefixes)

	c := New(rules)
	assert.Equal(t, "user-agent: foobot", c.Classify("x FOOBOT y", "").Reason)
	assert.Equal(t, "ip-range: 10.1.*", c.Classify("Mozilla", "10.1.2.3").Reason)
	assert.False(t, c.Classify("Googlebot", "66.249.64.1").IsBot)
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("user_agents: [probe]\n"), 0o600))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"probe"}, rules.UserAgents)
	assert.Empty(t, rules.IPPrefixes)

	_, err = LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("user_agents: {nope"), 0o600))
	_, err = LoadRules(bad)
	assert.Error(t, err)
}

func TestRules_ReturnsCopy(t *testing.T) {
	c := NewDefault()
	r := c.Rules()
	r.UserAgents[0] = "changed"
	assert.Equal(t, "user-agent: googlebot", c.Classify("googlebot", "").Reason)
}
