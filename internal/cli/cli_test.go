package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/pixel-tracker/internal/domain"
	"github.com/ignite/pixel-tracker/internal/service/pixel"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func decodeData[T any](t *testing.T, out string) T {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	var data T
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	return data
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "pixelctl", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"issue", "status", "opens", "dashboard", "activity", "classify"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"verbose", "config", "db"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := run(t, "classify", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestIssueRequiresFlags(t *testing.T) {
	_, err := run(t, "issue", "--db", filepath.Join(t.TempDir(), "t.db"), "--email-id", "e1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestIssueRejectsBlankEmailID(t *testing.T) {
	_, err := run(t, "issue", "--db", filepath.Join(t.TempDir(), "t.db"), "--email-id", " ", "--recipient", "a@example.com")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestIssueStatusAndDashboard(t *testing.T) {
	db := filepath.Join(t.TempDir(), "t.db")

	out, err := run(t, "issue", "--db", db, "--email-id", "launch", "--recipient", "ana@example.com",
		"--subject", "Launch day", "--format", "json")
	require.NoError(t, err)
	issued := decodeData[pixel.Issued](t, out)
	assert.NotEmpty(t, issued.PixelID)
	assert.True(t, strings.HasSuffix(issued.PixelURL, "/pixel/"+issued.PixelID))

	out, err = run(t, "issue", "--db", db, "--email-id", "launch", "--recipient", "ben@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Pixel ID:")

	out, err = run(t, "status", "launch", "--db", db, "--format", "json")
	require.NoError(t, err)
	st := decodeData[domain.EmailStatus](t, out)
	assert.Equal(t, "launch", st.EmailID)
	assert.Len(t, st.Recipients, 2)

	out, err = run(t, "status", "launch", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "bots excluded")
	assert.Contains(t, out, "ana@example.com")

	out, err = run(t, "dashboard", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "launch")
	assert.Contains(t, out, "Launch day")

	out, err = run(t, "opens", issued.PixelID, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "0 opens")
}

func TestStatusRequiresArg(t *testing.T) {
	_, err := run(t, "status", "--db", filepath.Join(t.TempDir(), "t.db"))
	require.Error(t, err)
}

func TestActivityEmpty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "t.db")

	out, err := run(t, "activity", "--db", db, "--format", "json")
	require.NoError(t, err)
	feed := decodeData[domain.ActivityFeed](t, out)
	assert.Empty(t, feed.Opens)
	assert.Zero(t, feed.NewCount)

	out, err = run(t, "activity", "--db", db, "--since", "2025-03-01T12:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "0 new opens, latest 2025-03-01T12:00:00Z")
}

func TestActivityBadSince(t *testing.T) {
	_, err := run(t, "activity", "--db", filepath.Join(t.TempDir(), "t.db"), "--since", "yesterday")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestClassify(t *testing.T) {
	out, err := run(t, "classify", "--user-agent", "Mozilla/5.0 (compatible; Googlebot/2.1)")
	require.NoError(t, err)
	assert.Equal(t, "bot (user-agent: googlebot)\n", out)

	out, err = run(t, "classify", "--ip", "66.249.64.1", "--format", "json")
	require.NoError(t, err)
	v := decodeData[domain.Classification](t, out)
	assert.True(t, v.IsBot)
	assert.True(t, strings.HasPrefix(v.Reason, "ip-range:"))

	out, err = run(t, "classify", "--user-agent", "Thunderbird/115.0", "--ip", "198.51.100.7")
	require.NoError(t, err)
	assert.Equal(t, "human\n", out)
}

func TestClassifyMissingRulesFile(t *testing.T) {
	_, err := run(t, "classify", "--rules", "/nonexistent/bots.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "x", nil)))
}
