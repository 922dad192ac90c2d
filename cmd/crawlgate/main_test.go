package main_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	main "github.com/JakeFAU/crawlgate/cmd/crawlgate"
)

func TestCLI_HelpShowsAllCommands(t *testing.T) {
	t.Parallel()

	cli := &main.CLI{}
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	parser, err := kong.New(cli,
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
	)
	require.NoError(t, err)

	_, _ = parser.Parse([]string{"--help"})

	helpOutput := stdout.String()
	for _, cmd := range []string{"serve", "check", "--config"} {
		assert.Contains(t, helpOutput, cmd, "Help should mention %s", cmd)
	}
}

func TestMain_Run_Help(t *testing.T) {
	t.Parallel()

	stdout := &bytes.Buffer{}
	err := main.NewMain().Run(context.Background(), []string{"--help"}, stdout, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "check")
}

func TestMain_Run_NoArgs(t *testing.T) {
	t.Parallel()

	stdout := &bytes.Buffer{}
	err := main.NewMain().Run(context.Background(), nil, stdout, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no command specified")
	assert.Contains(t, stdout.String(), "serve")
}

func TestMain_Run_CheckPrintsDecisions(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfig(t, `
compliance:
  obey_robots_txt: false
  deny_domains:
    - blocked.test
  rate_limits:
    default_per_minute: 2
`)

	m := main.NewMain()
	m.Logger = zap.NewNop()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	err := m.Run(context.Background(), []string{
		"--config", cfgPath, "check",
		"https://blocked.test/a",
		"https://example.test/1",
		"https://example.test/2",
		"https://example.test/3",
	}, stdout, stderr)
	require.NoError(t, err)
	assert.Empty(t, stderr.String())

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "DENY\thttps://blocked.test/a\tdenied by configuration deny list: blocked.test", lines[0])
	assert.Equal(t, "ALLOW\thttps://example.test/1\tOK", lines[1])
	assert.Equal(t, "ALLOW\thttps://example.test/2\tOK", lines[2])
	assert.Equal(t, "DENY\thttps://example.test/3\trate limit exceeded for example.test (2/min)", lines[3])
}

func TestMain_Run_CheckJSON(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfig(t, "compliance:\n  obey_robots_txt: false\n")

	m := main.NewMain()
	m.Logger = zap.NewNop()
	stdout := &bytes.Buffer{}

	err := m.Run(context.Background(), []string{"--config", cfgPath, "check", "--json", "https://example.test/"}, stdout, &bytes.Buffer{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"url":"https://example.test/","allowed":true,"reason":"OK","check":"passed","domain":"example.test"}`, stdout.String())
}

func TestMain_Run_CheckInvalidURL(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfig(t, "compliance:\n  obey_robots_txt: false\n")

	m := main.NewMain()
	m.Logger = zap.NewNop()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	err := m.Run(context.Background(), []string{"--config", cfgPath, "check", "not-a-url", "https://example.test/"}, stdout, stderr)
	require.ErrorIs(t, err, main.ErrInvalidURLs)
	assert.Contains(t, stderr.String(), "invalid url")
	assert.Contains(t, stdout.String(), "ALLOW\thttps://example.test/\tOK")
}

func TestMain_Run_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfig(t, "compliance:\n  rate_limits:\n    default_per_minute: 0\n")

	m := main.NewMain()
	m.Logger = zap.NewNop()
	err := m.Run(context.Background(), []string{"--config", cfgPath, "check", "https://example.test/"}, &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}
