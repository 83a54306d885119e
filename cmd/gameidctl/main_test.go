package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wricardo/mcp-training/gameids/api"
	"github.com/wricardo/mcp-training/gameids/game/service"
	"github.com/wricardo/mcp-training/gameids/game/session"
)

func startServer(t *testing.T) string {
	t.Helper()
	registry := session.NewRegistry()
	t.Cleanup(func() { registry.Close(context.Background()) })

	ts := httptest.NewServer(api.NewServer(service.NewGameIDService(registry, nil, nil), nil, nil))
	t.Cleanup(ts.Close)
	return ts.URL
}

// run executes the CLI against serverURL and returns its output
func run(t *testing.T, serverURL string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	argv := append([]string{"gameidctl", "--server", serverURL}, args...)
	err := newApp(&out).Run(context.Background(), argv)
	return out.String(), err
}

func TestCLI_Lifecycle(t *testing.T) {
	req := require.New(t)
	url := startServer(t)

	out, err := run(t, url, "create", "lobby-7")
	req.NoError(err)
	req.Equal("lobby-7\n", out)

	out, err = run(t, url, "check", "lobby-7")
	req.NoError(err)
	req.Equal("lobby-7: gameId valid (2/2)\n", out)

	_, err = run(t, url, "check", "lobby-7")
	req.Error(err)
	req.Equal(3, exitCode(err))

	out, err = run(t, url, "log", "lobby-7")
	req.NoError(err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	req.Len(lines, 2)
	req.True(strings.HasSuffix(lines[0], session.MsgCreated))

	out, err = run(t, url, "list")
	req.NoError(err)
	req.Contains(out, "lobby-7")
	req.Contains(out, "full")

	out, err = run(t, url, "stats")
	req.NoError(err)
	req.Contains(out, "active=1 full=1 created=1 joined=1")

	out, err = run(t, url, "rm", "lobby-7")
	req.NoError(err)
	req.Equal("lobby-7: gameId manually removed\n", out)

	_, err = run(t, url, "remove", "lobby-7")
	req.Equal(4, exitCode(err))
}

func TestCLI_CreateGenerated(t *testing.T) {
	req := require.New(t)
	url := startServer(t)

	out, err := run(t, url, "create")
	req.NoError(err)
	req.Regexp(regexp.MustCompile(`^[0-9A-F]{6}\n$`), out)

	out, err = run(t, url, "create", "--uuid")
	req.NoError(err)
	req.Regexp(regexp.MustCompile(`^[0-9a-f-]{36}\n$`), out)

	_, err = run(t, url, "create", "lobby")
	req.NoError(err)
	_, err = run(t, url, "create", "lobby")
	req.Equal(5, exitCode(err), "explicit IDs are not retried")
}

func TestCLI_JSONOutput(t *testing.T) {
	req := require.New(t)
	url := startServer(t)

	out, err := run(t, url, "--json", "create", "json-game")
	req.NoError(err)

	var resp api.CreateResponse
	req.NoError(json.Unmarshal([]byte(out), &resp))
	req.Equal("gameId created", resp.Message)
	req.Equal("json-game", resp.GameID)
}

func TestCLI_ArgumentErrors(t *testing.T) {
	url := startServer(t)

	for _, sub := range []string{"check", "remove", "log", "archive"} {
		t.Run(sub, func(t *testing.T) {
			_, err := run(t, url, sub)
			require.Error(t, err)
			require.Contains(t, err.Error(), "requires exactly one gameId")
			require.Equal(t, 1, exitCode(err))
		})
	}
}

func TestCLI_ArchiveList(t *testing.T) {
	req := require.New(t)
	archive, err := session.NewFileArchive(t.TempDir())
	req.NoError(err)
	registry := session.NewRegistry(session.WithArchive(archive))
	t.Cleanup(func() { registry.Close(context.Background()) })
	ts := httptest.NewServer(api.NewServer(service.NewGameIDService(registry, archive, nil), nil, nil))
	t.Cleanup(ts.Close)

	for _, id := range []string{"beta", "alpha"} {
		_, err = run(t, ts.URL, "create", id)
		req.NoError(err)
		_, err = run(t, ts.URL, "rm", id)
		req.NoError(err)
	}

	out, err := run(t, ts.URL, "archive", "--list")
	req.NoError(err)
	req.Equal("alpha\nbeta\n", out)

	out, err = run(t, ts.URL, "archive", "alpha")
	req.NoError(err)
	req.Contains(out, "alpha ended")
	req.Contains(out, session.MsgManualRemoval)
}

func TestCLI_ServerFromEnvironment(t *testing.T) {
	url := startServer(t)
	t.Setenv("GAMEID_SERVER", url)

	var out bytes.Buffer
	err := newApp(&out).Run(context.Background(), []string{"gameidctl", "create", "from-env"})
	require.NoError(t, err)
	require.Equal(t, "from-env\n", out.String())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New("dial tcp: refused"), 1},
		{&api.Error{StatusCode: 400}, 2},
		{&api.Error{StatusCode: 403}, 3},
		{&api.Error{StatusCode: 404}, 4},
		{&api.Error{StatusCode: 409}, 5},
		{&api.Error{StatusCode: 503}, 1},
	}

	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
