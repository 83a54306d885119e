package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wricardo/mcp-training/gameids/game/service"
	"github.com/wricardo/mcp-training/gameids/game/session"
)

// newLiveClient wires a real registry and service behind an httptest server
func newLiveClient(t *testing.T, archive session.LogArchive) *Client {
	t.Helper()
	registry := session.NewRegistry(session.WithArchive(archive))
	t.Cleanup(func() { registry.Close(context.Background()) })

	server := NewServer(service.NewGameIDService(registry, archive, nil), nil, nil)
	ts := httptest.NewServer(server)
	t.Cleanup(ts.Close)
	return NewClient(ts.URL + "/")
}

func requireAPIError(t *testing.T, err error, status int, message string) {
	t.Helper()
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr), "expected *api.Error, got %v", err)
	require.Equal(t, status, apiErr.StatusCode)
	require.Equal(t, message, apiErr.Message)
}

func TestClient_Lifecycle(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	client := newLiveClient(t, nil)

	req.NoError(client.Health(ctx))

	// Given a created game ID
	created, err := client.Create(ctx, "lobby-7")
	req.NoError(err)
	req.Equal("gameId created", created.Message)
	req.Equal("lobby-7", created.GameID)

	_, err = client.Create(ctx, "lobby-7")
	requireAPIError(t, err, http.StatusConflict, "gameId already exists")

	// When the second player checks in
	check, err := client.Check(ctx, "lobby-7")
	req.NoError(err)
	req.True(check.Valid)
	req.Equal(2, check.Players)

	// Then a third player is turned away
	_, err = client.Check(ctx, "lobby-7")
	requireAPIError(t, err, http.StatusForbidden, "gameId full")

	game, err := client.Game(ctx, "lobby-7")
	req.NoError(err)
	req.True(game.Full)

	list, err := client.List(ctx)
	req.NoError(err)
	req.Equal(1, list.Count)

	stats, err := client.Stats(ctx)
	req.NoError(err)
	req.Equal(uint64(2), stats.Rejected, "duplicate create and full join")

	log, err := client.Log(ctx, "lobby-7")
	req.NoError(err)
	req.Len(log.Log, 2)

	removed, err := client.Remove(ctx, "lobby-7")
	req.NoError(err)
	req.Equal("gameId manually removed", removed.Message)

	_, err = client.Remove(ctx, "lobby-7")
	requireAPIError(t, err, http.StatusNotFound, "gameId not found")
	_, err = client.Log(ctx, "lobby-7")
	requireAPIError(t, err, http.StatusNotFound, "gameId not found")
}

func TestClient_OpaqueGameIDs(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	client := newLiveClient(t, nil)

	for _, id := range []string{"team/a", "with space", "ünïcode", "50%off"} {
		_, err := client.Create(ctx, id)
		req.NoError(err, id)

		check, err := client.Check(ctx, id)
		req.NoError(err, id)
		req.Equal(id, check.GameID)
	}
}

func TestClient_MissingGameID(t *testing.T) {
	client := newLiveClient(t, nil)
	_, err := client.Create(context.Background(), "")
	requireAPIError(t, err, http.StatusBadRequest, "gameId is required")
}

func TestClient_Archive(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		client := newLiveClient(t, nil)
		_, err := client.Archive(ctx, "any")
		requireAPIError(t, err, http.StatusNotFound, session.ErrArchiveDisabled.Error())

		_, err = client.ArchiveList(ctx)
		requireAPIError(t, err, http.StatusNotFound, session.ErrArchiveDisabled.Error())
	})

	t.Run("file archive", func(t *testing.T) {
		archive, err := session.NewFileArchive(t.TempDir())
		req.NoError(err)
		client := newLiveClient(t, archive)

		_, err = client.Create(ctx, "archived")
		req.NoError(err)
		_, err = client.Remove(ctx, "archived")
		req.NoError(err)

		archived, err := client.Archive(ctx, "archived")
		req.NoError(err)
		req.Equal(session.ReasonRemoved, archived.Reason)
		req.Equal(session.MsgManualRemoval, archived.Log[len(archived.Log)-1].Message)

		list, err := client.ArchiveList(ctx)
		req.NoError(err)
		req.Equal(1, list.Count)
		req.Equal([]string{"archived"}, list.GameIDs)
	})
}

func TestClient_Unreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	err := client.Health(context.Background())
	require.Error(t, err)

	var apiErr *Error
	require.False(t, errors.As(err, &apiErr), "transport errors are not API errors")
}
