package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestNewRedisArchive_RequiresClient(t *testing.T) {
	_, err := NewRedisArchive(nil, RedisConfig{})
	require.Error(t, err)
}

func TestNewRedisArchive_Defaults(t *testing.T) {
	req := require.New(t)
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	archive, err := NewRedisArchive(client, RedisConfig{})
	req.NoError(err)
	req.Equal(defaultKeyPrefix, archive.keyPrefix)
	req.Equal(defaultRetention, archive.retention)
	req.Equal("gameid:archive:log:abc", archive.logKey("abc"))
	req.Equal("gameid:archive:ids", archive.indexKey())
}

func TestLoadRedisConfig(t *testing.T) {
	req := require.New(t)
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("GAMEID_ARCHIVE_PREFIX", "test:")
	t.Setenv("GAMEID_ARCHIVE_RETENTION", "90m")

	cfg, err := LoadRedisConfig()
	req.NoError(err)
	req.Equal("redis.internal:6380", cfg.Addr)
	req.Equal("test:", cfg.KeyPrefix)
	req.Equal(90*time.Minute, cfg.Retention)
}

// TestRedisArchive_Integration runs against a live server when
// GAMEID_TEST_REDIS_ADDR is set.
func TestRedisArchive_Integration(t *testing.T) {
	addr := os.Getenv("GAMEID_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("Skipping test - GAMEID_TEST_REDIS_ADDR not set")
	}

	req := require.New(t)
	ctx := context.Background()
	archive, err := DialRedisArchive(ctx, RedisConfig{
		Addr:      addr,
		KeyPrefix: "gameid:test:" + time.Now().Format("150405.000000") + ":",
		Retention: time.Minute,
	})
	req.NoError(err)
	defer archive.Close()

	original := createArchivedLog("redis-game")
	req.NoError(archive.Save(ctx, original))

	loaded, err := archive.Load(ctx, "redis-game")
	req.NoError(err)
	req.Equal(original.Reason, loaded.Reason)
	req.Len(loaded.Log, len(original.Log))

	ids, err := archive.ListAll(ctx)
	req.NoError(err)
	req.Equal([]string{"redis-game"}, ids)

	_, err = archive.Load(ctx, "missing")
	req.ErrorIs(err, ErrGameNotFound)
}
