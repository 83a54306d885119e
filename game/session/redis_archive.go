package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a Redis-backed archive. Defaults can be loaded via envdecode.
type RedisConfig struct {
	// Addr like "localhost:6379". ENV: REDIS_ADDR
	Addr string `env:"REDIS_ADDR,default=localhost:6379"`
	// Password for AUTH, empty for none. ENV: REDIS_PASSWORD
	Password string `env:"REDIS_PASSWORD"`
	// DB index. ENV: REDIS_DB
	DB int `env:"REDIS_DB,default=0"`
	// KeyPrefix for all keys. ENV: GAMEID_ARCHIVE_PREFIX
	KeyPrefix string `env:"GAMEID_ARCHIVE_PREFIX,default=gameid:archive:"`
	// Retention of each archived log. ENV: GAMEID_ARCHIVE_RETENTION
	Retention time.Duration `env:"GAMEID_ARCHIVE_RETENTION,default=24h"`
}

const (
	defaultKeyPrefix = "gameid:archive:"
	defaultRetention = 24 * time.Hour
)

// RedisArchive implements LogArchive on Redis string keys with a TTL.
type RedisArchive struct {
	client    *redis.Client
	keyPrefix string
	retention time.Duration
}

// NewRedisArchive wraps an existing client.
func NewRedisArchive(client *redis.Client, cfg RedisConfig) (*RedisArchive, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	retention := cfg.Retention
	if retention <= 0 {
		retention = defaultRetention
	}
	return &RedisArchive{client: client, keyPrefix: prefix, retention: retention}, nil
}

// DialRedisArchive connects to Redis and verifies the connection.
func DialRedisArchive(ctx context.Context, cfg RedisConfig) (*RedisArchive, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	cl := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password, DB: cfg.DB})
	if err := cl.Ping(ctx).Err(); err != nil {
		cl.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisArchive(cl, cfg)
}

// LoadRedisConfig populates RedisConfig from the environment.
func LoadRedisConfig() (RedisConfig, error) {
	var cfg RedisConfig
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return cfg, fmt.Errorf("decode redis config: %w", err)
	}
	return cfg, nil
}

// Close closes the Redis client.
func (ra *RedisArchive) Close() error { return ra.client.Close() }

// --- Key helpers ---

func (ra *RedisArchive) logKey(id string) string { return ra.keyPrefix + "log:" + id }
func (ra *RedisArchive) indexKey() string        { return ra.keyPrefix + "ids" }

// Save stores the record with the configured retention and indexes its id.
func (ra *RedisArchive) Save(ctx context.Context, log *ArchivedLog) error {
	if log == nil {
		return fmt.Errorf("archived log cannot be nil")
	}
	data, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed to marshal archived log: %w", err)
	}

	_, err = ra.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, ra.logKey(log.GameID), data, ra.retention)
		pipe.SAdd(ctx, ra.indexKey(), log.GameID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", log.GameID, err)
	}
	return nil
}

// Load retrieves the archived record of a game ID
func (ra *RedisArchive) Load(ctx context.Context, id string) (*ArchivedLog, error) {
	data, err := ra.client.Get(ctx, ra.logKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", id, err)
	}

	var log ArchivedLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("failed to unmarshal archived log: %w", err)
	}
	return &log, nil
}

// ListAll returns archived ids, pruning index entries whose record expired.
func (ra *RedisArchive) ListAll(ctx context.Context) ([]string, error) {
	members, err := ra.client.SMembers(ctx, ra.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list archive index: %w", err)
	}

	ids := make([]string, 0, len(members))
	for _, id := range members {
		if ra.exists(ctx, id) {
			ids = append(ids, id)
			continue
		}
		ra.client.SRem(ctx, ra.indexKey(), id)
	}
	return ids, nil
}

func (ra *RedisArchive) exists(ctx context.Context, id string) bool {
	n, err := ra.client.Exists(ctx, ra.logKey(id)).Result()
	return err == nil && n > 0
}
