package service

import (
	"context"
	"time"

	"github.com/wricardo/mcp-training/gameids/game/session"
)

// GameIDService defines all game ID operations
type GameIDService interface {
	// Lifecycle
	CreateGame(ctx context.Context, gameID string) (*GameInfo, error)
	CheckGame(ctx context.Context, gameID string) (*CheckResult, error)
	RemoveGame(ctx context.Context, gameID string) error

	// Inspection
	GetLog(ctx context.Context, gameID string) (*LogResponse, error)
	GetGame(ctx context.Context, gameID string) (*GameInfo, error)
	ListGames(ctx context.Context) ([]*GameInfo, error)
	Stats(ctx context.Context) (*StatsInfo, error)

	// Archive
	ArchivedLog(ctx context.Context, gameID string) (*session.ArchivedLog, error)
	ArchivedGames(ctx context.Context) ([]string, error)
}

// Registry defines game ID storage operations
type Registry interface {
	Create(id string) (*session.Snapshot, error)
	Join(id string) (*session.Snapshot, error)
	Remove(id string) error
	Log(id string) ([]session.LogEntry, error)
	Get(id string) (*session.Snapshot, error)
	List() []*session.Snapshot
	Stats() session.Stats
	TTL() time.Duration
}
