package service

import (
	"time"

	"github.com/wricardo/mcp-training/gameids/game/session"
)

// GameInfo provides information about a live game ID
type GameInfo struct {
	GameID     string    `json:"gameId"`
	Generation uint64    `json:"generation"`
	Players    int       `json:"players"`
	Full       bool      `json:"full"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	// ExpiresIn is the remaining lifetime rounded to seconds, e.g. "11m58s"
	ExpiresIn string `json:"expiresIn"`
}

// CheckResult is the outcome of a successful join
type CheckResult struct {
	Valid   bool   `json:"valid"`
	GameID  string `json:"gameId"`
	Players int    `json:"players"`
}

// LogResponse contains the activity log of a game ID
type LogResponse struct {
	GameID string             `json:"gameId"`
	Log    []session.LogEntry `json:"log"`
}

// StatsInfo reports registry counters together with the configured ttl
type StatsInfo struct {
	session.Stats
	TTL string `json:"ttl"`
}
