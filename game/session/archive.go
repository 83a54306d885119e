package session

import (
	"context"
	"errors"
	"time"
)

// ErrArchiveDisabled is returned when no archive is configured
var ErrArchiveDisabled = errors.New("log archive disabled")

// LogArchive keeps the activity log of game IDs after they end. Only the
// latest ended lifecycle of an id is retained.
type LogArchive interface {
	// Save stores the final record of a game ID
	Save(ctx context.Context, log *ArchivedLog) error

	// Load retrieves the archived record by game ID
	Load(ctx context.Context, id string) (*ArchivedLog, error)

	// ListAll returns all archived game IDs
	ListAll(ctx context.Context) ([]string, error)
}

// ArchivedLog is the JSON structure stored for an ended game ID
type ArchivedLog struct {
	GameID    string     `json:"gameId"`
	Players   int        `json:"players"`
	CreatedAt time.Time  `json:"createdAt"`
	EndedAt   time.Time  `json:"endedAt"`
	Reason    Reason     `json:"reason"`
	Log       []LogEntry `json:"log"`
}
