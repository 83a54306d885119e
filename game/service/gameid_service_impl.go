package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/wricardo/mcp-training/gameids/game/session"
)

// gameIDServiceImpl implements the GameIDService interface
type gameIDServiceImpl struct {
	registry Registry
	archive  session.LogArchive
	logger   *slog.Logger
	now      func() time.Time
}

// NewGameIDService creates a new game ID service instance. archive may be nil.
func NewGameIDService(registry Registry, archive session.LogArchive, logger *slog.Logger) GameIDService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &gameIDServiceImpl{
		registry: registry,
		archive:  archive,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateGame registers a new game ID
func (s *gameIDServiceImpl) CreateGame(ctx context.Context, gameID string) (*GameInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap, err := s.registry.Create(gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to create game %q: %w", gameID, err)
	}
	return s.toGameInfo(snap), nil
}

// CheckGame validates a game ID and admits the caller as second player
func (s *gameIDServiceImpl) CheckGame(ctx context.Context, gameID string) (*CheckResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap, err := s.registry.Join(gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to join game %q: %w", gameID, err)
	}
	return &CheckResult{
		Valid:   true,
		GameID:  snap.GameID,
		Players: snap.Players,
	}, nil
}

// RemoveGame deletes a game ID before it expires
func (s *gameIDServiceImpl) RemoveGame(ctx context.Context, gameID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.registry.Remove(gameID); err != nil {
		return fmt.Errorf("failed to remove game %q: %w", gameID, err)
	}
	return nil
}

// GetLog returns the activity log of a live game ID
func (s *gameIDServiceImpl) GetLog(ctx context.Context, gameID string) (*LogResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := s.registry.Log(gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to read log of %q: %w", gameID, err)
	}
	return &LogResponse{GameID: gameID, Log: entries}, nil
}

// GetGame retrieves game ID information
func (s *gameIDServiceImpl) GetGame(ctx context.Context, gameID string) (*GameInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap, err := s.registry.Get(gameID)
	if err != nil {
		return nil, fmt.Errorf("game %q: %w", gameID, err)
	}
	return s.toGameInfo(snap), nil
}

// ListGames returns all live game IDs, oldest first
func (s *gameIDServiceImpl) ListGames(ctx context.Context) ([]*GameInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snaps := s.registry.List()
	result := make([]*GameInfo, 0, len(snaps))
	for _, snap := range snaps {
		result = append(result, s.toGameInfo(snap))
	}
	return result, nil
}

// Stats returns registry counters
func (s *gameIDServiceImpl) Stats(ctx context.Context) (*StatsInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &StatsInfo{
		Stats: s.registry.Stats(),
		TTL:   s.registry.TTL().String(),
	}, nil
}

// ArchivedLog loads the final log of an ended game ID
func (s *gameIDServiceImpl) ArchivedLog(ctx context.Context, gameID string) (*session.ArchivedLog, error) {
	if s.archive == nil {
		return nil, session.ErrArchiveDisabled
	}

	log, err := s.archive.Load(ctx, gameID)
	if err != nil {
		if !errors.Is(err, session.ErrGameNotFound) {
			s.logger.Warn("archive lookup failed", "game_id", gameID, "error", err)
		}
		return nil, fmt.Errorf("archived log of %q: %w", gameID, err)
	}
	return log, nil
}

// ArchivedGames lists the ids with an archived log, sorted
func (s *gameIDServiceImpl) ArchivedGames(ctx context.Context) ([]string, error) {
	if s.archive == nil {
		return nil, session.ErrArchiveDisabled
	}

	ids, err := s.archive.ListAll(ctx)
	if err != nil {
		s.logger.Warn("archive listing failed", "error", err)
		return nil, fmt.Errorf("list archived logs: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *gameIDServiceImpl) toGameInfo(snap *session.Snapshot) *GameInfo {
	remaining := snap.ExpiresAt.Sub(s.now())
	if remaining < 0 {
		remaining = 0
	}
	return &GameInfo{
		GameID:     snap.GameID,
		Generation: snap.Generation,
		Players:    snap.Players,
		Full:       snap.Full(),
		CreatedAt:  snap.CreatedAt,
		ExpiresAt:  snap.ExpiresAt,
		ExpiresIn:  remaining.Round(time.Second).String(),
	}
}
