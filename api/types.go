package api

import "github.com/wricardo/mcp-training/gameids/game/service"

// CreateRequest is the body of POST /create
type CreateRequest struct {
	GameID string `json:"gameId"`
}

// CreateResponse is returned when a game ID is registered
type CreateResponse struct {
	Message string `json:"message"`
	GameID  string `json:"gameId"`
}

// CheckResponse is returned by GET /check/{gameId} for every outcome
type CheckResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
	GameID  string `json:"gameId,omitempty"`
	Players int    `json:"players,omitempty"`
}

// MessageResponse carries a plain confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every failed request except /check
type ErrorResponse struct {
	Error string `json:"error"`
}

// ListResponse is returned by GET /games
type ListResponse struct {
	Count int                 `json:"count"`
	Games []*service.GameInfo `json:"games"`
}

// ArchiveListResponse is returned by GET /archive
type ArchiveListResponse struct {
	Count   int      `json:"count"`
	GameIDs []string `json:"gameIds"`
}
