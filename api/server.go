package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"github.com/wricardo/mcp-training/gameids/game/service"
	"github.com/wricardo/mcp-training/gameids/game/session"
	"github.com/wricardo/mcp-training/gameids/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameIDService
	hub     *websocket.Hub
	router  *mux.Router
	logger  *slog.Logger
}

// NewServer creates a new API server. hub may be nil, in which case /ws is
// not served.
func NewServer(gameIDService service.GameIDService, hub *websocket.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		service: gameIDService,
		hub:     hub,
		// Game IDs are opaque and may contain escaped slashes
		router: mux.NewRouter().UseEncodedPath(),
		logger: logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware, s.accessLogMiddleware, corsMiddleware)

	// Game ID lifecycle
	s.router.HandleFunc("/create", s.handleCreate).Methods(http.MethodPost, http.MethodOptions)
	s.router.HandleFunc("/check/{gameId}", s.handleCheck).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/remove/{gameId}", s.handleRemove).Methods(http.MethodDelete, http.MethodOptions)
	s.router.HandleFunc("/log/{gameId}", s.handleLog).Methods(http.MethodGet, http.MethodOptions)

	// Inspection
	s.router.HandleFunc("/games", s.handleListGames).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/games/{gameId}", s.handleGetGame).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/archive", s.handleListArchive).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/archive/{gameId}", s.handleArchive).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodOptions)

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)
}

// Router exposes the underlying router so callers can mount extra routes
// (such as /mcp) behind the same middleware.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// statusFor maps registry and service errors to an HTTP status and the
// message returned to the caller.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrInvalidGameID):
		return http.StatusBadRequest, invalidReason(err)
	case errors.Is(err, session.ErrGameExists):
		return http.StatusConflict, session.ErrGameExists.Error()
	case errors.Is(err, session.ErrGameNotFound):
		return http.StatusNotFound, session.ErrGameNotFound.Error()
	case errors.Is(err, session.ErrGameFull):
		return http.StatusForbidden, session.ErrGameFull.Error()
	case errors.Is(err, session.ErrArchiveDisabled):
		return http.StatusNotFound, session.ErrArchiveDisabled.Error()
	case errors.Is(err, session.ErrRegistryClosed):
		return http.StatusServiceUnavailable, session.ErrRegistryClosed.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// invalidReason strips the wrapping so "invalid gameId: gameId is required"
// is reported as "gameId is required".
func invalidReason(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, session.ErrInvalidGameID.Error()+": "); i >= 0 {
		return msg[i+len(session.ErrInvalidGameID.Error())+2:]
	}
	return session.ErrInvalidGameID.Error()
}

// gameIDVar returns the decoded {gameId} path variable
func gameIDVar(r *http.Request) (string, bool) {
	id, err := url.PathUnescape(mux.Vars(r)["gameId"])
	if err != nil {
		return "", false
	}
	return id, true
}

// Lifecycle Handlers

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	// An empty body is an empty object
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := session.ValidateGameID(req.GameID); err != nil {
		status, message := statusFor(err)
		respondError(w, status, message)
		return
	}

	info, err := s.service.CreateGame(r.Context(), req.GameID)
	if err != nil {
		status, message := statusFor(err)
		respondError(w, status, message)
		return
	}

	respondJSON(w, http.StatusOK, CreateResponse{
		Message: "gameId created",
		GameID:  info.GameID,
	})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDVar(r)
	if !ok {
		respondJSON(w, http.StatusBadRequest, CheckResponse{Valid: false, Message: "Invalid gameId encoding"})
		return
	}

	result, err := s.service.CheckGame(r.Context(), gameID)
	if err != nil {
		status, message := statusFor(err)
		respondJSON(w, status, CheckResponse{Valid: false, Message: message})
		return
	}

	respondJSON(w, http.StatusOK, CheckResponse{
		Valid:   true,
		Message: "gameId valid",
		GameID:  result.GameID,
		Players: result.Players,
	})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid gameId encoding")
		return
	}

	if err := s.service.RemoveGame(r.Context(), gameID); err != nil {
		status, message := statusFor(err)
		respondError(w, status, message)
		return
	}

	respondJSON(w, http.StatusOK, MessageResponse{Message: "gameId manually removed"})
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid gameId encoding")
		return
	}

	resp, err := s.service.GetLog(r.Context(), gameID)
	if err != nil {
		status, message := statusFor(err)
		respondError(w, status, message)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Inspection Handlers

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.service.ListGames(r.Context())
	if err != nil {
		status, message := statusFor(err)
		respondError(w, status, message)
		return
	}

	respondJSON(w, http.StatusOK, ListResponse{
		Count: len(games),
		Games: games,
	})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid gameId encoding")
		return
	}

	info, err := s.service.GetGame(r.Context(), gameID)
	if err != nil {
		status, message := statusFor(err)
		respondError(w, status, message)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		status, message := statusFor(err)
		respondError(w, status, message)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListArchive(w http.ResponseWriter, r *http.Request) {
	ids, err := s.service.ArchivedGames(r.Context())
	if err != nil {
		status, message := statusFor(err)
		respondError(w, status, message)
		return
	}

	respondJSON(w, http.StatusOK, ArchiveListResponse{
		Count:   len(ids),
		GameIDs: ids,
	})
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid gameId encoding")
		return
	}

	archived, err := s.service.ArchivedLog(r.Context(), gameID)
	if err != nil {
		status, message := statusFor(err)
		respondError(w, status, message)
		return
	}

	respondJSON(w, http.StatusOK, archived)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusNotFound, "websocket disabled")
		return
	}

	gameID := r.URL.Query().Get("gameId")
	if gameID == "" {
		respondError(w, http.StatusBadRequest, "gameId parameter required")
		return
	}

	// Only live game IDs can be watched
	info, err := s.service.GetGame(r.Context(), gameID)
	if err != nil {
		status, message := statusFor(err)
		respondError(w, status, message)
		return
	}

	// The subscription belongs to this lifecycle; a removal or a re-create
	// before the hub registers the client ends it
	s.hub.ServeWS(w, r, gameID, func() bool {
		current, err := s.service.GetGame(r.Context(), gameID)
		return err == nil && current.Generation == info.Generation
	})
}
