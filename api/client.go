package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wricardo/mcp-training/gameids/game/service"
	"github.com/wricardo/mcp-training/gameids/game/session"
)

// Error is returned by Client when the server answers with a non-2xx status
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error: %d", e.StatusCode)
	}
	return e.Message
}

// Client is a typed HTTP client for the game ID API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// BaseURL returns the server address the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Create registers gameID
func (c *Client) Create(ctx context.Context, gameID string) (*CreateResponse, error) {
	var resp CreateResponse
	if err := c.do(ctx, http.MethodPost, "/create", CreateRequest{GameID: gameID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Check joins gameID as the second player
func (c *Client) Check(ctx context.Context, gameID string) (*CheckResponse, error) {
	var resp CheckResponse
	if err := c.do(ctx, http.MethodGet, "/check/"+url.PathEscape(gameID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Remove deletes gameID before it expires
func (c *Client) Remove(ctx context.Context, gameID string) (*MessageResponse, error) {
	var resp MessageResponse
	if err := c.do(ctx, http.MethodDelete, "/remove/"+url.PathEscape(gameID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Log returns the activity log of a live game ID
func (c *Client) Log(ctx context.Context, gameID string) (*service.LogResponse, error) {
	var resp service.LogResponse
	if err := c.do(ctx, http.MethodGet, "/log/"+url.PathEscape(gameID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Game returns a snapshot of a live game ID
func (c *Client) Game(ctx context.Context, gameID string) (*service.GameInfo, error) {
	var resp service.GameInfo
	if err := c.do(ctx, http.MethodGet, "/games/"+url.PathEscape(gameID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// List returns all live game IDs
func (c *Client) List(ctx context.Context) (*ListResponse, error) {
	var resp ListResponse
	if err := c.do(ctx, http.MethodGet, "/games", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats returns registry counters
func (c *Client) Stats(ctx context.Context) (*service.StatsInfo, error) {
	var resp service.StatsInfo
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ArchiveList returns the ids that have an archived log
func (c *Client) ArchiveList(ctx context.Context) (*ArchiveListResponse, error) {
	var resp ArchiveListResponse
	if err := c.do(ctx, http.MethodGet, "/archive", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Archive returns the final log of an ended game ID
func (c *Client) Archive(ctx context.Context, gameID string) (*session.ArchivedLog, error) {
	var resp session.ArchivedLog
	if err := c.do(ctx, http.MethodGet, "/archive/"+url.PathEscape(gameID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health reports whether the server answers
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// /check answers with "message", every other route with "error"
		var errResp struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error
		if msg == "" {
			msg = errResp.Message
		}
		return &Error{StatusCode: resp.StatusCode, Message: msg}
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}
