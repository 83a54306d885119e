package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/mcp-training/gameids/api"
	"github.com/wricardo/mcp-training/gameids/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	api       *api.Client
	mcpServer *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		api: api.NewClient(baseURL),
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Game ID Registry",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Game ID Registry - MCP Interface

This is a thin client that proxies all requests to the REST API server.

A game ID pairs exactly two players. The host creates it (player 1), the guest
checks it (player 2). A game ID expires 12 minutes after creation unless it is
removed first. IDs are case-sensitive.

AVAILABLE TOOLS:
- create_game_id: Register a new game ID (host)
- check_game_id: Join a game ID as second player (guest)
- remove_game_id: Remove a game ID before it expires
- game_id_log: Read the activity log of a live game ID
- list_game_ids: List live game IDs
- game_id_stats: Registry counters`),
	)

	// Register all tools
	c.registerTools()
}

func gameIDSchema(description string) mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"game_id": map[string]interface{}{
				"type":        "string",
				"description": description,
			},
		},
		Required: []string{"game_id"},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Lifecycle
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_game_id",
		Description: "Register a new game ID with the caller as first player",
		InputSchema: gameIDSchema("Game ID to create (opaque, case-sensitive)"),
	}, c.handleCreate)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "check_game_id",
		Description: "Validate a game ID and join it as the second player",
		InputSchema: gameIDSchema("Game ID to join"),
	}, c.handleCheck)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "remove_game_id",
		Description: "Remove a game ID before it expires",
		InputSchema: gameIDSchema("Game ID to remove"),
	}, c.handleRemove)

	// Inspection
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_id_log",
		Description: "Get the timestamped activity log of a live game ID",
		InputSchema: gameIDSchema("Game ID whose log to read"),
	}, c.handleLog)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_game_ids",
		Description: "List all live game IDs",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleList)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_id_stats",
		Description: "Get registry counters (active, full, created, joined, removed, expired, rejected)",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleStats)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// gameIDArg extracts the required game_id argument
func gameIDArg(request mcp.CallToolRequest) (string, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	gameID, _ := args["game_id"].(string)
	if gameID == "" {
		return "", errors.New("game_id is required")
	}
	return gameID, nil
}

// toolError turns an API failure into a tool error result
func toolError(err error) *mcp.CallToolResult {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return mcp.NewToolResultError(fmt.Sprintf("%s (HTTP %d)", apiErr.Error(), apiErr.StatusCode))
	}
	return mcp.NewToolResultError(err.Error())
}

// Tool handlers

func (c *Client) handleCreate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameID, err := gameIDArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := c.api.Create(ctx, gameID)
	if err != nil {
		return toolError(err), nil
	}

	result := fmt.Sprintf("Created game ID: %s\nPlayers: 1/2\nShare this ID with the second player.\n", resp.GameID)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleCheck(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameID, err := gameIDArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := c.api.Check(ctx, gameID)
	if err != nil {
		return toolError(err), nil
	}

	result := fmt.Sprintf("✓ %s: joined game ID %s\nPlayers: %d/2\n", resp.Message, resp.GameID, resp.Players)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleRemove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameID, err := gameIDArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := c.api.Remove(ctx, gameID)
	if err != nil {
		return toolError(err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s: %s\n", gameID, resp.Message)), nil
}

func (c *Client) handleLog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameID, err := gameIDArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := c.api.Log(ctx, gameID)
	if err != nil {
		return toolError(err), nil
	}

	return mcp.NewToolResultText(formatLog(resp)), nil
}

func (c *Client) handleList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := c.api.List(ctx)
	if err != nil {
		return toolError(err), nil
	}

	return mcp.NewToolResultText(formatGameList(resp.Games)), nil
}

func (c *Client) handleStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := c.api.Stats(ctx)
	if err != nil {
		return toolError(err), nil
	}

	return mcp.NewToolResultText(formatStats(stats)), nil
}

// Formatters

func formatLog(resp *service.LogResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Log for %s (%d entries):\n", resp.GameID, len(resp.Log))
	for _, entry := range resp.Log {
		fmt.Fprintf(&b, "  %s  %s\n", entry.Timestamp.Format(time.RFC3339Nano), entry.Message)
	}
	return b.String()
}

func formatGameList(games []*service.GameInfo) string {
	if len(games) == 0 {
		return "No live game IDs.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Live game IDs (%d):\n\n", len(games))
	for _, g := range games {
		status := "waiting"
		if g.Full {
			status = "full"
		}
		fmt.Fprintf(&b, "- %s (%d/2 %s, created %s, expires in %s)\n",
			g.GameID, g.Players, status, g.CreatedAt.Format("15:04:05"), g.ExpiresIn)
	}
	return b.String()
}

func formatStats(stats *service.StatsInfo) string {
	var b strings.Builder
	b.WriteString("Registry stats:\n")
	fmt.Fprintf(&b, "  Active:   %d (%d full)\n", stats.Active, stats.Full)
	fmt.Fprintf(&b, "  Created:  %d\n", stats.Created)
	fmt.Fprintf(&b, "  Joined:   %d\n", stats.Joined)
	fmt.Fprintf(&b, "  Removed:  %d\n", stats.Removed)
	fmt.Fprintf(&b, "  Expired:  %d\n", stats.Expired)
	fmt.Fprintf(&b, "  Rejected: %d\n", stats.Rejected)
	fmt.Fprintf(&b, "  TTL:      %s\n", stats.TTL)
	return b.String()
}
