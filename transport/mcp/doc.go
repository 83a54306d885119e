// Package mcp exposes the game ID registry to AI agents over the Model
// Context Protocol.
//
// The package is a thin proxy: every tool calls the REST API through
// api.Client, so the MCP server can run in-process (POST /mcp) or as a
// separate stdio process pointed at a remote server.
//
// MCP Tools:
//   - create_game_id: register a game ID (host, player 1)
//   - check_game_id: join a game ID (guest, player 2)
//   - remove_game_id: remove a game ID before it expires
//   - game_id_log: timestamped activity log of a live game ID
//   - list_game_ids: live game IDs
//   - game_id_stats: registry counters
//
// API failures are returned as tool errors carrying the server message and
// HTTP status, e.g. "gameId full (HTTP 403)".
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:3001")
//	server.ServeStdio(client.GetMCPServer())
package mcp
