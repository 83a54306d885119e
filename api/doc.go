// Package api provides the HTTP surface of the game ID registry.
//
// The api package implements:
//   - Lifecycle endpoints (create, check, remove, log)
//   - Read-only inspection endpoints (games, stats, archive, health)
//   - WebSocket upgrade for lifecycle notifications
//   - Request IDs, structured access logging and permissive CORS
//   - A typed Client for every route
//
// Endpoints:
//
// Lifecycle:
//   - POST /create            body {"gameId": "..."}
//   - GET /check/{gameId}     joins as the second player
//   - DELETE /remove/{gameId}
//   - GET /log/{gameId}
//
// Inspection:
//   - GET /games              live game IDs, oldest first
//   - GET /games/{gameId}     snapshot of one game ID
//   - GET /stats              registry counters
//   - GET /archive            ids with an archived log
//   - GET /archive/{gameId}   final log of an ended game ID
//   - GET /health
//   - GET /ws?gameId=...      lifecycle event stream
//
// Game IDs are opaque; clients must path-escape them. The router matches on
// the encoded path so an escaped "/" stays inside one segment.
//
// Error Handling:
//
// Registry errors map to status codes:
//
//	invalid gameId   400
//	gameId full      403
//	gameId not found 404
//	already exists   409
//	registry closed  503
//
// Failures are returned as {"error": "..."}; /check always answers with
// {"valid": bool, "message": "..."}.
package api
