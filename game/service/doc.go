// Package service provides the business logic layer for the Game ID Server.
//
// The service package implements:
//   - Game ID creation, admission and removal
//   - Activity log retrieval for live and archived game IDs
//   - Registry statistics
//
// Core Interfaces:
//
// GameIDService is the main service interface used by the HTTP API.
// Registry is the storage contract satisfied by *session.Registry.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP) and
// the session registry. It converts registry snapshots into response DTOs
// and wraps registry errors with context while keeping the session sentinel
// errors reachable through errors.Is.
//
// Usage:
//
//	registry := session.NewRegistry()
//	svc := service.NewGameIDService(registry, nil, logger)
//
//	info, err := svc.CreateGame(ctx, "abc1")
//	if errors.Is(err, session.ErrGameExists) {
//		// pick another id
//	}
package service
