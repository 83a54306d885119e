// Package websocket pushes game ID lifecycle events to subscribed clients.
//
// The websocket package implements:
//   - Per game ID subscriptions (?gameId=lobby-7)
//   - Fan-out of registry events (created, joined, removed, expired)
//   - Disconnection of subscribers once their game ID ends
//   - Ping/pong keepalive and connection cleanup
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Each client connection is handled by a read and a
// write goroutine. Subscriptions are listen-only; frames sent by clients are
// discarded.
//
// Message Protocol:
//
// Every frame is a JSON Message:
//
//	{"gameId":"lobby-7","event":"joined","players":2,
//	 "entry":{"timestamp":"...","message":"Player joined (2/2)"}}
//
// After a "removed" or "expired" frame the server closes the connection
// with a normal closure.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run()
//	defer hub.Stop()
//
//	registry := session.NewRegistry(session.WithListener(hub.Publish))
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		gameID := r.URL.Query().Get("gameId")
//		snap, err := registry.Get(gameID)
//		if err != nil {
//			http.NotFound(w, r)
//			return
//		}
//		hub.ServeWS(w, r, gameID, func() bool {
//			current, err := registry.Get(gameID)
//			return err == nil && current.Generation == snap.Generation
//		})
//	})
//
// The live callback closes subscriptions whose game ID ended between the
// caller's lookup and registration.
//
// Concurrency:
//
// Publish is safe to call from any goroutine, including registry timer
// callbacks. It never blocks after Stop.
package websocket
