// Package session provides the game ID registry for the Game ID Server.
//
// The session package implements:
//   - Thread-safe registration of opaque game IDs
//   - Two-seat admission (creator plus exactly one joiner)
//   - Automatic expiry a fixed time after creation
//   - A per-ID activity log with strictly increasing timestamps
//   - Optional archiving of logs once an ID ends
//
// Core Types:
//
// Registry owns every live game ID and its expiry timer. Callers receive
// Snapshot copies and never touch registry state directly.
//
// LogArchive stores the final log of an ended game ID. FileArchive writes
// one JSON file per ID; RedisArchive keeps them in Redis with a retention TTL.
//
// Lifecycle:
//
//	Create  -> 1 player, expiry scheduled at now+TTL
//	Join    -> 2 players; further joins fail with ErrGameFull
//	Remove  -> expiry cancelled, ID deleted
//	expiry  -> ID deleted unless already removed
//
// Usage:
//
//	registry := session.NewRegistry(session.WithTTL(12 * time.Minute))
//	defer registry.Close(context.Background())
//
//	if _, err := registry.Create("abc1"); err != nil {
//		log.Fatal(err)
//	}
//	if _, err := registry.Join("abc1"); errors.Is(err, session.ErrGameFull) {
//		// both seats taken
//	}
//
// Concurrency:
//
// All operations serialize on a single mutex. Expiry timers re-check, under
// that mutex, that the record they were scheduled for is still the live one,
// so a timer racing with Remove or with a re-created ID never deletes the
// wrong record. Listeners and archives are called after the mutex is released.
package session
