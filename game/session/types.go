package session

import (
	"time"
)

// MaxPlayers is the number of participants a game ID admits.
const MaxPlayers = 2

// MaxGameIDLength bounds the size of a game ID in bytes.
const MaxGameIDLength = 128

// DefaultTTL is how long a game ID lives after creation.
const DefaultTTL = 12 * time.Minute

// Activity log messages
const (
	MsgCreated        = "Game ID created"
	MsgPlayerJoined   = "Player joined (%d/%d)"
	MsgManualRemoval  = "Game ID manually removed"
	MsgExpired        = "Game ID auto-removed after timeout"
	MsgShutdownRemove = "Game ID discarded on server shutdown"
)

// LogEntry is a single line of a game ID's activity log
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// Snapshot is a read-only copy of a live game ID
type Snapshot struct {
	GameID string `json:"gameId"`
	// Generation distinguishes successive lifecycles of the same id
	Generation uint64     `json:"generation"`
	Players    int        `json:"players"`
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	Log        []LogEntry `json:"log"`
}

// Full reports whether no more players can join.
func (s *Snapshot) Full() bool {
	return s.Players >= MaxPlayers
}

// EventType names a lifecycle transition
type EventType string

const (
	EventCreated EventType = "created"
	EventJoined  EventType = "joined"
	EventRemoved EventType = "removed"
	EventExpired EventType = "expired"
)

// Terminal reports whether the game ID no longer exists after the event.
func (t EventType) Terminal() bool {
	return t == EventRemoved || t == EventExpired
}

// Event is delivered to the registry listener after every transition.
// Listeners receive events in Seq order, which is the order the registry
// applied the transitions.
type Event struct {
	Seq     uint64    `json:"seq"`
	Type    EventType `json:"event"`
	GameID  string    `json:"gameId"`
	Players int       `json:"players"`
	Entry   LogEntry  `json:"entry"`
}

// EventListener receives lifecycle events. It is never called with the
// registry lock held.
type EventListener func(Event)

// Reason records why a game ID ended
type Reason string

const (
	ReasonRemoved  Reason = "removed"
	ReasonExpired  Reason = "expired"
	ReasonShutdown Reason = "shutdown"
)

// Stats holds registry gauges and lifetime counters
type Stats struct {
	Active   int    `json:"active"`
	Full     int    `json:"full"`
	Created  uint64 `json:"created"`
	Joined   uint64 `json:"joined"`
	Removed  uint64 `json:"removed"`
	Expired  uint64 `json:"expired"`
	Rejected uint64 `json:"rejected"`
}
