package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrGameNotFound   = errors.New("gameId not found")
	ErrGameExists     = errors.New("gameId already exists")
	ErrGameFull       = errors.New("gameId full")
	ErrInvalidGameID  = errors.New("invalid gameId")
	ErrRegistryClosed = errors.New("registry closed")
)

// archiveTimeout bounds a single archive write triggered by a transition.
const archiveTimeout = 5 * time.Second

// record is the registry-owned state of one game ID. All fields are guarded
// by Registry.mu.
type record struct {
	id        string
	players   int
	createdAt time.Time
	expiresAt time.Time
	log       []LogEntry
	timer     *time.Timer
	// gen is the sequence number of the created event of this lifecycle
	gen uint64
}

// appendLog adds a log line, keeping timestamps strictly increasing.
func (rec *record) appendLog(at time.Time, message string) LogEntry {
	if n := len(rec.log); n > 0 {
		if last := rec.log[n-1].Timestamp; !at.After(last) {
			at = last.Add(time.Microsecond)
		}
	}
	entry := LogEntry{Timestamp: at, Message: message}
	rec.log = append(rec.log, entry)
	return entry
}

func (rec *record) snapshot() *Snapshot {
	return &Snapshot{
		GameID:     rec.id,
		Generation: rec.gen,
		Players:    rec.players,
		CreatedAt:  rec.createdAt,
		ExpiresAt:  rec.expiresAt,
		Log:        rec.copyLog(),
	}
}

func (rec *record) copyLog() []LogEntry {
	out := make([]LogEntry, len(rec.log))
	copy(out, rec.log)
	return out
}

func (rec *record) archived(endedAt time.Time, reason Reason) *ArchivedLog {
	return &ArchivedLog{
		GameID:    rec.id,
		Players:   rec.players,
		CreatedAt: rec.createdAt,
		EndedAt:   endedAt,
		Reason:    reason,
		Log:       rec.copyLog(),
	}
}

// transition is a change applied under the registry lock, waiting to be
// handed to the archive and the listener.
type transition struct {
	event Event
	final *ArchivedLog
}

// Registry owns every live game ID together with its expiry timer.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*record
	closed   bool
	stats    Stats

	// seq numbers transitions; pending holds them until dispatch delivers
	// them in that order
	seq         uint64
	pending     []transition
	dispatching bool
	idle        *sync.Cond

	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
	archive  LogArchive
	listener EventListener
}

// Option configures a Registry
type Option func(*Registry)

// WithTTL sets the lifetime of a game ID measured from its creation.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithClock replaces the wall clock used for log timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithArchive stores the final log of every game ID that ends.
func WithArchive(archive LogArchive) Option {
	return func(r *Registry) {
		r.archive = archive
	}
}

// WithListener registers the lifecycle event listener.
func WithListener(listener EventListener) Option {
	return func(r *Registry) {
		r.listener = listener
	}
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]*record),
		ttl:      DefaultTTL,
		now:      time.Now,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	r.idle = sync.NewCond(&r.mu)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TTL returns the configured game ID lifetime.
func (r *Registry) TTL() time.Duration {
	return r.ttl
}

// ValidateGameID checks that id can be used as a game ID.
func ValidateGameID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: gameId is required", ErrInvalidGameID)
	}
	if len(id) > MaxGameIDLength {
		return fmt.Errorf("%w: gameId exceeds %d bytes", ErrInvalidGameID, MaxGameIDLength)
	}
	return nil
}

// Create registers a new game ID with one player and schedules its expiry.
func (r *Registry) Create(id string) (*Snapshot, error) {
	if err := ValidateGameID(id); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	if _, exists := r.sessions[id]; exists {
		r.stats.Rejected++
		r.mu.Unlock()
		return nil, ErrGameExists
	}

	now := r.now()
	rec := &record{
		id:        id,
		players:   1,
		createdAt: now,
		expiresAt: now.Add(r.ttl),
	}
	entry := rec.appendLog(now, MsgCreated)
	rec.timer = time.AfterFunc(r.ttl, func() { r.expire(rec) })
	rec.gen = r.enqueueLocked(Event{Type: EventCreated, GameID: id, Players: 1, Entry: entry}, nil)
	r.sessions[id] = rec
	r.stats.Created++
	snap := rec.snapshot()
	r.mu.Unlock()

	r.logger.Info("game id created", "game_id", id, "expires_at", snap.ExpiresAt)
	r.dispatch()
	return snap, nil
}

// Join admits the second player. It fails with ErrGameFull once both seats
// are taken.
func (r *Registry) Join(id string) (*Snapshot, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	rec, exists := r.sessions[id]
	if !exists {
		r.mu.Unlock()
		return nil, ErrGameNotFound
	}
	if rec.players >= MaxPlayers {
		r.stats.Rejected++
		r.mu.Unlock()
		r.logger.Debug("join rejected, game id full", "game_id", id)
		return nil, ErrGameFull
	}

	rec.players++
	entry := rec.appendLog(r.now(), fmt.Sprintf(MsgPlayerJoined, rec.players, MaxPlayers))
	r.stats.Joined++
	r.enqueueLocked(Event{Type: EventJoined, GameID: id, Players: rec.players, Entry: entry}, nil)
	snap := rec.snapshot()
	r.mu.Unlock()

	r.logger.Info("player joined", "game_id", id, "players", snap.Players)
	r.dispatch()
	return snap, nil
}

// Remove cancels the pending expiry and deletes the game ID.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRegistryClosed
	}
	rec, exists := r.sessions[id]
	if !exists {
		r.mu.Unlock()
		return ErrGameNotFound
	}

	rec.timer.Stop()
	now := r.now()
	entry := rec.appendLog(now, MsgManualRemoval)
	delete(r.sessions, id)
	r.stats.Removed++
	final := rec.archived(now, ReasonRemoved)
	r.enqueueLocked(Event{Type: EventRemoved, GameID: id, Players: final.Players, Entry: entry}, final)
	r.mu.Unlock()

	r.logger.Info("game id removed", "game_id", id)
	r.dispatch()
	return nil
}

// expire runs on the timer goroutine. The identity check makes a timer that
// fired concurrently with Remove, or for an id since re-created, a no-op.
func (r *Registry) expire(rec *record) {
	r.mu.Lock()
	if r.closed || r.sessions[rec.id] != rec {
		r.mu.Unlock()
		return
	}

	now := r.now()
	entry := rec.appendLog(now, MsgExpired)
	delete(r.sessions, rec.id)
	r.stats.Expired++
	final := rec.archived(now, ReasonExpired)
	r.enqueueLocked(Event{Type: EventExpired, GameID: rec.id, Players: final.Players, Entry: entry}, final)
	r.mu.Unlock()

	r.logger.Info("game id expired", "game_id", rec.id, "ttl", r.ttl)
	r.dispatch()
}

// Log returns a copy of the activity log of a live game ID.
func (r *Registry) Log(id string) ([]LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	rec, exists := r.sessions[id]
	if !exists {
		return nil, ErrGameNotFound
	}
	return rec.copyLog(), nil
}

// Get returns a snapshot of a live game ID.
func (r *Registry) Get(id string) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	rec, exists := r.sessions[id]
	if !exists {
		return nil, ErrGameNotFound
	}
	return rec.snapshot(), nil
}

// List returns snapshots of all live game IDs, oldest first.
func (r *Registry) List() []*Snapshot {
	r.mu.Lock()
	result := make([]*Snapshot, 0, len(r.sessions))
	for _, rec := range r.sessions {
		result = append(result, rec.snapshot())
	}
	r.mu.Unlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].GameID < result[j].GameID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Stats returns current gauges and lifetime counters.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := r.stats
	stats.Active = len(r.sessions)
	for _, rec := range r.sessions {
		if rec.players >= MaxPlayers {
			stats.Full++
		}
	}
	return stats
}

// Close stops every pending expiry, archives the remaining game IDs and
// rejects all later operations. Calling Close more than once is a no-op.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true

	now := r.now()
	finals := make([]*ArchivedLog, 0, len(r.sessions))
	for id, rec := range r.sessions {
		rec.timer.Stop()
		rec.appendLog(now, MsgShutdownRemove)
		finals = append(finals, rec.archived(now, ReasonShutdown))
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	// Transitions applied before close reach the archive first
	r.dispatch()
	r.mu.Lock()
	for r.dispatching {
		r.idle.Wait()
	}
	r.mu.Unlock()

	r.logger.Info("registry closed", "discarded", len(finals))
	if r.archive == nil {
		return nil
	}

	var errs []error
	for _, final := range finals {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := r.archive.Save(ctx, final); err != nil {
			errs = append(errs, fmt.Errorf("archive %s: %w", final.GameID, err))
		}
	}
	return errors.Join(errs...)
}

// store hands an ended game ID to the archive. Failures are logged only.
func (r *Registry) store(final *ArchivedLog) {
	if r.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := r.archive.Save(ctx, final); err != nil {
		r.logger.Warn("failed to archive game id log", "game_id", final.GameID, "error", err)
	}
}

func (r *Registry) notify(ev Event) {
	if r.listener != nil {
		r.listener(ev)
	}
}

// enqueueLocked numbers a transition and queues it for dispatch. It returns
// the assigned sequence number. r.mu must be held.
func (r *Registry) enqueueLocked(ev Event, final *ArchivedLog) uint64 {
	r.seq++
	ev.Seq = r.seq
	r.pending = append(r.pending, transition{event: ev, final: final})
	return r.seq
}

// dispatch archives and announces queued transitions in sequence order.
// Only one goroutine drains the queue at a time; a caller that finds a drain
// in progress leaves its transitions to that goroutine.
func (r *Registry) dispatch() {
	r.mu.Lock()
	if r.dispatching {
		r.mu.Unlock()
		return
	}
	r.dispatching = true
	for len(r.pending) > 0 {
		batch := r.pending
		r.pending = nil
		r.mu.Unlock()

		for _, t := range batch {
			if t.final != nil {
				r.store(t.final)
			}
			r.notify(t.event)
		}

		r.mu.Lock()
	}
	r.dispatching = false
	r.idle.Broadcast()
	r.mu.Unlock()
}
