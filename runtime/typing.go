package runtime

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

type typingEntry struct {
	displayName string
	deadline    time.Time
	timer       *time.Timer
}

// TypingCoordinator owns the ephemeral typing state, scoped per room.
// Every entry carries its own expiry timer; the handle is stopped when
// the entry is refreshed, explicitly cleared, or the connection goes
// away, so no timer ever outlives the state it refers to. Every change
// broadcasts the full per-room snapshot of typing display names.
type TypingCoordinator struct {
	mu          sync.Mutex
	log         *slog.Logger
	broadcaster *Broadcaster
	ttl         time.Duration
	entries     map[domain.RoomID]map[domain.ConnectionID]*typingEntry
}

func NewTypingCoordinator(log *slog.Logger, broadcaster *Broadcaster, ttl time.Duration) *TypingCoordinator {
	return &TypingCoordinator{
		log:         log,
		broadcaster: broadcaster,
		ttl:         ttl,
		entries:     make(map[domain.RoomID]map[domain.ConnectionID]*typingEntry),
	}
}

// SetTyping records or clears the typing state of a connection in a
// room. A true signal refreshes the deadline; absence of a refresh
// before the deadline behaves like an explicit false.
func (c *TypingCoordinator) SetTyping(ctx context.Context, session domain.Session, roomID domain.RoomID, isTyping bool) {
	c.mu.Lock()
	if isTyping {
		room, ok := c.entries[roomID]
		if !ok {
			room = make(map[domain.ConnectionID]*typingEntry)
			c.entries[roomID] = room
		}
		if prev, ok := room[session.ConnectionID]; ok {
			prev.timer.Stop()
		}
		connID := session.ConnectionID
		room[connID] = &typingEntry{
			displayName: session.Identity.DisplayName,
			deadline:    time.Now().Add(c.ttl),
			timer: time.AfterFunc(c.ttl, func() {
				c.expire(roomID, connID)
			}),
		}
	} else {
		c.removeLocked(roomID, session.ConnectionID)
	}
	snapshot := c.snapshotLocked(roomID)
	c.mu.Unlock()

	c.broadcaster.ToRoom(ctx, roomID, event.TypingUsers{Room: roomID, Users: snapshot})
}

// ClearConnection drops every typing entry of the connection, across
// all rooms, and broadcasts refreshed snapshots to the affected rooms.
// Called on disconnect.
func (c *TypingCoordinator) ClearConnection(ctx context.Context, connID domain.ConnectionID) {
	c.mu.Lock()
	var affected []domain.RoomID
	for roomID, room := range c.entries {
		if _, ok := room[connID]; ok {
			c.removeLocked(roomID, connID)
			affected = append(affected, roomID)
		}
	}
	snapshots := make(map[domain.RoomID][]string, len(affected))
	for _, roomID := range affected {
		snapshots[roomID] = c.snapshotLocked(roomID)
	}
	c.mu.Unlock()

	for roomID, snapshot := range snapshots {
		c.broadcaster.ToRoom(ctx, roomID, event.TypingUsers{Room: roomID, Users: snapshot})
	}
}

// Snapshot returns the display names currently typing in the room,
// sorted for stable payloads.
func (c *TypingCoordinator) Snapshot(roomID domain.RoomID) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(roomID)
}

// Sweep removes entries whose deadline has passed and broadcasts
// refreshed snapshots. The per-entry timers already handle expiry;
// the sweep is the janitor's safety net behind them.
func (c *TypingCoordinator) Sweep(ctx context.Context) {
	now := time.Now()
	c.mu.Lock()
	snapshots := make(map[domain.RoomID][]string)
	for roomID, room := range c.entries {
		for connID, entry := range room {
			if entry.deadline.Before(now) {
				c.removeLocked(roomID, connID)
				snapshots[roomID] = nil
			}
		}
	}
	for roomID := range snapshots {
		snapshots[roomID] = c.snapshotLocked(roomID)
	}
	c.mu.Unlock()

	for roomID, snapshot := range snapshots {
		c.broadcaster.ToRoom(ctx, roomID, event.TypingUsers{Room: roomID, Users: snapshot})
	}
}

func (c *TypingCoordinator) expire(roomID domain.RoomID, connID domain.ConnectionID) {
	c.mu.Lock()
	room := c.entries[roomID]
	entry, ok := room[connID]
	if !ok || entry.deadline.After(time.Now()) {
		// Entry was refreshed or cleared after this timer fired.
		c.mu.Unlock()
		return
	}
	c.removeLocked(roomID, connID)
	snapshot := c.snapshotLocked(roomID)
	c.mu.Unlock()

	c.log.Debug("typing entry expired", "room_id", roomID, "connection_id", connID)
	c.broadcaster.ToRoom(context.Background(), roomID, event.TypingUsers{Room: roomID, Users: snapshot})
}

func (c *TypingCoordinator) removeLocked(roomID domain.RoomID, connID domain.ConnectionID) {
	room, ok := c.entries[roomID]
	if !ok {
		return
	}
	if entry, ok := room[connID]; ok {
		entry.timer.Stop()
		delete(room, connID)
	}
	if len(room) == 0 {
		delete(c.entries, roomID)
	}
}

func (c *TypingCoordinator) snapshotLocked(roomID domain.RoomID) []string {
	room := c.entries[roomID]
	names := make([]string, 0, len(room))
	for _, entry := range room {
		names = append(names, entry.displayName)
	}
	sort.Strings(names)
	return names
}
