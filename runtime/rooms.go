package runtime

import (
	"chat-relay/domain"
	"sync"

	"github.com/samber/lo"
)

type Set map[domain.ConnectionID]struct{}

// RoomDirectory maps room ids to the set of connections that joined
// them. Rooms are created lazily on first join and kept as empty sets
// once the last member leaves, so membership lookups never fail.
type RoomDirectory struct {
	mu      sync.RWMutex
	members map[domain.RoomID]Set
}

func NewRoomDirectory() *RoomDirectory {
	return &RoomDirectory{members: make(map[domain.RoomID]Set)}
}

// Join adds the connection to the room. Joining a room already joined
// is a no-op.
func (d *RoomDirectory) Join(roomID domain.RoomID, connID domain.ConnectionID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.members[roomID]; !ok {
		d.members[roomID] = make(Set)
	}
	d.members[roomID][connID] = struct{}{}
}

// Leave removes the connection from the room. Leaving an unjoined room
// is a no-op.
func (d *RoomDirectory) Leave(roomID domain.RoomID, connID domain.ConnectionID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if members, ok := d.members[roomID]; ok {
		delete(members, connID)
	}
}

// LeaveAll removes the connection from every room and returns the
// rooms it was actually a member of. Used on disconnect.
func (d *RoomDirectory) LeaveAll(connID domain.ConnectionID) []domain.RoomID {
	d.mu.Lock()
	defer d.mu.Unlock()
	var left []domain.RoomID
	for roomID, members := range d.members {
		if _, ok := members[connID]; ok {
			delete(members, connID)
			left = append(left, roomID)
		}
	}
	return left
}

// Members returns the connections currently in the room. Unknown rooms
// yield an empty slice, never an error.
func (d *RoomDirectory) Members(roomID domain.RoomID) []domain.ConnectionID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return lo.Keys(d.members[roomID])
}

// BroadcastTargets is the member set as seen by the fanout engine.
func (d *RoomDirectory) BroadcastTargets(roomID domain.RoomID) []domain.ConnectionID {
	return d.Members(roomID)
}

// Contains reports whether the connection joined the room.
func (d *RoomDirectory) Contains(roomID domain.RoomID, connID domain.ConnectionID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.members[roomID][connID]
	return ok
}
