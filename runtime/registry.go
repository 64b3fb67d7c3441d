package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
)

type sessionEntry struct {
	session domain.Session
	sink    contract.EventSink
}

// Registry is the session registry: the single source of truth for who
// is online. It maps connection ids to sessions and their event sinks,
// keeps a principal index for multi-device delivery, and mirrors every
// membership change into the room directory inside its own critical
// section so both structures always agree.
type Registry struct {
	mu          sync.RWMutex
	log         *slog.Logger
	rooms       *RoomDirectory
	sessions    map[domain.ConnectionID]*sessionEntry
	byPrincipal map[string]Set
}

func NewRegistry(log *slog.Logger, rooms *RoomDirectory) *Registry {
	return &Registry{
		log:         log,
		rooms:       rooms,
		sessions:    make(map[domain.ConnectionID]*sessionEntry),
		byPrincipal: make(map[string]Set),
	}
}

// Register creates a session for the connection and joins it to the
// default room. A connection id that is already registered is rejected
// with ErrDuplicateConnection rather than silently overwritten: an
// overwrite would corrupt the prior session's room membership.
func (r *Registry) Register(connID domain.ConnectionID, identity domain.Identity, sink contract.EventSink) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[connID]; ok {
		r.log.Warn("rejecting duplicate connection id", "connection_id", connID, "principal_id", identity.PrincipalID)
		return domain.Session{}, errors.ErrDuplicateConnection
	}

	session := domain.Session{
		ConnectionID: connID,
		Identity:     identity,
		CurrentRoom:  domain.DefaultRoom,
		LastSeen:     time.Now().UTC(),
	}
	r.sessions[connID] = &sessionEntry{session: session, sink: sink}

	if _, ok := r.byPrincipal[identity.PrincipalID]; !ok {
		r.byPrincipal[identity.PrincipalID] = make(Set)
	}
	r.byPrincipal[identity.PrincipalID][connID] = struct{}{}

	r.rooms.Join(domain.DefaultRoom, connID)
	return session, nil
}

// Deregister removes the session and every room membership it held.
// Deregistering an unknown connection is a no-op, not an error, since
// disconnect can race with other cleanup. Returns the removed session
// and the rooms it left.
func (r *Registry) Deregister(connID domain.ConnectionID) (domain.Session, []domain.RoomID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[connID]
	if !ok {
		return domain.Session{}, nil, false
	}
	delete(r.sessions, connID)

	principalID := entry.session.Identity.PrincipalID
	if conns, ok := r.byPrincipal[principalID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.byPrincipal, principalID)
		}
	}

	left := r.rooms.LeaveAll(connID)
	return entry.session, left, true
}

func (r *Registry) Lookup(connID domain.ConnectionID) (domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[connID]
	if !ok {
		return domain.Session{}, false
	}
	return entry.session, true
}

// IdentitySessions returns every connection owned by the principal.
// Used for targeted delivery to all devices of a user.
func (r *Registry) IdentitySessions(principalID string) []domain.ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.byPrincipal[principalID])
}

// SetCurrentRoom records the room the session considers current.
func (r *Registry) SetCurrentRoom(connID domain.ConnectionID, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.sessions[connID]; ok {
		entry.session.CurrentRoom = roomID
		entry.session.LastSeen = time.Now().UTC()
	}
}

// Touch refreshes the session's last-seen timestamp.
func (r *Registry) Touch(connID domain.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.sessions[connID]; ok {
		entry.session.LastSeen = time.Now().UTC()
	}
}

// Sinks resolves connection ids to their event sinks, skipping
// connections that disappeared in the meantime.
func (r *Registry) Sinks(connIDs []domain.ConnectionID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sinks []contract.EventSink
	for _, connID := range connIDs {
		if entry, ok := r.sessions[connID]; ok {
			sinks = append(sinks, entry.sink)
		}
	}
	return sinks
}

// OnlineIdentities returns the distinct identities with at least one
// live connection. Feeds the user_list snapshot.
func (r *Registry) OnlineIdentities() []domain.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{}, len(r.byPrincipal))
	var identities []domain.Identity
	for _, entry := range r.sessions {
		principalID := entry.session.Identity.PrincipalID
		if _, ok := seen[principalID]; ok {
			continue
		}
		seen[principalID] = struct{}{}
		identities = append(identities, entry.session.Identity)
	}
	return identities
}
