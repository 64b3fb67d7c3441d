package runtime

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"log/slog"
)

// PresenceCoordinator derives join/leave notifications and online-user
// snapshots from session lifecycle changes. It only reads registry and
// directory state; the registry stays the single writer.
type PresenceCoordinator struct {
	log         *slog.Logger
	registry    *Registry
	broadcaster *Broadcaster
}

func NewPresenceCoordinator(log *slog.Logger, registry *Registry, broadcaster *Broadcaster) *PresenceCoordinator {
	return &PresenceCoordinator{log: log, registry: registry, broadcaster: broadcaster}
}

// OnConnect announces the new session to its room and refreshes the
// global online-user snapshot.
func (p *PresenceCoordinator) OnConnect(ctx context.Context, session domain.Session) {
	p.broadcaster.ToRoom(ctx, session.CurrentRoom, event.UserJoined{
		Room:        session.CurrentRoom,
		PrincipalID: session.Identity.PrincipalID,
		DisplayName: session.Identity.DisplayName,
	})
	p.broadcastUserList(ctx, session.CurrentRoom)
}

// OnDisconnect announces the departure to every room the session was a
// member of and refreshes the online-user snapshot.
func (p *PresenceCoordinator) OnDisconnect(ctx context.Context, session domain.Session, leftRooms []domain.RoomID) {
	for _, roomID := range leftRooms {
		p.broadcaster.ToRoom(ctx, roomID, event.UserLeft{
			Room:        roomID,
			PrincipalID: session.Identity.PrincipalID,
			DisplayName: session.Identity.DisplayName,
		})
	}
	p.broadcastUserList(ctx, domain.DefaultRoom)
}

func (p *PresenceCoordinator) OnJoinRoom(ctx context.Context, session domain.Session, roomID domain.RoomID) {
	p.broadcaster.ToRoom(ctx, roomID, event.RoomJoined{
		Room:        roomID,
		PrincipalID: session.Identity.PrincipalID,
		DisplayName: session.Identity.DisplayName,
	})
}

func (p *PresenceCoordinator) OnLeaveRoom(ctx context.Context, session domain.Session, roomID domain.RoomID) {
	p.broadcaster.ToRoom(ctx, roomID, event.RoomLeft{
		Room:        roomID,
		PrincipalID: session.Identity.PrincipalID,
		DisplayName: session.Identity.DisplayName,
	})
}

func (p *PresenceCoordinator) broadcastUserList(ctx context.Context, roomID domain.RoomID) {
	p.broadcaster.ToRoom(ctx, roomID, event.UserList{Users: p.registry.OnlineIdentities()})
}
