// Package runtime hosts the mutable shared state of the core (session
// registry, room directory) and the coordinators deriving presence and
// typing broadcasts from it. It orchestrates the system without
// containing message semantics or storage logic.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"log/slog"
)

// Orchestrator is the composition root of the runtime: it owns the
// session lifecycle end to end, keeping registry, directory, typing
// state, and presence broadcasts consistent with each other.
type Orchestrator struct {
	log         *slog.Logger
	registry    *Registry
	rooms       *RoomDirectory
	broadcaster *Broadcaster
	typing      *TypingCoordinator
	presence    *PresenceCoordinator
	supervisor  contract.ISupervisor
}

func NewOrchestrator(
	log *slog.Logger,
	supervisor contract.ISupervisor,
	registry *Registry,
	rooms *RoomDirectory,
	broadcaster *Broadcaster,
	typing *TypingCoordinator,
	presence *PresenceCoordinator,
) *Orchestrator {
	return &Orchestrator{
		log:         log,
		registry:    registry,
		rooms:       rooms,
		broadcaster: broadcaster,
		typing:      typing,
		presence:    presence,
		supervisor:  supervisor,
	}
}

func (o *Orchestrator) Registry() *Registry        { return o.registry }
func (o *Orchestrator) Rooms() *RoomDirectory      { return o.rooms }
func (o *Orchestrator) Broadcaster() *Broadcaster  { return o.broadcaster }
func (o *Orchestrator) Typing() *TypingCoordinator { return o.typing }

// Connect registers a verified connection and triggers the presence
// broadcasts for its default room.
func (o *Orchestrator) Connect(ctx context.Context, connID domain.ConnectionID, identity domain.Identity, sink contract.EventSink) (domain.Session, error) {
	session, err := o.registry.Register(connID, identity, sink)
	if err != nil {
		return domain.Session{}, err
	}
	o.log.Info("session registered",
		"connection_id", connID,
		"principal_id", identity.PrincipalID,
		"display_name", identity.DisplayName)
	o.presence.OnConnect(ctx, session)
	return session, nil
}

// Disconnect tears the session down: registry entry, room memberships,
// and typing state go in one sweep, then departures are broadcast.
// Unknown connections are tolerated as a no-op.
func (o *Orchestrator) Disconnect(ctx context.Context, connID domain.ConnectionID) {
	session, leftRooms, ok := o.registry.Deregister(connID)
	if !ok {
		return
	}
	o.typing.ClearConnection(ctx, connID)
	o.log.Info("session removed", "connection_id", connID, "principal_id", session.Identity.PrincipalID)
	o.presence.OnDisconnect(ctx, session, leftRooms)
}

// JoinRoom moves the session to the room: it leaves its previous
// current room (the default room membership is kept), joins the new
// one, and announces the join. Joining the current room again only
// re-announces it.
func (o *Orchestrator) JoinRoom(ctx context.Context, connID domain.ConnectionID, roomID domain.RoomID) error {
	session, ok := o.registry.Lookup(connID)
	if !ok {
		return errors.ErrNotAuthenticated
	}
	if prev := session.CurrentRoom; prev != roomID && prev != domain.DefaultRoom {
		o.rooms.Leave(prev, connID)
		o.presence.OnLeaveRoom(ctx, session, prev)
	}
	o.rooms.Join(roomID, connID)
	o.registry.SetCurrentRoom(connID, roomID)
	session.CurrentRoom = roomID
	o.presence.OnJoinRoom(ctx, session, roomID)
	return nil
}

// LeaveRoom removes the session from the room and falls back to the
// default room as current. Leaving an unjoined room is a no-op apart
// from the broadcastless membership check. The default room is
// permanent: membership there only ends with the connection, so an
// explicit leave of it is ignored.
func (o *Orchestrator) LeaveRoom(ctx context.Context, connID domain.ConnectionID, roomID domain.RoomID) error {
	session, ok := o.registry.Lookup(connID)
	if !ok {
		return errors.ErrNotAuthenticated
	}
	if roomID == domain.DefaultRoom {
		return nil
	}
	if !o.rooms.Contains(roomID, connID) {
		return nil
	}
	o.rooms.Leave(roomID, connID)
	if session.CurrentRoom == roomID {
		o.registry.SetCurrentRoom(connID, domain.DefaultRoom)
	}
	o.presence.OnLeaveRoom(ctx, session, roomID)
	return nil
}

// SetTyping forwards a typing signal for a registered session.
func (o *Orchestrator) SetTyping(ctx context.Context, connID domain.ConnectionID, roomID domain.RoomID, isTyping bool) error {
	session, ok := o.registry.Lookup(connID)
	if !ok {
		return errors.ErrNotAuthenticated
	}
	o.registry.Touch(connID)
	o.typing.SetTyping(ctx, session, roomID, isTyping)
	return nil
}

// Start hands the background workers to the supervisor and launches
// supervision. Returns immediately; Stop tears everything down.
func (o *Orchestrator) Start(ctx context.Context, workers ...contract.Worker) {
	o.supervisor.Add(workers...)
	go o.supervisor.Run(ctx)
	o.log.Info("orchestrator started", "workers", len(workers))
}

// Stop cancels supervision; workers observe their context and exit.
func (o *Orchestrator) Stop() {
	o.log.Info("requesting orchestrator shutdown")
	o.supervisor.Stop()
}
