package workers

import (
	"chat-relay/domain"
	"chat-relay/runtime"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTypingJanitor_Sweeps_Stale_Entries(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	rooms := runtime.NewRoomDirectory()
	registry := runtime.NewRegistry(log, rooms)
	broadcaster := runtime.NewBroadcaster(log, registry, rooms, time.Second)
	typing := runtime.NewTypingCoordinator(log, broadcaster, time.Nanosecond)

	session := domain.Session{
		ConnectionID: domain.ConnectionID(uuid.NewString()),
		Identity:     domain.Identity{PrincipalID: "alice", DisplayName: "alice"},
	}
	typing.SetTyping(context.Background(), session, domain.DefaultRoom, true)

	janitor := NewTypingJanitor(typing, 10*time.Millisecond, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = janitor.Run(ctx) }()

	req.Eventually(func() bool {
		return len(typing.Snapshot(domain.DefaultRoom)) == 0
	}, time.Second, 10*time.Millisecond)
}
