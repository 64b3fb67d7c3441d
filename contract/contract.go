//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"reflect"

	"github.com/google/uuid"
)

// Store is the facade over durable message storage. The core
// orchestrates delivery; persistence lives behind this interface.
// Every call is a suspension point and may block.
type Store interface {
	// Create persists the message and returns the canonical copy with
	// store-assigned id and timestamp.
	Create(ctx context.Context, msg domain.Message) (domain.Message, error)
	// FindPage returns up to pageSize non-private messages of the room
	// strictly older than the cursor message, oldest-first. A nil or
	// unresolvable cursor yields the most recent page.
	FindPage(ctx context.Context, room domain.RoomID, cursor *uuid.UUID, pageSize int) ([]domain.Message, error)
	FindByID(ctx context.Context, id uuid.UUID) (domain.Message, error)
	// MarkRead adds the principal to the message's readBy set.
	// The bool reports whether the set actually changed.
	MarkRead(ctx context.Context, id uuid.UUID, principalID string) (domain.Message, bool, error)
	// ToggleReaction flips the (principal, kind) reaction pair.
	// The bool reports whether the reaction is active after the call.
	ToggleReaction(ctx context.Context, id uuid.UUID, principalID, kind string) (domain.Message, bool, error)
}

// IdentityVerifier turns an opaque token into a verified identity.
// Verification is external to the core and may block.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (domain.Identity, error)
}

// EventSink receives outbound events for one consumer. Implementations
// must not block past the context: fanout is best-effort per recipient.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision, avoiding manual naming on the
// Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
