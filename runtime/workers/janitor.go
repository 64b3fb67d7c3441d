package workers

import (
	"chat-relay/contract"
	"chat-relay/runtime"
	"context"
	"log/slog"
	"time"
)

var _ contract.Worker = (*TypingJanitor)(nil)

// TypingJanitor periodically sweeps expired typing entries. The
// coordinator's per-entry timers handle expiry on their own; the
// janitor catches entries whose timer was lost to a crashed goroutine
// so a stale name can never stay on screen.
type TypingJanitor struct {
	typing   *runtime.TypingCoordinator
	interval time.Duration
	log      *slog.Logger
}

func NewTypingJanitor(typing *runtime.TypingCoordinator, interval time.Duration, log *slog.Logger) *TypingJanitor {
	return &TypingJanitor{typing: typing, interval: interval, log: log}
}

func (w *TypingJanitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case <-ticker.C:
			w.typing.Sweep(ctx)
		}
	}
}
