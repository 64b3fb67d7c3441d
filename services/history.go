package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// HistoryService serves bounded, ordered slices of room history for
// backward scrolling. An empty page signals "no more history"; it is
// never an error.
type HistoryService struct {
	log             *slog.Logger
	store           contract.Store
	defaultPageSize int
	maxPageSize     int
}

func NewHistoryService(log *slog.Logger, store contract.Store, defaultPageSize, maxPageSize int) *HistoryService {
	return &HistoryService{log: log, store: store, defaultPageSize: defaultPageSize, maxPageSize: maxPageSize}
}

// Page returns up to pageSize messages of the room strictly older than
// the cursor message, oldest-first within the page. A nil cursor means
// "the most recent page"; so does a cursor the store cannot resolve
// anymore. Non-positive or oversized page sizes are clamped.
func (s *HistoryService) Page(ctx context.Context, roomID domain.RoomID, cursor *uuid.UUID, pageSize int) ([]domain.Message, error) {
	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}
	return s.store.FindPage(ctx, roomID, cursor, pageSize)
}
