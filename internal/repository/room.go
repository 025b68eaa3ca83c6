package repository

import (
	"context"
	"time"

	"github.com/gargis23/QuizApp-sub000/internal/domain"
)

// RoomRepository defines storage and retrieval of quiz rooms.
type RoomRepository interface {
	// FindByCode looks up a room by its 6-character code. Returns
	// ErrRoomNotFound when absent.
	FindByCode(ctx context.Context, code string) (*domain.Room, error)

	// Save persists the room, creating it when ID is zero and
	// updating it otherwise. Unique-constraint violations map to
	// ErrDuplicateEntry.
	Save(ctx context.Context, room *domain.Room) error

	// IsCodeTaken reports whether a room with the given code already
	// exists; used by the code generator's retry loop.
	IsCodeTaken(ctx context.Context, code string) (bool, error)

	// ListOpen returns active rooms that are still accepting players:
	// status waiting and entry not closed.
	ListOpen(ctx context.Context) ([]domain.Room, error)

	// DeleteOlderThan removes rooms created before cutoff regardless
	// of status, returning the number deleted. Backs the retention
	// sweep.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
