package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/gargis23/QuizApp-sub000/internal/repository"
	"github.com/gargis23/QuizApp-sub000/internal/tasks"
)

// DefaultRoomMaxAge is the retention window when the payload does not
// supply one.
const DefaultRoomMaxAge = 24 * time.Hour

// RoomRetentionHandler deletes rooms older than the retention window.
// It runs on a schedule regardless of room state: a 24-hour-old room is
// stale even if the host never closed it.
type RoomRetentionHandler struct {
	roomRepo repository.RoomRepository
}

// NewRoomRetentionHandler creates a RoomRetentionHandler.
func NewRoomRetentionHandler(roomRepo repository.RoomRepository) *RoomRetentionHandler {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for RoomRetentionHandler")
	}
	return &RoomRetentionHandler{roomRepo: roomRepo}
}

// ProcessTask implements asynq.Handler.
func (h *RoomRetentionHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithField("task_type", t.Type())

	maxAge := DefaultRoomMaxAge
	if len(t.Payload()) > 0 {
		var payload tasks.RoomRetentionPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			logCtx.WithError(err).Error("Invalid retention payload")
			return fmt.Errorf("unmarshal retention payload: %w", err)
		}
		if payload.MaxAge > 0 {
			maxAge = payload.MaxAge
		}
	}

	cutoff := time.Now().Add(-maxAge)
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	deleted, err := h.roomRepo.DeleteOlderThan(sweepCtx, cutoff)
	if err != nil {
		logCtx.WithError(err).Error("Room retention sweep failed")
		return fmt.Errorf("delete rooms older than %s: %w", cutoff.Format(time.RFC3339), err)
	}

	logCtx.WithFields(logrus.Fields{
		"cutoff":  cutoff.Format(time.RFC3339),
		"deleted": deleted,
	}).Info("Room retention sweep completed")
	return nil
}
