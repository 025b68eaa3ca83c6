// Package tasks defines the asynq task types shared by the scheduler
// and the worker.
package tasks

import (
	"encoding/json"
	"time"
)

const (
	// TypeRoomRetention is the periodic sweep that deletes rooms past
	// their retention window.
	TypeRoomRetention = "room:retention"
)

// RoomRetentionPayload carries the retention window for one sweep.
type RoomRetentionPayload struct {
	MaxAge time.Duration `json:"maxAge"`
}

// NewRoomRetentionPayload serializes a retention payload.
func NewRoomRetentionPayload(maxAge time.Duration) ([]byte, error) {
	return json.Marshal(RoomRetentionPayload{MaxAge: maxAge})
}
