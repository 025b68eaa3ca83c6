package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gargis23/QuizApp-sub000/internal/domain"
	"github.com/gargis23/QuizApp-sub000/internal/repository"
)

// RoomService handles room creation and discovery. Live room mutations
// belong to the game coordinator; this service only covers the
// request/response side.
type RoomService struct {
	roomRepo repository.RoomRepository
}

// NewRoomService creates a RoomService.
func NewRoomService(roomRepo repository.RoomRepository) *RoomService {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for RoomService")
	}
	return &RoomService{roomRepo: roomRepo}
}

// CreateRoom creates a new room with a unique 6-character code and the
// host as its first player.
func (s *RoomService) CreateRoom(ctx context.Context, hostID uint, hostName, category string, maxPlayers int) (*domain.Room, error) {
	logCtx := logrus.WithField("host_id", hostID)

	if category != "" && !domain.IsValidCategory(category) {
		return nil, ErrInvalidCategory
	}
	if maxPlayers <= 0 {
		maxPlayers = domain.DefaultMaxPlayers
	}

	code, err := s.generateUniqueRoomCode(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Failed to generate unique room code")
		return nil, ErrInternalServer
	}
	logCtx = logCtx.WithField("room_code", code)

	now := time.Now()
	room := &domain.Room{
		Code:       code,
		HostID:     hostID,
		HostName:   hostName,
		Category:   category,
		Status:     domain.StatusWaiting,
		IsActive:   true,
		MaxPlayers: maxPlayers,
		Players: domain.PlayerList{{
			UserID:   hostID,
			UserName: hostName,
			JoinedAt: now,
		}},
		ChatMessages: domain.ChatLog{},
	}
	room.AppendSystemChat(hostName+" created the room", now)

	if err := s.roomRepo.Save(ctx, room); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			// The generator checked uniqueness moments ago; a
			// collision here means a concurrent creation won.
			logCtx.WithError(err).Error("Room code collided on save")
			return nil, ErrInternalServer
		}
		logCtx.WithError(err).Error("Failed to save new room")
		return nil, ErrInternalServer
	}

	logCtx.WithField("room_id", room.ID).Info("Room created")
	return room, nil
}

// FindRoomByCode returns the room with the given code.
func (s *RoomService) FindRoomByCode(ctx context.Context, code string) (*domain.Room, error) {
	room, err := s.roomRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithError(err).WithField("room_code", code).Error("Failed to find room by code")
		return nil, ErrInternalServer
	}
	return room, nil
}

// ListOpenRooms returns rooms still accepting players.
func (s *RoomService) ListOpenRooms(ctx context.Context) ([]domain.Room, error) {
	rooms, err := s.roomRepo.ListOpen(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to list open rooms")
		return nil, ErrInternalServer
	}
	return rooms, nil
}

// generateUniqueRoomCode produces a random 6-character uppercase
// alphanumeric code, retrying on collision against the store.
func (s *RoomService) generateUniqueRoomCode(ctx context.Context) (string, error) {
	const letters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	const codeLength = 6
	const maxAttempts = 10

	b := make([]byte, codeLength)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		for i := range b {
			b[i] = letters[int(b[i])%len(letters)]
		}
		code := string(b)

		taken, err := s.roomRepo.IsCodeTaken(ctx, code)
		if err != nil {
			return "", fmt.Errorf("database error checking room code: %w", err)
		}
		if !taken {
			return code, nil
		}
		logrus.WithField("room_code", code).Warnf("Generated room code already exists, retrying (attempt %d)", attempt+1)
	}
	return "", fmt.Errorf("failed to generate a unique room code after %d attempts", maxAttempts)
}
