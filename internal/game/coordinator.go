// Package game holds the room lifecycle core: the coordinator that
// serializes and applies room mutations, the per-room question clock,
// and the connection registry.
package game

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gargis23/QuizApp-sub000/internal/domain"
	"github.com/gargis23/QuizApp-sub000/internal/dto"
	"github.com/gargis23/QuizApp-sub000/internal/repository"
)

// Broadcaster delivers events to room subscribers. Delivery is
// fire-and-forget: a slow or disconnected subscriber misses the
// message, it never blocks the mutation path.
type Broadcaster interface {
	// Subscribe adds a connection to a room's broadcast group.
	Subscribe(roomCode, connID string)
	// Unsubscribe removes a connection from a room's broadcast group.
	Unsubscribe(roomCode, connID string)
	// Broadcast sends an event to every subscriber of a room.
	Broadcast(roomCode string, event interface{})
	// SendTo sends an event to a single connection.
	SendTo(connID string, event interface{})
}

// Config tunes the coordinator.
type Config struct {
	Timer TimerConfig
}

// Coordinator owns the room event protocol. Every operation follows
// the same shape: validate, mutate the store, broadcast the result to
// the room's subscribers. Mutations on the same room code are
// serialized through a keyed mutex — the read-modify-write against the
// store is not atomic, so without it two concurrent joins could both
// observe one free slot and overshoot capacity. Different rooms
// proceed fully in parallel.
type Coordinator struct {
	repo        repository.RoomRepository
	registry    *Registry
	broadcaster Broadcaster
	timers      *timerManager
	log         *logrus.Entry

	mu        sync.Mutex
	roomLocks map[string]*roomLock
}

// roomLock is a reference-counted per-room mutex. The count tracks
// holders and waiters so the map entry can be dropped as soon as the
// last operation on that code finishes; the map would otherwise grow
// with every room code ever touched.
type roomLock struct {
	mu   sync.Mutex
	refs int
}

// NewCoordinator creates a Coordinator and its question clock.
func NewCoordinator(repo repository.RoomRepository, registry *Registry, broadcaster Broadcaster, cfg Config) *Coordinator {
	if repo == nil {
		panic("RoomRepository cannot be nil for Coordinator")
	}
	if registry == nil {
		panic("Registry cannot be nil for Coordinator")
	}
	if broadcaster == nil {
		panic("Broadcaster cannot be nil for Coordinator")
	}
	c := &Coordinator{
		repo:        repo,
		registry:    registry,
		broadcaster: broadcaster,
		log:         logrus.WithField("component", "coordinator"),
		roomLocks:   make(map[string]*roomLock),
	}
	c.timers = newTimerManager(broadcaster, cfg.Timer, c.completeRoom)
	return c
}

// lockRoom acquires the per-room mutex and returns its unlock func.
// Concurrent operations on one code share the same entry, so their
// store mutations never interleave; the entry is removed once the
// last of them releases it.
func (c *Coordinator) lockRoom(code string) func() {
	c.mu.Lock()
	lock, ok := c.roomLocks[code]
	if !ok {
		lock = &roomLock{}
		c.roomLocks[code] = lock
	}
	lock.refs++
	c.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		c.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(c.roomLocks, code)
		}
		c.mu.Unlock()
	}
}

func (c *Coordinator) findRoom(ctx context.Context, code string) (*domain.Room, error) {
	room, err := c.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	return room, nil
}

func (c *Coordinator) saveRoom(ctx context.Context, room *domain.Room) error {
	if err := c.repo.Save(ctx, room); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	return nil
}

// Join adds a user to a room and subscribes their connection to its
// broadcast group. Rejoining is a benign no-op that only re-broadcasts
// the snapshot. connID may be empty for HTTP callers that have no
// realtime connection yet.
func (c *Coordinator) Join(ctx context.Context, connID, roomCode string, userID uint, userName string) error {
	defer c.lockRoom(roomCode)()
	logCtx := c.log.WithFields(logrus.Fields{"room_code": roomCode, "user_id": userID})

	room, err := c.findRoom(ctx, roomCode)
	if err != nil {
		return err
	}
	if room.IsTerminal() {
		return ErrEntryClosed
	}
	if room.HasPlayer(userID) {
		c.subscribe(roomCode, connID)
		c.broadcaster.Broadcast(roomCode, dto.NewRoomState(room))
		logCtx.Debug("Join was a no-op, user already a member")
		return nil
	}
	if room.IsEntryClosed {
		return ErrEntryClosed
	}
	if room.IsFull() {
		return ErrRoomFull
	}

	now := time.Now()
	room.AddPlayer(userID, userName, now)
	room.AppendSystemChat(userName+" joined the room", now)
	if err := c.saveRoom(ctx, room); err != nil {
		return err
	}
	c.subscribe(roomCode, connID)
	c.broadcaster.Broadcast(roomCode, dto.NewRoomState(room))
	logCtx.WithField("players", len(room.Players)).Info("Player joined room")
	return nil
}

// Leave removes a user from a room. A leaving host closes the room for
// everyone; a leaving player is simply removed.
func (c *Coordinator) Leave(ctx context.Context, connID, roomCode string, userID uint, userName string) error {
	defer c.lockRoom(roomCode)()
	logCtx := c.log.WithFields(logrus.Fields{"room_code": roomCode, "user_id": userID})

	room, err := c.findRoom(ctx, roomCode)
	if err != nil {
		return err
	}
	if room.IsTerminal() {
		c.unsubscribe(roomCode, connID)
		return nil
	}

	if room.IsHost(userID) {
		now := time.Now()
		room.Status = domain.StatusClosed
		room.EndedAt = &now
		room.IsActive = false
		if err := c.saveRoom(ctx, room); err != nil {
			return err
		}
		c.timers.Stop(roomCode)
		c.unsubscribe(roomCode, connID)
		c.broadcaster.Broadcast(roomCode, dto.NewHostLeft("The host has left. The room is closing."))
		logCtx.Info("Host left, room closed")
		return nil
	}

	if room.RemovePlayer(userID) {
		room.AppendSystemChat(userName+" left the room", time.Now())
		if err := c.saveRoom(ctx, room); err != nil {
			return err
		}
	}
	c.unsubscribe(roomCode, connID)
	c.broadcaster.Broadcast(roomCode, dto.NewRoomState(room))
	logCtx.WithField("players", len(room.Players)).Info("Player left room")
	return nil
}

// SelectCategory sets the room's quiz category. Host only; locked once
// the game starts.
func (c *Coordinator) SelectCategory(ctx context.Context, roomCode string, userID uint, category string) error {
	defer c.lockRoom(roomCode)()

	room, err := c.findRoom(ctx, roomCode)
	if err != nil {
		return err
	}
	if !room.IsHost(userID) {
		return ErrForbidden
	}
	if room.Status != domain.StatusWaiting {
		return ErrRoomClosed
	}
	if !domain.IsValidCategory(category) {
		return ErrInvalidCategory
	}

	now := time.Now()
	room.Category = category
	room.AppendSystemChat("Host selected category: "+category, now)
	if err := c.saveRoom(ctx, room); err != nil {
		return err
	}
	c.broadcaster.Broadcast(roomCode, dto.NewCategorySelected(category))
	c.broadcaster.Broadcast(roomCode, dto.NewChatMessage(room.ChatMessages[len(room.ChatMessages)-1]))
	c.log.WithFields(logrus.Fields{"room_code": roomCode, "category": category}).Info("Category selected")
	return nil
}

// CloseEntry stops further joins regardless of player count. Host
// only; idempotent.
func (c *Coordinator) CloseEntry(ctx context.Context, roomCode string, userID uint) error {
	defer c.lockRoom(roomCode)()

	room, err := c.findRoom(ctx, roomCode)
	if err != nil {
		return err
	}
	if room.IsTerminal() {
		return ErrRoomClosed
	}
	if !room.IsHost(userID) {
		return ErrForbidden
	}

	if !room.IsEntryClosed {
		room.IsEntryClosed = true
		room.AppendSystemChat("Room entry has been closed", time.Now())
		if err := c.saveRoom(ctx, room); err != nil {
			return err
		}
		c.broadcaster.Broadcast(roomCode, dto.NewChatMessage(room.ChatMessages[len(room.ChatMessages)-1]))
	}
	c.broadcaster.Broadcast(roomCode, dto.NewEntryClosed())
	c.log.WithField("room_code", roomCode).Info("Room entry closed")
	return nil
}

// KickPlayer removes a member on the host's request. The target gets a
// direct notification on their live connection, separate from the room
// broadcast; kicking a non-member is a no-op.
func (c *Coordinator) KickPlayer(ctx context.Context, roomCode string, targetUserID, userID uint) error {
	defer c.lockRoom(roomCode)()
	logCtx := c.log.WithFields(logrus.Fields{"room_code": roomCode, "target_user_id": targetUserID})

	room, err := c.findRoom(ctx, roomCode)
	if err != nil {
		return err
	}
	if room.IsTerminal() {
		return ErrRoomClosed
	}
	if !room.IsHost(userID) {
		return ErrForbidden
	}
	target := room.PlayerByID(targetUserID)
	if target == nil {
		logCtx.Debug("Kick was a no-op, target not a member")
		return nil
	}
	targetName := target.UserName

	room.RemovePlayer(targetUserID)
	room.AppendSystemChat(targetName+" was removed from the room", time.Now())
	if err := c.saveRoom(ctx, room); err != nil {
		return err
	}

	if targetConn, ok := c.registry.ConnID(targetUserID); ok {
		c.broadcaster.SendTo(targetConn, dto.NewKickedFromRoom("You have been removed from the room by the host"))
		c.broadcaster.Unsubscribe(roomCode, targetConn)
	}
	c.broadcaster.Broadcast(roomCode, dto.NewPlayerKicked(targetUserID, targetName))
	c.broadcaster.Broadcast(roomCode, dto.NewChatMessage(room.ChatMessages[len(room.ChatMessages)-1]))
	c.broadcaster.Broadcast(roomCode, dto.NewRoomState(room))
	logCtx.Info("Player kicked from room")
	return nil
}

// SendMessage appends a member's chat message and broadcasts it. The
// log keeps only the most recent entries (domain.ChatHistoryLimit).
func (c *Coordinator) SendMessage(ctx context.Context, roomCode string, userID uint, userName, message string) error {
	defer c.lockRoom(roomCode)()

	room, err := c.findRoom(ctx, roomCode)
	if err != nil {
		return err
	}
	if room.IsTerminal() {
		return ErrRoomClosed
	}
	if !room.HasPlayer(userID) {
		return ErrForbidden
	}

	msg := domain.ChatMessage{
		Sender:     strconv.FormatUint(uint64(userID), 10),
		SenderName: userName,
		Message:    message,
		Timestamp:  time.Now(),
	}
	room.AppendChat(msg)
	if err := c.saveRoom(ctx, room); err != nil {
		return err
	}
	c.broadcaster.Broadcast(roomCode, dto.NewChatMessage(msg))
	return nil
}

// StartGame transitions the room to in-progress and hands off to the
// question clock. Host only; needs a category (previously selected or
// supplied here) and at least two players. Calling it again while the
// game is running is a benign no-op.
func (c *Coordinator) StartGame(ctx context.Context, roomCode string, userID uint, category string) error {
	defer c.lockRoom(roomCode)()
	logCtx := c.log.WithFields(logrus.Fields{"room_code": roomCode, "user_id": userID})

	room, err := c.findRoom(ctx, roomCode)
	if err != nil {
		return err
	}
	if room.IsTerminal() {
		return ErrRoomClosed
	}
	if !room.IsHost(userID) {
		return ErrForbidden
	}
	if room.Status == domain.StatusInProgress {
		logCtx.Debug("StartGame was a no-op, game already running")
		return nil
	}
	if category == "" {
		category = room.Category
	}
	if category == "" {
		return ErrNoCategory
	}
	// The realtime boundary validates categories too, but the HTTP
	// start path feeds the request body straight through; the fixed
	// category set is a room invariant, so it is enforced here.
	if !domain.IsValidCategory(category) {
		return ErrInvalidCategory
	}
	if len(room.Players) < 2 {
		return ErrInsufficientPlayers
	}

	now := time.Now()
	room.Status = domain.StatusInProgress
	room.StartedAt = &now
	room.Category = category
	room.AppendSystemChat("The game is starting!", now)
	if err := c.saveRoom(ctx, room); err != nil {
		return err
	}
	c.broadcaster.Broadcast(roomCode, dto.NewChatMessage(room.ChatMessages[len(room.ChatMessages)-1]))
	c.broadcaster.Broadcast(roomCode, dto.NewRoomState(room))

	c.timers.Start(roomCode, gameStart{
		category:  category,
		startedAt: now,
		players:   append([]domain.Player{}, room.Players...),
	})
	logCtx.WithField("category", category).Info("Game started")
	return nil
}

// Quit is the mid-game analogue of Leave. A quitting host completes
// the room; a quitting player is removed, and the room completes if it
// empties.
func (c *Coordinator) Quit(ctx context.Context, connID, roomCode string, userID uint, userName string) error {
	defer c.lockRoom(roomCode)()
	logCtx := c.log.WithFields(logrus.Fields{"room_code": roomCode, "user_id": userID})

	room, err := c.findRoom(ctx, roomCode)
	if err != nil {
		return err
	}
	if room.IsTerminal() {
		c.unsubscribe(roomCode, connID)
		return nil
	}

	now := time.Now()
	if room.IsHost(userID) {
		room.Status = domain.StatusCompleted
		room.CompletedAt = &now
		room.IsActive = false
		if err := c.saveRoom(ctx, room); err != nil {
			return err
		}
		c.timers.Stop(roomCode)
		c.unsubscribe(roomCode, connID)
		c.broadcaster.Broadcast(roomCode, dto.NewHostLeft("The host has ended the game."))
		logCtx.Info("Host quit, game completed")
		return nil
	}

	if !room.RemovePlayer(userID) {
		c.unsubscribe(roomCode, connID)
		return nil
	}
	room.AppendSystemChat(userName+" quit the game", now)
	if len(room.Players) == 0 {
		room.Status = domain.StatusCompleted
		room.CompletedAt = &now
		room.IsActive = false
		c.timers.Stop(roomCode)
	}
	if err := c.saveRoom(ctx, room); err != nil {
		return err
	}
	c.unsubscribe(roomCode, connID)
	c.broadcaster.Broadcast(roomCode, dto.NewPlayerQuit(userID, userName,
		userName+" quit the game", len(room.Players)))
	logCtx.WithField("players_remaining", len(room.Players)).Info("Player quit game")
	return nil
}

// EndGame completes the room on the host's request and cancels its
// question clock.
func (c *Coordinator) EndGame(ctx context.Context, roomCode string, userID uint) error {
	defer c.lockRoom(roomCode)()

	room, err := c.findRoom(ctx, roomCode)
	if err != nil {
		return err
	}
	if room.IsTerminal() {
		return ErrRoomClosed
	}
	if !room.IsHost(userID) {
		return ErrForbidden
	}

	now := time.Now()
	room.Status = domain.StatusCompleted
	room.CompletedAt = &now
	room.IsActive = false
	if err := c.saveRoom(ctx, room); err != nil {
		return err
	}
	c.timers.Stop(roomCode)
	c.broadcaster.Broadcast(roomCode, dto.NewGameEnded("The game has ended."))
	c.log.WithField("room_code", roomCode).Info("Game ended by host")
	return nil
}

// completeRoom marks a room completed after its question clock runs
// out naturally.
func (c *Coordinator) completeRoom(roomCode string) {
	defer c.lockRoom(roomCode)()
	ctx := context.Background()

	room, err := c.findRoom(ctx, roomCode)
	if err != nil {
		c.log.WithError(err).WithField("room_code", roomCode).Warn("Failed to load room after clock finished")
		return
	}
	if room.IsTerminal() {
		return
	}
	now := time.Now()
	room.Status = domain.StatusCompleted
	room.CompletedAt = &now
	room.IsActive = false
	if err := c.saveRoom(ctx, room); err != nil {
		c.log.WithError(err).WithField("room_code", roomCode).Error("Failed to persist completed room")
		return
	}
	c.log.WithField("room_code", roomCode).Info("Room completed")
}

func (c *Coordinator) subscribe(roomCode, connID string) {
	if connID != "" {
		c.broadcaster.Subscribe(roomCode, connID)
	}
}

func (c *Coordinator) unsubscribe(roomCode, connID string) {
	if connID != "" {
		c.broadcaster.Unsubscribe(roomCode, connID)
	}
}
