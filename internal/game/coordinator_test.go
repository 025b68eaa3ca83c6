package game_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gargis23/QuizApp-sub000/internal/domain"
	"github.com/gargis23/QuizApp-sub000/internal/dto"
	"github.com/gargis23/QuizApp-sub000/internal/game"
	"github.com/gargis23/QuizApp-sub000/internal/repository"
)

// fakeRoomRepo is a stateful in-memory store. It hands out deep copies
// the way a real store would, so coordinator mutations only become
// visible through Save.
type fakeRoomRepo struct {
	mu      sync.Mutex
	rooms   map[string]*domain.Room
	saveErr error
}

func newFakeRoomRepo(rooms ...*domain.Room) *fakeRoomRepo {
	repo := &fakeRoomRepo{rooms: make(map[string]*domain.Room)}
	for _, r := range rooms {
		repo.rooms[r.Code] = cloneRoom(r)
	}
	return repo
}

func cloneRoom(r *domain.Room) *domain.Room {
	clone := *r
	clone.Players = append(domain.PlayerList{}, r.Players...)
	clone.ChatMessages = append(domain.ChatLog{}, r.ChatMessages...)
	return &clone
}

func (f *fakeRoomRepo) FindByCode(ctx context.Context, code string) (*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[code]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	return cloneRoom(room), nil
}

func (f *fakeRoomRepo) Save(ctx context.Context, room *domain.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.rooms[room.Code] = cloneRoom(room)
	return nil
}

func (f *fakeRoomRepo) IsCodeTaken(ctx context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rooms[code]
	return ok, nil
}

func (f *fakeRoomRepo) ListOpen(ctx context.Context) ([]domain.Room, error) {
	return nil, nil
}

func (f *fakeRoomRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeRoomRepo) stored(t *testing.T, code string) *domain.Room {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[code]
	require.True(t, ok, "room %s not in store", code)
	return cloneRoom(room)
}

// fakeBroadcaster records broadcasts, direct sends, and subscription
// changes.
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []interface{}
	direct map[string][]interface{}
	subs   map[string]map[string]bool
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{
		direct: make(map[string][]interface{}),
		subs:   make(map[string]map[string]bool),
	}
}

func (b *fakeBroadcaster) Subscribe(roomCode, connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[roomCode] == nil {
		b.subs[roomCode] = make(map[string]bool)
	}
	b.subs[roomCode][connID] = true
}

func (b *fakeBroadcaster) Unsubscribe(roomCode, connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs[roomCode], connID)
}

func (b *fakeBroadcaster) Broadcast(roomCode string, event interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *fakeBroadcaster) SendTo(connID string, event interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.direct[connID] = append(b.direct[connID], event)
}

func (b *fakeBroadcaster) snapshot() []interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]interface{}{}, b.events...)
}

func (b *fakeBroadcaster) subscribed(roomCode, connID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subs[roomCode][connID]
}

func (b *fakeBroadcaster) directTo(connID string) []interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]interface{}{}, b.direct[connID]...)
}

func lastRoomState(t *testing.T, events []interface{}) dto.RoomStateEvent {
	t.Helper()
	for i := len(events) - 1; i >= 0; i-- {
		if state, ok := events[i].(dto.RoomStateEvent); ok {
			return state
		}
	}
	t.Fatal("no room_state event broadcast")
	return dto.RoomStateEvent{}
}

func hasEventType[T any](events []interface{}) bool {
	for _, ev := range events {
		if _, ok := ev.(T); ok {
			return true
		}
	}
	return false
}

func waitingRoom(code string, hostID uint, hostName string, maxPlayers int) *domain.Room {
	now := time.Now()
	room := &domain.Room{
		Code:       code,
		HostID:     hostID,
		HostName:   hostName,
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
	return room
}

func fastConfig() game.Config {
	return game.Config{Timer: game.TimerConfig{
		QuestionCount:    1,
		QuestionDuration: 5 * time.Millisecond,
		RevealPause:      time.Millisecond,
		StartDelay:       time.Millisecond,
	}}
}

func newTestCoordinator(rooms ...*domain.Room) (*game.Coordinator, *fakeRoomRepo, *fakeBroadcaster, *game.Registry) {
	repo := newFakeRoomRepo(rooms...)
	b := newFakeBroadcaster()
	registry := game.NewRegistry()
	c := game.NewCoordinator(repo, registry, b, fastConfig())
	return c, repo, b, registry
}

func TestCoordinator_Join_AddsPlayerAndBroadcastsSnapshot(t *testing.T) {
	c, repo, b, _ := newTestCoordinator(waitingRoom("AB12CD", 1, "alice", 4))
	ctx := context.Background()

	require.NoError(t, c.Join(ctx, "conn-bob", "AB12CD", 2, "bob"))

	stored := repo.stored(t, "AB12CD")
	require.Len(t, stored.Players, 2)
	assert.Equal(t, "bob", stored.Players[1].UserName)
	require.NotEmpty(t, stored.ChatMessages)
	last := stored.ChatMessages[len(stored.ChatMessages)-1]
	assert.Equal(t, domain.SystemSender, last.Sender)
	assert.Equal(t, "bob joined the room", last.Message)

	assert.True(t, b.subscribed("AB12CD", "conn-bob"))
	state := lastRoomState(t, b.snapshot())
	assert.Len(t, state.Players, 2)
	assert.Equal(t, domain.StatusWaiting, state.Status)
}

func TestCoordinator_Join_RejectsWhenFull(t *testing.T) {
	room := waitingRoom("AB12CD", 1, "alice", 2)
	room.AddPlayer(2, "bob", time.Now())
	c, repo, _, _ := newTestCoordinator(room)

	err := c.Join(context.Background(), "conn-carol", "AB12CD", 3, "carol")
	require.Error(t, err)
	assert.True(t, errors.Is(err, game.ErrRoomFull))
	assert.Len(t, repo.stored(t, "AB12CD").Players, 2, "rejected join must not mutate the room")
}

func TestCoordinator_Join_RejectsWhenEntryClosed(t *testing.T) {
	room := waitingRoom("AB12CD", 1, "alice", 4)
	room.IsEntryClosed = true
	c, _, _, _ := newTestCoordinator(room)

	err := c.Join(context.Background(), "conn-bob", "AB12CD", 2, "bob")
	assert.True(t, errors.Is(err, game.ErrEntryClosed))
}

func TestCoordinator_Join_TerminalRoomRejected(t *testing.T) {
	room := waitingRoom("AB12CD", 1, "alice", 4)
	room.Status = domain.StatusCompleted
	c, _, _, _ := newTestCoordinator(room)

	err := c.Join(context.Background(), "conn-bob", "AB12CD", 2, "bob")
	assert.True(t, errors.Is(err, game.ErrEntryClosed))
}

func TestCoordinator_Join_UnknownRoom(t *testing.T) {
	c, _, _, _ := newTestCoordinator()
	err := c.Join(context.Background(), "conn-bob", "ZZZZZZ", 2, "bob")
	assert.True(t, errors.Is(err, game.ErrRoomNotFound))
}

func TestCoordinator_Join_RejoinIsBenignNoop(t *testing.T) {
	room := waitingRoom("AB12CD", 1, "alice", 4)
	room.AddPlayer(2, "bob", time.Now())
	c, repo, b, _ := newTestCoordinator(room)

	before := repo.stored(t, "AB12CD")
	require.NoError(t, c.Join(context.Background(), "conn-bob-2", "AB12CD", 2, "bob"))
	after := repo.stored(t, "AB12CD")

	assert.Equal(t, len(before.Players), len(after.Players))
	assert.Equal(t, len(before.ChatMessages), len(after.ChatMessages), "no new system chat on rejoin")
	assert.True(t, b.subscribed("AB12CD", "conn-bob-2"), "rejoin still subscribes the new connection")
	lastRoomState(t, b.snapshot())
}

func TestCoordinator_Join_StoreFailure(t *testing.T) {
	repo := newFakeRoomRepo(waitingRoom("AB12CD", 1, "alice", 4))
	repo.saveErr = errors.New("connection reset")
	c := game.NewCoordinator(repo, game.NewRegistry(), newFakeBroadcaster(), fastConfig())

	err := c.Join(context.Background(), "conn-bob", "AB12CD", 2, "bob")
	assert.True(t, errors.Is(err, game.ErrStoreFailure))
}

func TestCoordinator_Join_OneSlotConcurrentRace(t *testing.T) {
	room := waitingRoom("AB12CD", 1, "alice", 2) // host holds one of two slots
	c, repo, _, _ := newTestCoordinator(room)
	ctx := context.Background()

	const contenders = 10
	errs := make([]error, contenders)
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			userID := uint(100 + n)
			errs[n] = c.Join(ctx, fmt.Sprintf("conn-%d", n), "AB12CD", userID, fmt.Sprintf("user%d", n))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, errors.Is(err, game.ErrRoomFull))
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one contender wins the last slot")
	assert.Len(t, repo.stored(t, "AB12CD").Players, 2, "capacity is never overshot")
}

func TestCoordinator_Leave_PlayerRemoved(t *testing.T) {
	room := waitingRoom("AB12CD", 1, "alice", 4)
	room.AddPlayer(2, "bob", time.Now())
	c, repo, b, _ := newTestCoordinator(room)

	require.NoError(t, c.Leave(context.Background(), "conn-bob", "AB12CD", 2, "bob"))

	stored := repo.stored(t, "AB12CD")
	assert.False(t, stored.HasPlayer(2))
	assert.Equal(t, domain.StatusWaiting, stored.Status, "room stays open when a player leaves")
	last := stored.ChatMessages[len(stored.ChatMessages)-1]
	assert.Equal(t, "bob left the room", last.Message)
	assert.False(t, b.subscribed("AB12CD", "conn-bob"))
}

func TestCoordinator_Leave_HostClosesRoom(t *testing.T) {
	room := waitingRoom("AB12CD", 1, "alice", 4)
	room.AddPlayer(2, "bob", time.Now())
	c, repo, b, _ := newTestCoordinator(room)

	require.NoError(t, c.Leave(context.Background(), "conn-alice", "AB12CD", 1, "alice"))

	stored := repo.stored(t, "AB12CD")
	assert.Equal(t, domain.StatusClosed, stored.Status)
	assert.False(t, stored.IsActive)
	require.NotNil(t, stored.EndedAt)
	assert.True(t, hasEventType[dto.HostLeftEvent](b.snapshot()))
}

func TestCoordinator_SelectCategory_HostOnly(t *testing.T) {
	room := waitingRoom("AB12CD", 1, "alice", 4)
	room.AddPlayer(2, "bob", time.Now())
	c, repo, b, _ := newTestCoordinator(room)
	ctx := context.Background()

	before := repo.stored(t, "AB12CD")
	err := c.SelectCategory(ctx, "AB12CD", 2, "Science")
	require.Error(t, err)
	assert.True(t, errors.Is(err, game.ErrForbidden))
	assert.Equal(t, before, repo.stored(t, "AB12CD"), "rejected op must leave the room untouched")

	require.NoError(t, c.SelectCategory(ctx, "AB12CD", 1, "Science"))
	assert.Equal(t, "Science", repo.stored(t, "AB12CD").Category)
	assert.True(t, hasEventType[dto.CategorySelectedEvent](b.snapshot()))
	assert.True(t, hasEventType[dto.ChatMessageEvent](b.snapshot()))
}

func TestCoordinator_SelectCategory_RejectsUnknownCategory(t *testing.T) {
	room := waitingRoom("AB12CD", 1, "alice", 4)
	c, repo, b, _ := newTestCoordinator(room)

	before := repo.stored(t, "AB12CD")
	err := c.SelectCategory(context.Background(), "AB12CD", 1, "Underwater Basket Weaving")
	assert.True(t, errors.Is(err, game.ErrInvalidCategory))
	assert.Equal(t, before, repo.stored(t, "AB12CD"))
	assert.Empty(t, b.snapshot())
}

func TestCoordinator_SelectCategory_LockedOnceStarted(t *testing.T) {
	room := waitingRoom("AB12CD", 1, "alice", 4)
	room.Status = domain.StatusInProgress
	c, _, _, _ := newTestCoordinator(room)

	err := c.SelectCategory(context.Background(), "AB12CD", 1, "History")
	assert.True(t, errors.Is(err, game.ErrRoomClosed))
}

func TestCoordinator_CloseEntry_Idempotent(t *testing.T) {
	room := waitingRoom("AB12CD", 1, "alice", 4)
	c, repo, b, _ := newTestCoordinator(room)
	ctx := context.Background()

	require.NoError(t, c.CloseEntry(ctx, "AB12CD", 1))
	stored := repo.stored(t, "AB12CD")
	assert.True(t, stored.IsEntryClosed)
	chatCount := len(stored.ChatMessages)

	require.NoError(t, c.CloseEntry(ctx, "AB12CD", 1))
	assert.Equal(t, chatCount, len(repo.stored(t, "AB12CD").ChatMessages), "repeat close adds no chat")

	closedEvents := 0
	for _, ev := range b.snapshot() {
		if _, ok := ev.(dto.EntryClosedEvent); ok {
			closedEvents++
		}
	}
	assert.Equal(t, 2, closedEvents, "entry_closed is re-broadcast on repeat calls")
}

func TestCoordinator_CloseEntry_NonHostForbidden(t *testing.T) {
	room := waitingRoom("AB12CD", 1, "alice", 4)
	room.AddPlayer(2, "bob", time.Now())
	c, repo, _, _ := newTestCoordinator(room)

	err := c.CloseEntry(context.Background(), "AB12CD", 2)
	assert.True(t, errors.Is(err, game.ErrForbidden))
	assert.False(t, repo.stored(t, "AB12CD").IsEntryClosed)
}

func TestCoordinator_KickPlayer_NotifiesTargetDirectly(t *testing.T) {
	room := waitingRoom("AB12CD", 1, "alice", 4)
	room.AddPlayer(2, "bob", time.Now())
	c, repo, b, registry := newTestCoordinator(room)
	registry.Bind("conn-bob", 2)
	b.Subscribe("AB12CD", "conn-bob")

	require.NoError(t, c.KickPlayer(context.Background(), "AB12CD", 2, 1))

	assert.False(t, repo.stored(t, "AB12CD").HasPlayer(2))

	direct := b.directTo("conn-bob")
	require.Len(t, direct, 1, "kicked player gets exactly one direct notification")
	_, ok := direct[0].(dto.KickedFromRoomEvent)
	assert.True(t, ok)
	assert.False(t, b.subscribed("AB12CD", "conn-bob"), "kicked player stops receiving room broadcasts")

	events := b.snapshot()
	assert.True(t, hasEventType[dto.PlayerKickedEvent](events))
	assert.True(t, hasEventType[dto.ChatMessageEvent](events))
	lastRoomState(t, events)
}

func TestCoordinator_KickPlayer_NonMemberIsNoop(t *testing.T) {
	room := waitingRoom("AB12CD", 1, "alice", 4)
	c, _, b, _ := newTestCoordinator(room)

	require.NoError(t, c.KickPlayer(context.Background(), "AB12CD", 99, 1))
	assert.Empty(t, b.snapshot(), "no broadcasts for a no-op kick")
}

func TestCoordinator_KickPlayer_NonHostForbidden(t *testing.T) {
	room := waitingRoom("AB12CD", 1, "alice", 4)
	room.AddPlayer(2, "bob", time.Now())
	room.AddPlayer(3, "carol", time.Now())
	c, repo, _, _ := newTestCoordinator(room)

	err := c.KickPlayer(context.Background(), "AB12CD", 3, 2)
	assert.True(t, errors.Is(err, game.ErrForbidden))
	assert.True(t, repo.stored(t, "AB12CD").HasPlayer(3))
}

func TestCoordinator_SendMessage_MemberOnly(t *testing.T) {
	room := waitingRoom("AB12CD", 1, "alice", 4)
	room.AddPlayer(2, "bob", time.Now())
	c, repo, b, _ := newTestCoordinator(room)
	ctx := context.Background()

	require.NoError(t, c.SendMessage(ctx, "AB12CD", 2, "bob", "hello room"))
	stored := repo.stored(t, "AB12CD")
	last := stored.ChatMessages[len(stored.ChatMessages)-1]
	assert.Equal(t, "2", last.Sender, "sender is the user ID, not the display name")
	assert.Equal(t, "hello room", last.Message)
	assert.True(t, hasEventType[dto.ChatMessageEvent](b.snapshot()))

	err := c.SendMessage(ctx, "AB12CD", 99, "mallory", "let me in")
	assert.True(t, errors.Is(err, game.ErrForbidden))
}

func TestCoordinator_SendMessage_ChatBounded(t *testing.T) {
	room := waitingRoom("AB12CD", 1, "alice", 4)
	c, repo, _, _ := newTestCoordinator(room)
	ctx := context.Background()

	for i := 0; i < domain.ChatHistoryLimit+10; i++ {
		require.NoError(t, c.SendMessage(ctx, "AB12CD", 1, "alice", fmt.Sprintf("msg %d", i)))
	}

	stored := repo.stored(t, "AB12CD")
	assert.Len(t, stored.ChatMessages, domain.ChatHistoryLimit)
	assert.Equal(t, fmt.Sprintf("msg %d", domain.ChatHistoryLimit+9),
		stored.ChatMessages[len(stored.ChatMessages)-1].Message, "newest messages survive eviction")
}

func TestCoordinator_StartGame_Succeeds(t *testing.T) {
	room := waitingRoom("AB12CD", 1, "alice", 4)
	room.AddPlayer(2, "bob", time.Now())
	c, repo, b, _ := newTestCoordinator(room)

	require.NoError(t, c.StartGame(context.Background(), "AB12CD", 1, "Science"))

	stored := repo.stored(t, "AB12CD")
	assert.Equal(t, domain.StatusInProgress, stored.Status)
	assert.Equal(t, "Science", stored.Category)
	require.NotNil(t, stored.StartedAt)

	// the clock finishes quickly under the test config and completes
	// the room
	require.Eventually(t, func() bool {
		return repo.stored(t, "AB12CD").Status == domain.StatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	events := b.snapshot()
	assert.True(t, hasEventType[dto.GameStartingEvent](events))
	assert.True(t, hasEventType[dto.QuestionStartedEvent](events))
	assert.True(t, hasEventType[dto.QuestionEndedEvent](events))
	assert.True(t, hasEventType[dto.GameCompletedEvent](events))
}

func TestCoordinator_StartGame_UsesPreviouslySelectedCategory(t *testing.T) {
	room := waitingRoom("AB12CD", 1, "alice", 4)
	room.Category = "History"
	room.AddPlayer(2, "bob", time.Now())
	c, repo, _, _ := newTestCoordinator(room)

	require.NoError(t, c.StartGame(context.Background(), "AB12CD", 1, ""))
	assert.Equal(t, "History", repo.stored(t, "AB12CD").Category)
}

func TestCoordinator_StartGame_Validation(t *testing.T) {
	room := waitingRoom("AB12CD", 1, "alice", 4)
	room.AddPlayer(2, "bob", time.Now())
	c, _, _, _ := newTestCoordinator(room)
	ctx := context.Background()

	err := c.StartGame(ctx, "AB12CD", 2, "Science")
	assert.True(t, errors.Is(err, game.ErrForbidden), "non-host cannot start")

	err = c.StartGame(ctx, "AB12CD", 1, "")
	assert.True(t, errors.Is(err, game.ErrNoCategory), "no category anywhere")

	solo := waitingRoom("EF34GH", 5, "dana", 4)
	c2, _, _, _ := newTestCoordinator(solo)
	err = c2.StartGame(ctx, "EF34GH", 5, "Science")
	assert.True(t, errors.Is(err, game.ErrInsufficientPlayers))
}

func TestCoordinator_StartGame_RejectsUnknownCategory(t *testing.T) {
	room := waitingRoom("AB12CD", 1, "alice", 4)
	room.AddPlayer(2, "bob", time.Now())
	c, repo, _, _ := newTestCoordinator(room)

	err := c.StartGame(context.Background(), "AB12CD", 1, "Underwater Basket Weaving")
	assert.True(t, errors.Is(err, game.ErrInvalidCategory))

	stored := repo.stored(t, "AB12CD")
	assert.Equal(t, domain.StatusWaiting, stored.Status, "rejected start leaves the room waiting")
	assert.Empty(t, stored.Category)

	room2 := waitingRoom("EF34GH", 1, "alice", 4)
	room2.Category = "History"
	room2.AddPlayer(2, "bob", time.Now())
	c2, repo2, _, _ := newTestCoordinator(room2)

	require.NoError(t, c2.StartGame(context.Background(), "EF34GH", 1, ""),
		"previously selected category still passes")
	assert.Equal(t, domain.StatusInProgress, repo2.stored(t, "EF34GH").Status)
}

func TestCoordinator_StartGame_RepeatIsNoop(t *testing.T) {
	room := waitingRoom("AB12CD", 1, "alice", 4)
	room.Status = domain.StatusInProgress
	room.AddPlayer(2, "bob", time.Now())
	c, repo, b, _ := newTestCoordinator(room)

	before := repo.stored(t, "AB12CD")
	require.NoError(t, c.StartGame(context.Background(), "AB12CD", 1, "Science"))
	assert.Equal(t, before, repo.stored(t, "AB12CD"))
	assert.Empty(t, b.snapshot(), "no broadcasts on a repeated start")
}

func TestCoordinator_Quit_HostCompletesRoom(t *testing.T) {
	room := waitingRoom("AB12CD", 1, "alice", 4)
	room.Status = domain.StatusInProgress
	room.AddPlayer(2, "bob", time.Now())
	c, repo, b, _ := newTestCoordinator(room)

	require.NoError(t, c.Quit(context.Background(), "conn-alice", "AB12CD", 1, "alice"))

	stored := repo.stored(t, "AB12CD")
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
	assert.True(t, hasEventType[dto.HostLeftEvent](b.snapshot()))
}

func TestCoordinator_Quit_PlayerRemoved(t *testing.T) {
	room := waitingRoom("AB12CD", 1, "alice", 4)
	room.Status = domain.StatusInProgress
	room.AddPlayer(2, "bob", time.Now())
	room.AddPlayer(3, "carol", time.Now())
	c, repo, b, _ := newTestCoordinator(room)

	require.NoError(t, c.Quit(context.Background(), "conn-bob", "AB12CD", 2, "bob"))

	stored := repo.stored(t, "AB12CD")
	assert.False(t, stored.HasPlayer(2))
	assert.Equal(t, domain.StatusInProgress, stored.Status, "game continues for the rest")

	var quit dto.PlayerQuitEvent
	found := false
	for _, ev := range b.snapshot() {
		if q, ok := ev.(dto.PlayerQuitEvent); ok {
			quit, found = q, true
		}
	}
	require.True(t, found)
	assert.Equal(t, uint(2), quit.PlayerID)
	assert.Equal(t, 2, quit.PlayersRemaining)
}

func TestCoordinator_Quit_LastPlayerCompletesRoom(t *testing.T) {
	// host already quit earlier; bob is the only member left
	room := &domain.Room{
		Code:       "AB12CD",
		HostID:     1,
		HostName:   "alice",
		Status:     domain.StatusInProgress,
		IsActive:   true,
		MaxPlayers: 4,
		Players:    domain.PlayerList{{UserID: 2, UserName: "bob"}},
	}
	c, repo, _, _ := newTestCoordinator(room)

	require.NoError(t, c.Quit(context.Background(), "conn-bob", "AB12CD", 2, "bob"))

	stored := repo.stored(t, "AB12CD")
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.Empty(t, stored.Players)
}

func TestCoordinator_EndGame(t *testing.T) {
	room := waitingRoom("AB12CD", 1, "alice", 4)
	room.Status = domain.StatusInProgress
	room.AddPlayer(2, "bob", time.Now())
	c, repo, b, _ := newTestCoordinator(room)
	ctx := context.Background()

	err := c.EndGame(ctx, "AB12CD", 2)
	assert.True(t, errors.Is(err, game.ErrForbidden))

	require.NoError(t, c.EndGame(ctx, "AB12CD", 1))
	stored := repo.stored(t, "AB12CD")
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.False(t, stored.IsActive)
	assert.True(t, hasEventType[dto.GameEndedEvent](b.snapshot()))

	err = c.EndGame(ctx, "AB12CD", 1)
	assert.True(t, errors.Is(err, game.ErrRoomClosed), "terminal rooms reject further ops")
}
