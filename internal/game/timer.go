package game

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gargis23/QuizApp-sub000/internal/domain"
	"github.com/gargis23/QuizApp-sub000/internal/dto"
)

// TimerConfig controls the per-room question clock.
type TimerConfig struct {
	// QuestionCount is the fixed number of questions per game.
	QuestionCount int
	// QuestionDuration is how long each question stays open.
	QuestionDuration time.Duration
	// RevealPause is the answer-reveal gap between questions.
	RevealPause time.Duration
	// StartDelay is the gap between start_game and the game_starting
	// broadcast, giving clients time to render the transition.
	StartDelay time.Duration
}

func (c TimerConfig) withDefaults() TimerConfig {
	if c.QuestionCount <= 0 {
		c.QuestionCount = 10
	}
	if c.QuestionDuration <= 0 {
		c.QuestionDuration = 30 * time.Second
	}
	if c.RevealPause <= 0 {
		c.RevealPause = 2 * time.Second
	}
	if c.StartDelay <= 0 {
		c.StartDelay = 3 * time.Second
	}
	return c
}

// gameStart carries the roster snapshot the game_starting broadcast
// needs, captured under the room lock at start time.
type gameStart struct {
	category  string
	startedAt time.Time
	players   []domain.Player
}

// timerManager runs one authoritative question clock per in-progress
// room. The clock is identical for every subscriber; clients never
// decide question boundaries themselves. Stop cancels the schedule
// deterministically so a dangling timer never emits for a room that
// already ended.
type timerManager struct {
	broadcaster Broadcaster
	cfg         TimerConfig
	onFinish    func(roomCode string)

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func newTimerManager(b Broadcaster, cfg TimerConfig, onFinish func(string)) *timerManager {
	return &timerManager{
		broadcaster: b,
		cfg:         cfg.withDefaults(),
		onFinish:    onFinish,
		cancels:     make(map[string]context.CancelFunc),
	}
}

// Start launches the clock for a room, replacing any previous one.
func (m *timerManager) Start(roomCode string, start gameStart) {
	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	if prev, ok := m.cancels[roomCode]; ok {
		prev()
	}
	m.cancels[roomCode] = cancel
	m.mu.Unlock()

	go m.run(ctx, roomCode, start)
}

// Stop cancels the clock for a room. Safe to call when none is
// running.
func (m *timerManager) Stop(roomCode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cancel, ok := m.cancels[roomCode]; ok {
		cancel()
		delete(m.cancels, roomCode)
	}
}

func (m *timerManager) remove(ctx context.Context, roomCode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Only remove our own entry; a restart may have replaced it.
	if _, ok := m.cancels[roomCode]; ok && ctx.Err() == nil {
		delete(m.cancels, roomCode)
	}
}

func (m *timerManager) run(ctx context.Context, roomCode string, start gameStart) {
	log := logrus.WithFields(logrus.Fields{"component": "question_timer", "room_code": roomCode})

	if !m.wait(ctx, m.cfg.StartDelay) {
		return
	}
	m.broadcaster.Broadcast(roomCode, dto.NewGameStarting(
		start.category, "The game is starting!", start.startedAt, start.players))
	log.WithField("category", start.category).Info("Game starting broadcast sent")

	timeLimit := int(m.cfg.QuestionDuration / time.Second)
	for i := 0; i < m.cfg.QuestionCount; i++ {
		if ctx.Err() != nil {
			return
		}
		m.broadcaster.Broadcast(roomCode, dto.NewQuestionStarted(i, timeLimit, time.Now()))
		if !m.wait(ctx, m.cfg.QuestionDuration) {
			return
		}
		m.broadcaster.Broadcast(roomCode, dto.NewQuestionEnded(i))
		if !m.wait(ctx, m.cfg.RevealPause) {
			return
		}
	}

	if ctx.Err() != nil {
		return
	}
	m.broadcaster.Broadcast(roomCode, dto.NewGameCompleted("All questions answered. The game is complete!"))
	log.Info("Question clock finished naturally")
	m.remove(ctx, roomCode)
	if m.onFinish != nil {
		m.onFinish(roomCode)
	}
}

// wait sleeps for d unless the clock is cancelled first; it reports
// whether the clock should keep running.
func (m *timerManager) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
