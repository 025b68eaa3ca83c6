package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// RoomStatus is the linear lifecycle of a quiz room:
// waiting -> in-progress -> completed, with waiting -> closed when the
// host abandons the room before the game finishes naturally.
type RoomStatus string

const (
	StatusWaiting    RoomStatus = "waiting"
	StatusInProgress RoomStatus = "in-progress"
	StatusCompleted  RoomStatus = "completed"
	StatusClosed     RoomStatus = "closed"
)

// SystemSender is the reserved chat sender used for room-lifecycle
// narration. Clients render these messages distinctly.
const SystemSender = "System"

// ChatHistoryLimit bounds the persisted chat log per room; oldest
// entries are evicted first.
const ChatHistoryLimit = 100

// DefaultMaxPlayers is the room capacity used when none is requested.
const DefaultMaxPlayers = 10

// Categories is the closed set of quiz categories a host may select.
var Categories = []string{
	"General Knowledge",
	"History",
	"Science",
	"Sports",
	"Movies",
	"Music",
	"Geography",
}

// IsValidCategory reports whether c belongs to the fixed category set.
func IsValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Player is one member of a room. Insertion order defines display
// order, not turn order.
type Player struct {
	UserID   uint      `json:"userId"`
	UserName string    `json:"userName"`
	JoinedAt time.Time `json:"joinedAt"`
	IsReady  bool      `json:"isReady"`
}

// ChatMessage is a single persisted chat entry. Sender is the user ID
// rendered as a string, or SystemSender for lifecycle narration.
type ChatMessage struct {
	Sender     string    `json:"sender"`
	SenderName string    `json:"senderName"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// PlayerList is persisted as a JSON column.
type PlayerList []Player

func (l PlayerList) Value() (driver.Value, error) {
	if l == nil {
		l = PlayerList{}
	}
	return json.Marshal(l)
}

func (l *PlayerList) Scan(value interface{}) error {
	return scanJSON(value, l, "PlayerList")
}

// ChatLog is persisted as a JSON column.
type ChatLog []ChatMessage

func (l ChatLog) Value() (driver.Value, error) {
	if l == nil {
		l = ChatLog{}
	}
	return json.Marshal(l)
}

func (l *ChatLog) Scan(value interface{}) error {
	return scanJSON(value, l, "ChatLog")
}

func scanJSON(value interface{}, dest interface{}, kind string) error {
	if value == nil {
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("domain: cannot scan %T into %s", value, kind)
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dest)
}

// Room is a single multiplayer quiz session identified by a 6-character
// uppercase code. The code is immutable after creation.
type Room struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Code          string     `gorm:"uniqueIndex;size:191;not null" json:"code"`
	HostID        uint       `gorm:"index;not null" json:"hostId"`
	HostName      string     `gorm:"size:191" json:"hostName"`
	Category      string     `gorm:"size:64" json:"category"`
	Status        RoomStatus `gorm:"size:32;index;default:'waiting'" json:"status"`
	IsEntryClosed bool       `json:"isEntryClosed"`
	IsActive      bool       `gorm:"index" json:"isActive"`
	MaxPlayers    int        `json:"maxPlayers"`
	Players       PlayerList `gorm:"type:json" json:"players"`
	ChatMessages  ChatLog    `gorm:"type:json" json:"chatMessages"`
	StartedAt     *time.Time `json:"startedAt"`
	CompletedAt   *time.Time `json:"completedAt"`
	EndedAt       *time.Time `json:"endedAt"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// IsHost reports whether userID holds the room's privileged role.
func (r *Room) IsHost(userID uint) bool {
	return r.HostID == userID
}

// IsTerminal reports whether the room accepts no further mutation.
func (r *Room) IsTerminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusClosed
}

// IsFull reports whether the room is at capacity.
func (r *Room) IsFull() bool {
	return len(r.Players) >= r.MaxPlayers
}

// HasPlayer reports whether userID is currently a member.
func (r *Room) HasPlayer(userID uint) bool {
	return r.PlayerByID(userID) != nil
}

// PlayerByID returns the member with the given user ID, or nil.
func (r *Room) PlayerByID(userID uint) *Player {
	for i := range r.Players {
		if r.Players[i].UserID == userID {
			return &r.Players[i]
		}
	}
	return nil
}

// AddPlayer appends a member. Capacity checks are the caller's
// responsibility; membership stays unique by user ID.
func (r *Room) AddPlayer(userID uint, userName string, at time.Time) {
	if r.HasPlayer(userID) {
		return
	}
	r.Players = append(r.Players, Player{
		UserID:   userID,
		UserName: userName,
		JoinedAt: at,
	})
}

// RemovePlayer removes the member with the given user ID, preserving
// the order of the rest. It reports whether a member was removed.
func (r *Room) RemovePlayer(userID uint) bool {
	for i := range r.Players {
		if r.Players[i].UserID == userID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return true
		}
	}
	return false
}

// AppendChat appends a message to the chat log, evicting the oldest
// entries beyond ChatHistoryLimit.
func (r *Room) AppendChat(msg ChatMessage) {
	r.ChatMessages = append(r.ChatMessages, msg)
	if over := len(r.ChatMessages) - ChatHistoryLimit; over > 0 {
		r.ChatMessages = append(ChatLog{}, r.ChatMessages[over:]...)
	}
}

// AppendSystemChat records a lifecycle narration message.
func (r *Room) AppendSystemChat(message string, at time.Time) {
	r.AppendChat(ChatMessage{
		Sender:     SystemSender,
		SenderName: SystemSender,
		Message:    message,
		Timestamp:  at,
	})
}
