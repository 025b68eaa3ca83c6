// Package dto defines the closed set of realtime messages exchanged
// over the websocket channel: inbound commands from clients and
// outbound events broadcast by the server. Malformed payloads are
// rejected here, at the boundary, before any handler logic runs.
package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gargis23/QuizApp-sub000/internal/domain"
)

// Inbound command types (client -> server).
const (
	CmdAuthenticate   = "authenticate"
	CmdJoinRoom       = "join_room"
	CmdLeaveRoom      = "leave_room"
	CmdSelectCategory = "select_category"
	CmdCloseEntry     = "close_entry"
	CmdKickPlayer     = "kick_player"
	CmdSendMessage    = "send_message"
	CmdStartGame      = "start_game"
	CmdQuitGame       = "quit_game"
	CmdEndGame        = "end_game"
)

// Outbound event types (server -> client).
const (
	EvtAuthenticated    = "authenticated"
	EvtRoomState        = "room_state"
	EvtChatMessage      = "chat_message"
	EvtCategorySelected = "category_selected"
	EvtEntryClosed      = "entry_closed"
	EvtPlayerKicked     = "player_kicked"
	EvtKickedFromRoom   = "kicked_from_room"
	EvtHostLeft         = "host_left"
	EvtPlayerQuit       = "player_quit"
	EvtGameStarting     = "game_starting"
	EvtQuestionStarted  = "question_started"
	EvtQuestionEnded    = "question_ended"
	EvtGameCompleted    = "game_completed"
	EvtGameEnded        = "game_ended"
	EvtError            = "error"
)

// ErrMalformedCommand is returned for payloads that do not satisfy the
// command schema.
var ErrMalformedCommand = errors.New("malformed command")

// Command is the inbound message envelope. Which fields are required
// depends on Type; DecodeCommand enforces that.
type Command struct {
	Type         string `json:"type"`
	RoomCode     string `json:"roomCode,omitempty"`
	UserID       uint   `json:"userId,omitempty"`
	UserName     string `json:"userName,omitempty"`
	Token        string `json:"token,omitempty"`
	Category     string `json:"category,omitempty"`
	TargetUserID uint   `json:"targetUserId,omitempty"`
	Message      string `json:"message,omitempty"`
}

// DecodeCommand parses and validates a raw websocket frame. Unknown
// command types and missing required fields are rejected.
func DecodeCommand(raw []byte) (*Command, error) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	return &cmd, nil
}

func (c *Command) validate() error {
	switch c.Type {
	case CmdAuthenticate:
		if c.UserID == 0 || c.Token == "" {
			return fmt.Errorf("%w: authenticate requires userId and token", ErrMalformedCommand)
		}
		return nil
	case CmdJoinRoom, CmdLeaveRoom, CmdQuitGame:
		if c.UserName == "" {
			return fmt.Errorf("%w: %s requires userName", ErrMalformedCommand, c.Type)
		}
	case CmdSelectCategory:
		if !domain.IsValidCategory(c.Category) {
			return fmt.Errorf("%w: unknown category %q", ErrMalformedCommand, c.Category)
		}
	case CmdKickPlayer:
		if c.TargetUserID == 0 {
			return fmt.Errorf("%w: kick_player requires targetUserId", ErrMalformedCommand)
		}
	case CmdSendMessage:
		if c.UserName == "" || c.Message == "" {
			return fmt.Errorf("%w: send_message requires userName and message", ErrMalformedCommand)
		}
	case CmdStartGame:
		if c.Category != "" && !domain.IsValidCategory(c.Category) {
			return fmt.Errorf("%w: unknown category %q", ErrMalformedCommand, c.Category)
		}
	case CmdCloseEntry, CmdEndGame:
		// room code only
	default:
		return fmt.Errorf("%w: unknown command type %q", ErrMalformedCommand, c.Type)
	}
	if !validRoomCode(c.RoomCode) {
		return fmt.Errorf("%w: %s requires a 6-character room code", ErrMalformedCommand, c.Type)
	}
	return nil
}

func validRoomCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// NormalizeRoomCode upper-cases a client-supplied room code so lookups
// are case-insensitive at the edge.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// AuthenticatedEvent confirms a successful authenticate command to the
// issuing connection.
type AuthenticatedEvent struct {
	Type   string `json:"type"`
	UserID uint   `json:"userId"`
}

func NewAuthenticated(userID uint) AuthenticatedEvent {
	return AuthenticatedEvent{Type: EvtAuthenticated, UserID: userID}
}

// RoomStateEvent is the full canonical room snapshot.
type RoomStateEvent struct {
	Type          string               `json:"type"`
	RoomCode      string               `json:"roomCode"`
	Players       []domain.Player      `json:"players"`
	Category      string               `json:"category"`
	IsEntryClosed bool                 `json:"isEntryClosed"`
	Status        domain.RoomStatus    `json:"status"`
	Host          uint                 `json:"host"`
	HostName      string               `json:"hostName"`
	ChatMessages  []domain.ChatMessage `json:"chatMessages"`
}

func NewRoomState(room *domain.Room) RoomStateEvent {
	return RoomStateEvent{
		Type:          EvtRoomState,
		RoomCode:      room.Code,
		Players:       append([]domain.Player{}, room.Players...),
		Category:      room.Category,
		IsEntryClosed: room.IsEntryClosed,
		Status:        room.Status,
		Host:          room.HostID,
		HostName:      room.HostName,
		ChatMessages:  append([]domain.ChatMessage{}, room.ChatMessages...),
	}
}

// ChatMessageEvent carries one chat entry, user or system authored.
type ChatMessageEvent struct {
	Type       string    `json:"type"`
	Sender     string    `json:"sender"`
	SenderName string    `json:"senderName"`
	Message    string    `json:"message"`
	Time       time.Time `json:"time"`
}

func NewChatMessage(msg domain.ChatMessage) ChatMessageEvent {
	return ChatMessageEvent{
		Type:       EvtChatMessage,
		Sender:     msg.Sender,
		SenderName: msg.SenderName,
		Message:    msg.Message,
		Time:       msg.Timestamp,
	}
}

type CategorySelectedEvent struct {
	Type     string `json:"type"`
	Category string `json:"category"`
}

func NewCategorySelected(category string) CategorySelectedEvent {
	return CategorySelectedEvent{Type: EvtCategorySelected, Category: category}
}

type EntryClosedEvent struct {
	Type string `json:"type"`
}

func NewEntryClosed() EntryClosedEvent {
	return EntryClosedEvent{Type: EvtEntryClosed}
}

// PlayerKickedEvent goes to the remaining members of the room.
type PlayerKickedEvent struct {
	Type     string `json:"type"`
	UserID   uint   `json:"userId"`
	UserName string `json:"userName"`
}

func NewPlayerKicked(userID uint, userName string) PlayerKickedEvent {
	return PlayerKickedEvent{Type: EvtPlayerKicked, UserID: userID, UserName: userName}
}

// KickedFromRoomEvent goes directly to the kicked player only.
type KickedFromRoomEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewKickedFromRoom(message string) KickedFromRoomEvent {
	return KickedFromRoomEvent{Type: EvtKickedFromRoom, Message: message}
}

type HostLeftEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewHostLeft(message string) HostLeftEvent {
	return HostLeftEvent{Type: EvtHostLeft, Message: message}
}

type PlayerQuitEvent struct {
	Type             string `json:"type"`
	PlayerID         uint   `json:"playerId"`
	PlayerName       string `json:"playerName"`
	Message          string `json:"message"`
	PlayersRemaining int    `json:"playersRemaining"`
}

func NewPlayerQuit(playerID uint, playerName, message string, remaining int) PlayerQuitEvent {
	return PlayerQuitEvent{
		Type:             EvtPlayerQuit,
		PlayerID:         playerID,
		PlayerName:       playerName,
		Message:          message,
		PlayersRemaining: remaining,
	}
}

type GameStartingEvent struct {
	Type          string          `json:"type"`
	Category      string          `json:"category"`
	Message       string          `json:"message"`
	GameStartTime time.Time       `json:"gameStartTime"`
	Players       []domain.Player `json:"players"`
}

func NewGameStarting(category, message string, startTime time.Time, players []domain.Player) GameStartingEvent {
	return GameStartingEvent{
		Type:          EvtGameStarting,
		Category:      category,
		Message:       message,
		GameStartTime: startTime,
		Players:       append([]domain.Player{}, players...),
	}
}

type QuestionStartedEvent struct {
	Type          string    `json:"type"`
	QuestionIndex int       `json:"questionIndex"`
	TimeLimit     int       `json:"timeLimit"`
	StartTime     time.Time `json:"startTime"`
}

func NewQuestionStarted(index, timeLimitSeconds int, startTime time.Time) QuestionStartedEvent {
	return QuestionStartedEvent{
		Type:          EvtQuestionStarted,
		QuestionIndex: index,
		TimeLimit:     timeLimitSeconds,
		StartTime:     startTime,
	}
}

type QuestionEndedEvent struct {
	Type          string `json:"type"`
	QuestionIndex int    `json:"questionIndex"`
	ShowAnswer    bool   `json:"showAnswer"`
}

func NewQuestionEnded(index int) QuestionEndedEvent {
	return QuestionEndedEvent{Type: EvtQuestionEnded, QuestionIndex: index, ShowAnswer: true}
}

type GameCompletedEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewGameCompleted(message string) GameCompletedEvent {
	return GameCompletedEvent{Type: EvtGameCompleted, Message: message}
}

type GameEndedEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewGameEnded(message string) GameEndedEvent {
	return GameEndedEvent{Type: EvtGameEnded, Message: message}
}

// ErrorEvent is sent only to the initiating connection, never
// broadcast.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewError(message string) ErrorEvent {
	return ErrorEvent{Type: EvtError, Message: message}
}
