package websocket

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/gargis23/QuizApp-sub000/internal/dto"
	"github.com/gargis23/QuizApp-sub000/internal/game"
	"github.com/gargis23/QuizApp-sub000/internal/hub"
)

// TokenValidator checks a JWT and returns the user ID it carries.
type TokenValidator interface {
	ValidateToken(token string) (uint, error)
}

// GameCoordinator is the set of room operations reachable over the
// realtime channel.
type GameCoordinator interface {
	Join(ctx context.Context, connID, roomCode string, userID uint, userName string) error
	Leave(ctx context.Context, connID, roomCode string, userID uint, userName string) error
	SelectCategory(ctx context.Context, roomCode string, userID uint, category string) error
	CloseEntry(ctx context.Context, roomCode string, userID uint) error
	KickPlayer(ctx context.Context, roomCode string, targetUserID, userID uint) error
	SendMessage(ctx context.Context, roomCode string, userID uint, userName, message string) error
	StartGame(ctx context.Context, roomCode string, userID uint, category string) error
	Quit(ctx context.Context, connID, roomCode string, userID uint, userName string) error
	EndGame(ctx context.Context, roomCode string, userID uint) error
}

// Sender delivers an event to a single connection. Satisfied by
// hub.Hub.
type Sender interface {
	SendTo(connID string, event interface{})
}

// Dispatcher decodes inbound frames and routes them to the
// coordinator. It implements hub.Dispatcher. Errors go back to the
// initiating connection only, never to the room.
type Dispatcher struct {
	auth        TokenValidator
	registry    *game.Registry
	coordinator GameCoordinator
	sender      Sender
	log         *logrus.Entry
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(auth TokenValidator, registry *game.Registry, coordinator GameCoordinator, sender Sender) *Dispatcher {
	if auth == nil {
		panic("TokenValidator cannot be nil for Dispatcher")
	}
	if registry == nil {
		panic("Registry cannot be nil for Dispatcher")
	}
	if coordinator == nil {
		panic("GameCoordinator cannot be nil for Dispatcher")
	}
	if sender == nil {
		panic("Sender cannot be nil for Dispatcher")
	}
	return &Dispatcher{
		auth:        auth,
		registry:    registry,
		coordinator: coordinator,
		sender:      sender,
		log:         logrus.WithField("component", "ws_dispatcher"),
	}
}

// Dispatch handles one raw frame from a client.
func (d *Dispatcher) Dispatch(client *hub.Client, raw []byte) {
	connID := client.ConnID()

	cmd, err := dto.DecodeCommand(raw)
	if err != nil {
		d.log.WithError(err).WithField("conn_id", connID).Warn("Rejected malformed command")
		d.sender.SendTo(connID, dto.NewError(err.Error()))
		return
	}
	logCtx := d.log.WithFields(logrus.Fields{"conn_id": connID, "command": cmd.Type})

	if cmd.Type == dto.CmdAuthenticate {
		d.authenticate(connID, cmd, logCtx)
		return
	}

	// The registry binding is the authoritative identity for every
	// other command; the userId field in the payload is ignored.
	userID, ok := d.registry.UserID(connID)
	if !ok {
		logCtx.Warn("Command from unauthenticated connection")
		d.sender.SendTo(connID, dto.NewError("not authenticated: send an authenticate command first"))
		return
	}
	logCtx = logCtx.WithField("user_id", userID)

	ctx := context.Background()
	switch cmd.Type {
	case dto.CmdJoinRoom:
		err = d.coordinator.Join(ctx, connID, cmd.RoomCode, userID, cmd.UserName)
	case dto.CmdLeaveRoom:
		err = d.coordinator.Leave(ctx, connID, cmd.RoomCode, userID, cmd.UserName)
	case dto.CmdSelectCategory:
		err = d.coordinator.SelectCategory(ctx, cmd.RoomCode, userID, cmd.Category)
	case dto.CmdCloseEntry:
		err = d.coordinator.CloseEntry(ctx, cmd.RoomCode, userID)
	case dto.CmdKickPlayer:
		err = d.coordinator.KickPlayer(ctx, cmd.RoomCode, cmd.TargetUserID, userID)
	case dto.CmdSendMessage:
		err = d.coordinator.SendMessage(ctx, cmd.RoomCode, userID, cmd.UserName, cmd.Message)
	case dto.CmdStartGame:
		err = d.coordinator.StartGame(ctx, cmd.RoomCode, userID, cmd.Category)
	case dto.CmdQuitGame:
		err = d.coordinator.Quit(ctx, connID, cmd.RoomCode, userID, cmd.UserName)
	case dto.CmdEndGame:
		err = d.coordinator.EndGame(ctx, cmd.RoomCode, userID)
	default:
		err = dto.ErrMalformedCommand
	}

	if err != nil {
		logCtx.WithError(err).Warn("Command failed")
		d.sender.SendTo(connID, dto.NewError(err.Error()))
		return
	}
	logCtx.Debug("Command handled")
}

func (d *Dispatcher) authenticate(connID string, cmd *dto.Command, logCtx *logrus.Entry) {
	userID, err := d.auth.ValidateToken(cmd.Token)
	if err != nil {
		logCtx.WithError(err).Warn("Authentication failed")
		d.sender.SendTo(connID, dto.NewError("authentication failed"))
		return
	}
	if userID != cmd.UserID {
		logCtx.WithFields(logrus.Fields{"claimed": cmd.UserID, "token": userID}).Warn("Token user mismatch")
		d.sender.SendTo(connID, dto.NewError("authentication failed"))
		return
	}

	// Last write wins: a second tab takes over the user's binding and
	// the first connection goes stale.
	d.registry.Bind(connID, userID)
	d.sender.SendTo(connID, dto.NewAuthenticated(userID))
	logCtx.WithField("user_id", userID).Info("Connection authenticated")
}

// Disconnected drops the registry binding for a gone connection. Room
// membership is untouched; the player can reconnect and authenticate
// again.
func (d *Dispatcher) Disconnected(connID string) {
	d.registry.UnbindConn(connID)
}

var _ hub.Dispatcher = (*Dispatcher)(nil)
