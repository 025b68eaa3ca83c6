package game

import "errors"

// Validation errors reported to the initiating connection only; none of
// them mutate room state.
var (
	// ErrRoomNotFound means no room exists for the given code.
	ErrRoomNotFound = errors.New("room not found")
	// ErrForbidden means a non-host attempted a privileged action.
	ErrForbidden = errors.New("only the host may perform this action")
	// ErrRoomFull means the room is at capacity.
	ErrRoomFull = errors.New("room is full")
	// ErrEntryClosed means the room is not accepting new players.
	ErrEntryClosed = errors.New("room entry is closed")
	// ErrNoCategory means startGame was called with no category
	// selected and none supplied.
	ErrNoCategory = errors.New("no category selected")
	// ErrInvalidCategory means the supplied category is outside the
	// fixed category set.
	ErrInvalidCategory = errors.New("invalid category")
	// ErrInsufficientPlayers means startGame was called with fewer
	// than two players.
	ErrInsufficientPlayers = errors.New("at least 2 players are required to start")
	// ErrRoomClosed means the room has reached a terminal state (or
	// the game has started, for setup-only actions) and rejects the
	// mutation.
	ErrRoomClosed = errors.New("room is not open for this action")
	// ErrStoreFailure wraps persistence-layer failures; the room is
	// left in its last successfully persisted state.
	ErrStoreFailure = errors.New("storage unavailable")
)
