package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/gargis23/QuizApp-sub000/internal/domain"
	"github.com/gargis23/QuizApp-sub000/internal/dto"
)

// RoomFinder is the discovery side of the room API.
type RoomFinder interface {
	CreateRoom(ctx context.Context, hostID uint, hostName, category string, maxPlayers int) (*domain.Room, error)
	FindRoomByCode(ctx context.Context, code string) (*domain.Room, error)
	ListOpenRooms(ctx context.Context) ([]domain.Room, error)
}

// RoomCoordinator is the subset of coordinator operations mirrored on
// the REST surface for clients not yet connected to the realtime
// channel.
type RoomCoordinator interface {
	Join(ctx context.Context, connID, roomCode string, userID uint, userName string) error
	StartGame(ctx context.Context, roomCode string, userID uint, category string) error
	Quit(ctx context.Context, connID, roomCode string, userID uint, userName string) error
	EndGame(ctx context.Context, roomCode string, userID uint) error
}

// RoomHandler serves the room HTTP API.
type RoomHandler struct {
	rooms       RoomFinder
	coordinator RoomCoordinator
}

// NewRoomHandler creates a RoomHandler.
func NewRoomHandler(rooms RoomFinder, coordinator RoomCoordinator) *RoomHandler {
	if rooms == nil {
		panic("RoomFinder cannot be nil for RoomHandler")
	}
	if coordinator == nil {
		panic("RoomCoordinator cannot be nil for RoomHandler")
	}
	return &RoomHandler{rooms: rooms, coordinator: coordinator}
}

// authedUserID pulls the user ID set by the auth middleware.
func authedUserID(c *gin.Context) (uint, bool) {
	userIDAny, exists := c.Get("user_id")
	if !exists {
		logrus.Warn("Handler: user ID not found in context, middleware missing or failed?")
		ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return 0, false
	}
	userID, ok := userIDAny.(uint)
	if !ok {
		logrus.Error("Handler: user ID in context is not uint")
		ErrorResponse(c, http.StatusInternalServerError, "internal server error processing user ID")
		return 0, false
	}
	return userID, true
}

// ListRooms handles GET /rooms.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.rooms.ListOpenRooms(c.Request.Context())
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, rooms)
}

// CreateRoomRequest is the body of POST /rooms/create.
type CreateRoomRequest struct {
	UserName   string `json:"userName" binding:"required"`
	Category   string `json:"category"`
	MaxPlayers int    `json:"maxPlayers"`
}

// CreateRoom handles POST /rooms/create.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid input: userName is required")
		return
	}

	room, err := h.rooms.CreateRoom(c.Request.Context(), userID, req.UserName, req.Category, req.MaxPlayers)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, room)
}

// JoinRoomRequest is the body of POST /rooms/join/:code.
type JoinRoomRequest struct {
	UserName string `json:"userName" binding:"required"`
}

// JoinRoom handles POST /rooms/join/:code.
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	code := dto.NormalizeRoomCode(c.Param("code"))

	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid input: userName is required")
		return
	}

	if err := h.coordinator.Join(c.Request.Context(), "", code, userID, req.UserName); err != nil {
		HandleServiceError(c, err)
		return
	}
	room, err := h.rooms.FindRoomByCode(c.Request.Context(), code)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, room)
}

// GetRoom handles GET /rooms/:code.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	code := dto.NormalizeRoomCode(c.Param("code"))
	room, err := h.rooms.FindRoomByCode(c.Request.Context(), code)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, room)
}

// StartGameRequest is the body of POST /rooms/:code/start.
type StartGameRequest struct {
	Category string `json:"category"`
}

// StartGame handles POST /rooms/:code/start.
func (h *RoomHandler) StartGame(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	code := dto.NormalizeRoomCode(c.Param("code"))

	var req StartGameRequest
	_ = c.ShouldBindJSON(&req) // body optional

	if err := h.coordinator.StartGame(c.Request.Context(), code, userID, req.Category); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"roomCode": code, "status": domain.StatusInProgress})
}

// QuitGameRequest is the body of POST /rooms/:code/quit.
type QuitGameRequest struct {
	UserName string `json:"userName" binding:"required"`
}

// QuitGame handles POST /rooms/:code/quit.
func (h *RoomHandler) QuitGame(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	code := dto.NormalizeRoomCode(c.Param("code"))

	var req QuitGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid input: userName is required")
		return
	}

	if err := h.coordinator.Quit(c.Request.Context(), "", code, userID, req.UserName); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"roomCode": code})
}

// EndGame handles POST /rooms/:code/end.
func (h *RoomHandler) EndGame(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	code := dto.NormalizeRoomCode(c.Param("code"))

	if err := h.coordinator.EndGame(c.Request.Context(), code, userID); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"roomCode": code, "status": domain.StatusCompleted})
}
