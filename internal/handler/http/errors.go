package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/gargis23/QuizApp-sub000/internal/game"
	"github.com/gargis23/QuizApp-sub000/internal/service"
)

// HandleServiceError maps service and coordinator errors to a status
// code plus envelope. The core only produces taxonomy values; the
// transport encoding lives here.
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAuthenticationFailed):
		ErrorResponse(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrRegistrationFailed),
		errors.Is(err, service.ErrInvalidCategory):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrRoomNotFound),
		errors.Is(err, game.ErrRoomNotFound):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrForbidden):
		ErrorResponse(c, http.StatusForbidden, err.Error())
	case errors.Is(err, game.ErrRoomFull),
		errors.Is(err, game.ErrEntryClosed),
		errors.Is(err, game.ErrRoomClosed):
		ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrNoCategory),
		errors.Is(err, game.ErrInvalidCategory),
		errors.Is(err, game.ErrInsufficientPlayers):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrStoreFailure):
		logrus.WithError(err).Error("Store failure surfaced to HTTP")
		ErrorResponse(c, http.StatusServiceUnavailable, "storage unavailable")
	default:
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "an unexpected error occurred")
	}
}
