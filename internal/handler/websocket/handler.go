// Package websocket upgrades HTTP connections and routes inbound
// commands to the game coordinator. A fresh connection is anonymous;
// identity is established by an explicit authenticate command, so the
// upgrade itself needs no auth middleware.
package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/gargis23/QuizApp-sub000/internal/hub"
)

// Handler accepts websocket upgrade requests and hands the connection
// to the hub.
type Handler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
}

// NewHandler creates a websocket Handler.
func NewHandler(h *hub.Hub) *Handler {
	if h == nil {
		panic("Hub cannot be nil for websocket Handler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// TODO: restrict origins via WEBSOCKET_ALLOWED_ORIGIN before
		// exposing this outside a trusted frontend.
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return &Handler{upgrader: upgrader, hub: h}
}

// HandleConnection handles GET /ws.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade writes its own HTTP error response.
		logrus.WithError(err).Error("WS Handler: failed to upgrade connection")
		return
	}

	client := hub.NewClient(h.hub, conn)
	logCtx := logrus.WithField("conn_id", client.ConnID())
	logCtx.Info("WS Handler: connection upgraded")

	registerMsg := hub.HubMessage{Type: hub.TypeRegister, Client: client}
	if !h.hub.QueueMessage(registerMsg) {
		logCtx.Error("WS Handler: hub channel full, rejecting client")
		client.CloseConn()
		return
	}

	client.Run()
}
