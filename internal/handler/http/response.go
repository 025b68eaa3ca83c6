package http

import "github.com/gin-gonic/gin"

// Envelope is the uniform response shape for the whole HTTP surface.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func SuccessResponse(c *gin.Context, code int, data interface{}) {
	c.JSON(code, Envelope{Success: true, Data: data})
}

func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, Envelope{Success: false, Message: message})
}
