// Package utils holds small cross-cutting helpers shared by the HTTP layer.
package utils

import "github.com/gin-gonic/gin"

// Response is the standard JSON envelope every handler replies with.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Success sends a success response with a message and optional data.
func Success(c *gin.Context, statusCode int, message string, data any) {
	c.JSON(statusCode, Response{Success: true, Message: message, Data: data})
}

// SuccessData sends a 200 success response carrying only data.
func SuccessData(c *gin.Context, data any) {
	c.JSON(200, Response{Success: true, Data: data})
}

// Error sends an error response, attaching err's message when present.
func Error(c *gin.Context, statusCode int, message string, err error) {
	resp := Response{Success: false, Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(statusCode, resp)
}
