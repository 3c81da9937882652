package server

import (
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
)

// Response is the JSON envelope of every API reply.
type Response struct {
	Status string     `json:"status"` // "ok" or "error"
	Data   any        `json:"data,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respond(c *gin.Context, status int, data any) {
	write(c, status, Response{Status: "ok", Data: data})
}

func respondError(c *gin.Context, status int, code, message string) {
	write(c, status, Response{Status: "error", Error: &ErrorBody{Code: code, Message: message}})
}

func write(c *gin.Context, status int, body Response) {
	data, err := sonic.ConfigStd.Marshal(body)
	if err != nil {
		c.String(http.StatusInternalServerError, "encode response: %v", err)
		return
	}
	c.Data(status, "application/json; charset=utf-8", data)
}
