package utils

import (
	"github.com/gin-gonic/gin"
)

type JSONResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Success: code >= 200 && code < 300,
		Message: message,
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, err error) {
	c.JSON(code, JSONResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// RespondFields writes {success, ...fields} for endpoints whose payload keys
// are part of the public contract (order, orders, pagination).
func RespondFields(c *gin.Context, code int, fields gin.H) {
	body := gin.H{"success": code >= 200 && code < 300}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(code, body)
}
