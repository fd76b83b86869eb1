package response

import (
	"github.com/gin-gonic/gin"
)

// Success writes the payload as-is; the upload and chat response bodies are
// part of the wire contract and carry no envelope.
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

// Error writes {"code", "error"} with the given HTTP status. The error
// field stays a plain string for clients that only read it.
func Error(c *gin.Context, status int, code int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"code": code, "error": message})
}
