package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Greeting is the fixed liveness response on GET /.
const Greeting = "Hello from server"

type RouterDeps struct {
	Upload *UploadHandler
	Chat   *ChatHandler
	Jobs   *JobHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, Greeting)
	})
	api.POST("/upload/pdf", deps.Upload.UploadPDF)
	api.POST("/chat", deps.Chat.Chat)

	api.GET("/jobs", deps.Jobs.List)
	api.GET("/jobs/:id", deps.Jobs.Get)
	api.POST("/jobs/:id/requeue", deps.Jobs.Requeue)
}
