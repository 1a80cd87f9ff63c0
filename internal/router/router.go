package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clipforge/internal/handler"
)

func SetupRouter(r *gin.Engine, svc handler.Jobs) {
	api := r.Group("/api")

	hdl := handler.NewHandler(svc)
	{
		api.GET("/jobs/:id", hdl.GetJob)
		api.GET("/videos/:id", hdl.GetVideo)
		api.DELETE("/videos/:id", hdl.DeleteVideo)
		api.POST("/videos/:id/transcribe", hdl.StartTranscription)
		api.POST("/videos/:id/clips/regenerate", hdl.RegenerateClips)
		api.POST("/videos/:id/clips/render", hdl.RenderAllClips)
		api.POST("/clips/:id/render", hdl.RenderClip)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
}
