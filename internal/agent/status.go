package agent

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatusRouter builds the agent's HTTP status surface: a liveness
// check and the handler counters. It carries no file content and no
// protocol traffic.
func (h *Handler) StatusRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"root":   h.store.Root(),
		})
	})

	router.GET("/stats", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, h.stats.Snapshot())
	})

	return router
}
