package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// wireRouter builds the ops surface: liveness and readiness only. Domain
// operations are driven through the store APIs, not HTTP.
func wireRouter(a *App) *gin.Engine {
	if a.Cfg.LogMode == "prod" || a.Cfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/readyz", func(c *gin.Context) {
		if err := a.Graph.Driver.VerifyConnectivity(c.Request.Context()); err != nil {
			a.Log.Warn("readiness probe failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	return r
}
