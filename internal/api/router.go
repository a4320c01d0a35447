package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CORS allows the browser client to call the API from any origin.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Register mounts the API routes on g.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/profiles", h.GetProfiles)

	p := g.Group("/profiles/:profile")
	{
		p.DELETE("", h.ResetProfile)
		p.GET("/user", h.GetUser)
		p.PUT("/user", h.PutUser)
		p.POST("/signup", h.SignUp)
		p.POST("/upgrade", h.Upgrade)
		p.GET("/settings", h.GetSettings)
		p.PATCH("/settings", h.PatchSettings)

		p.GET("/habits", h.GetHabits)
		p.POST("/habits", h.CreateHabit)
		p.PATCH("/habits/:id", h.PatchHabit)
		p.POST("/habits/:id/archive", h.ArchiveHabit)
		p.POST("/habits/:id/restore", h.RestoreHabit)
		p.POST("/habits/:id/toggle", h.ToggleToday)
		p.POST("/habits/:id/value", h.SetTodayValue)

		p.GET("/logs", h.GetLogs)
		p.POST("/logs", h.CreateLog)
		p.PATCH("/logs/:id", h.PatchLog)

		p.POST("/onboarding", h.Onboard)
		p.POST("/complete-day", h.CompleteDay)
		p.GET("/dashboard", h.Dashboard)
		p.GET("/insights", h.Insights)
	}
}

// NewRouter builds the gin engine serving /api, /metrics and /healthz.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), CORS(), h.Metrics.Middleware())

	h.Register(r.Group("/api"))

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.Metrics.Registry, promhttp.HandlerOpts{})))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "API route not found"})
	})
	return r
}
