package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

// NewRouter builds the full HTTP surface wrapped in CORS.
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), h.accessLog())

	r.GET("/healthz", h.Health)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics.Handler()))
	}
	r.GET("/ws", h.ServeWebSocket)

	admin := r.Group("/admin", h.AdminAuth())
	admin.GET("/allocate-code", h.AllocateCode)
	admin.GET("/stats", h.Stats)
	admin.POST("/rooms/:code/expire", h.ExpireRoom)

	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(r)
}

func (h *Handler) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.Log.Debug("http.request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"dur", time.Since(start),
		)
	}
}
