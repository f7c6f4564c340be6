package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	sessionCookie = "session_id"
	sessionKey    = "sessionID"
)

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// sessionID attaches a session ID to the request, issuing a cookie for new
// visitors or when the presented value is not a UUID.
func sessionID(ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(sessionCookie)
		if err == nil {
			_, err = uuid.Parse(id)
		}
		if err != nil {
			id = uuid.NewString()
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(sessionCookie, id, int(ttl/time.Second), "/", "", false, true)
		c.Set(sessionKey, id)
		c.Next()
	}
}

func currentSession(c *gin.Context) string {
	return c.GetString(sessionKey)
}
