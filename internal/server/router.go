// Package server exposes the intake form, the JSON API and the ops endpoints
// over gin.
package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Skufu/interventions/internal/assistant"
	"github.com/Skufu/interventions/internal/catalog"
	"github.com/Skufu/interventions/internal/orchestrator"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Catalog      catalog.Catalog
	Orchestrator *orchestrator.Orchestrator
	Assistant    *assistant.Assistant
	// DB is nil when no session database is configured.
	DB         HealthChecker
	Metrics    *Metrics
	Log        *zap.Logger
	SessionTTL time.Duration
}

type handlers struct {
	Deps
	md *markdown
}

func NewRouter(d Deps) (*gin.Engine, error) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = NewMetrics()
	}
	if d.SessionTTL <= 0 {
		d.SessionTTL = 12 * time.Hour
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	h := &handlers{Deps: d, md: newMarkdown()}

	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	router.Use(
		requestLogger(d.Log),
		gin.Recovery(),
		limitBodySize(1<<20), // 1MB max body
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", h.readyz)
	router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	pages := router.Group("/", sessionID(d.SessionTTL))
	pages.GET("/", h.index)
	pages.POST("/recommendations", h.submitForm)
	pages.POST("/feedback", h.feedbackForm)
	pages.GET("/ask", h.askPage)
	pages.POST("/ask", h.askForm)

	api := router.Group("/api",
		cors.New(cors.Config{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}),
		sessionID(d.SessionTTL),
	)
	api.GET("/catalog", h.apiCatalog)
	api.POST("/recommendations", h.apiSubmit)
	api.POST("/feedback", h.apiFeedback)
	api.POST("/ask", h.apiAsk)
	api.DELETE("/session", h.apiResetSession)

	return router, nil
}

func (h *handlers) readyz(c *gin.Context) {
	if h.DB == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.DB.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"db":     fmt.Sprintf("unhealthy: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"db":     "ok",
	})
}
