package server

import (
	"errors"
	"html/template"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Skufu/interventions/internal/catalog"
	"github.com/Skufu/interventions/internal/orchestrator"
	"github.com/Skufu/interventions/internal/recommend"
)

const pageTitle = "Behavioral Intervention Recommender"

type pageData struct {
	Title             string
	Fields            []formField
	Observation       string
	Heading           string
	Rendered          template.HTML
	Notices           []orchestrator.Notice
	FeedbackAvailable bool
	Question          string
	Answer            template.HTML
}

func (h *handlers) index(c *gin.Context) {
	data := pageData{Title: pageTitle}
	st, err := h.Orchestrator.Current(c.Request.Context(), currentSession(c))
	if err != nil {
		h.Log.Error("load session", zap.Error(err))
	}
	var record recommend.PatientRecord
	if st.Snapshot != nil {
		record = st.Snapshot.Record
		data.Observation = st.Snapshot.Observation
	}
	data.Fields = buildFields(h.Catalog, record)
	c.HTML(http.StatusOK, "index.tmpl", data)
}

func (h *handlers) submitForm(c *gin.Context) {
	observation := c.PostForm("observations")
	record, err := buildRecord(h.Catalog, func(name string) (any, bool) {
		v, ok := c.GetPostForm(name)
		if !ok || strings.TrimSpace(v) == "" {
			return nil, false
		}
		return v, true
	})
	if err != nil {
		c.HTML(http.StatusBadRequest, "index.tmpl", pageData{
			Title:       pageTitle,
			Fields:      buildFields(h.Catalog, nil),
			Observation: observation,
			Notices:     []orchestrator.Notice{{Level: orchestrator.LevelError, Text: err.Error()}},
		})
		return
	}

	out, err := h.Orchestrator.Submit(c.Request.Context(), currentSession(c), record, observation)
	h.Metrics.observeOutcome("submit", out)
	status := http.StatusOK
	if err != nil {
		h.Log.Error("submit", zap.Error(err))
		out.Notices = append(out.Notices, orchestrator.Notice{Level: orchestrator.LevelError, Text: "Session state could not be saved."})
		status = http.StatusInternalServerError
	}
	c.HTML(status, "index.tmpl", h.outcomePage(buildFields(h.Catalog, record), observation, out))
}

func (h *handlers) feedbackForm(c *gin.Context) {
	ctx := c.Request.Context()
	sid := currentSession(c)

	st, err := h.Orchestrator.Current(ctx, sid)
	if err != nil {
		h.Log.Error("load session", zap.Error(err))
	}
	var (
		record      recommend.PatientRecord
		observation string
	)
	if st.Snapshot != nil {
		record, observation = st.Snapshot.Record, st.Snapshot.Observation
	}
	fields := buildFields(h.Catalog, record)

	choice, err := recommend.ParseFeedback(c.PostForm("feedback"))
	if err != nil {
		c.HTML(http.StatusBadRequest, "index.tmpl", pageData{
			Title: pageTitle, Fields: fields, Observation: observation,
			Notices: []orchestrator.Notice{{Level: orchestrator.LevelError, Text: "Please choose Yes, No or Partially."}},
		})
		return
	}

	out, err := h.Orchestrator.Feedback(ctx, sid, choice)
	if status, notice, failed := feedbackError(err); failed {
		if status == http.StatusInternalServerError {
			h.Log.Error("feedback", zap.Error(err))
		}
		out.Notices = append(out.Notices, notice)
		c.HTML(status, "index.tmpl", h.outcomePage(fields, observation, out))
		return
	}
	h.Metrics.observeOutcome("feedback", out)
	c.HTML(http.StatusOK, "index.tmpl", h.outcomePage(fields, observation, out))
}

func feedbackError(err error) (int, orchestrator.Notice, bool) {
	switch {
	case err == nil:
		return http.StatusOK, orchestrator.Notice{}, false
	case errors.Is(err, orchestrator.ErrNoResult):
		return http.StatusConflict, orchestrator.Notice{Level: orchestrator.LevelWarning, Text: "There are no recommendations to give feedback on yet."}, true
	case errors.Is(err, orchestrator.ErrRoundClosed):
		return http.StatusConflict, orchestrator.Notice{Level: orchestrator.LevelWarning, Text: "Feedback for these recommendations was already submitted."}, true
	default:
		return http.StatusInternalServerError, orchestrator.Notice{Level: orchestrator.LevelError, Text: "Session state could not be saved."}, true
	}
}

// outcomePage renders an outcome. A heading is always shown after an action
// that reached Displayed, so an empty result shows the no-recommendations notice.
func (h *handlers) outcomePage(fields []formField, observation string, out orchestrator.Outcome) pageData {
	data := pageData{
		Title:             pageTitle,
		Fields:            fields,
		Observation:       observation,
		Heading:           out.Heading,
		Notices:           out.Notices,
		FeedbackAvailable: out.FeedbackAvailable,
	}
	if out.Heading != "" {
		rendered, err := h.md.HTML(recommend.Render(out.Recommendations))
		if err != nil {
			h.Log.Error("render recommendations", zap.Error(err))
			rendered = template.HTML(template.HTMLEscapeString(recommend.NoRecommendations))
		}
		data.Rendered = rendered
	}
	return data
}

func (h *handlers) askPage(c *gin.Context) {
	c.HTML(http.StatusOK, "ask.tmpl", pageData{Title: "Alzheimer's Disease Assistant"})
}

func (h *handlers) askForm(c *gin.Context) {
	question := c.PostForm("question")
	answer := h.Assistant.Ask(c.Request.Context(), question)
	rendered, err := h.md.HTML(answer)
	if err != nil {
		h.Log.Error("render answer", zap.Error(err))
		rendered = template.HTML(template.HTMLEscapeString(answer))
	}
	c.HTML(http.StatusOK, "ask.tmpl", pageData{
		Title:    "Alzheimer's Disease Assistant",
		Question: question,
		Answer:   rendered,
	})
}

type catalogEntry struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Options []string `json:"options,omitempty"`
}

func (h *handlers) apiCatalog(c *gin.Context) {
	entries := make([]catalogEntry, 0, len(h.Catalog))
	for _, name := range h.Catalog {
		entries = append(entries, catalogEntry{
			Name:    name,
			Kind:    catalog.KindOf(name).String(),
			Options: catalog.Choices(name),
		})
	}
	c.JSON(http.StatusOK, gin.H{"columns": entries})
}

type submitRequest struct {
	Patient      map[string]any `json:"patient" binding:"required"`
	Observations string         `json:"observations"`
}

type outcomeResponse struct {
	orchestrator.Outcome
	Markdown string `json:"markdown,omitempty"`
}

func (h *handlers) apiSubmit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if unknown := h.unknownColumns(req.Patient); len(unknown) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "validation_failed",
			"details": "unknown attributes: " + strings.Join(unknown, ", "),
		})
		return
	}
	record, err := buildRecord(h.Catalog, func(name string) (any, bool) {
		v, ok := req.Patient[name]
		return v, ok && v != nil
	})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_failed", "details": err.Error()})
		return
	}

	out, err := h.Orchestrator.Submit(c.Request.Context(), currentSession(c), record, req.Observations)
	h.Metrics.observeOutcome("submit", out)
	if err != nil {
		h.Log.Error("submit", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session_unavailable"})
		return
	}
	c.JSON(http.StatusOK, outcomeResponse{Outcome: out, Markdown: recommend.Render(out.Recommendations)})
}

func (h *handlers) unknownColumns(patient map[string]any) []string {
	var unknown []string
	for _, name := range slices.Sorted(maps.Keys(patient)) {
		if !h.Catalog.Contains(name) {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

func (h *handlers) apiResetSession(c *gin.Context) {
	if err := h.Orchestrator.Reset(c.Request.Context(), currentSession(c)); err != nil {
		h.Log.Error("reset session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session_unavailable"})
		return
	}
	c.Status(http.StatusNoContent)
}

type feedbackRequest struct {
	Feedback string `json:"feedback" binding:"required"`
}

func (h *handlers) apiFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	choice, err := recommend.ParseFeedback(req.Feedback)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_failed", "details": err.Error()})
		return
	}

	out, err := h.Orchestrator.Feedback(c.Request.Context(), currentSession(c), choice)
	if status, notice, failed := feedbackError(err); failed {
		if status == http.StatusInternalServerError {
			h.Log.Error("feedback", zap.Error(err))
		}
		c.JSON(status, gin.H{"error": notice.Text})
		return
	}
	h.Metrics.observeOutcome("feedback", out)

	resp := outcomeResponse{Outcome: out}
	if out.Heading != "" {
		resp.Markdown = recommend.Render(out.Recommendations)
	}
	c.JSON(http.StatusOK, resp)
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

func (h *handlers) apiAsk(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": h.Assistant.Ask(c.Request.Context(), req.Question)})
}
