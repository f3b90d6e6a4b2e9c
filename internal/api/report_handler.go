package api

import (
	"net/http"
	"time"

	"projtrack/internal/apperr"
	"projtrack/internal/notify"
	"projtrack/internal/service/analytics"
	"projtrack/internal/service/project"
	"projtrack/internal/service/timeline"
	"projtrack/internal/views"

	"github.com/gin-gonic/gin"
)

// ReportHandler serves the read-only derived data: analytics, timeline,
// gantt and the cached view snapshots.
type ReportHandler struct {
	responder
	projects *project.Service
	views    *views.Registry
}

func NewReportHandler(projects *project.Service, registry *views.Registry, notifier *notify.Notifier) *ReportHandler {
	return &ReportHandler{responder: responder{notifier: notifier}, projects: projects, views: registry}
}

// Analytics handles GET /api/analytics
func (h *ReportHandler) Analytics(c *gin.Context) {
	stats := analytics.Compute(h.projects.GetAllProjects(), h.projects.Today())
	c.JSON(http.StatusOK, gin.H{
		"stats":  stats,
		"report": analytics.BuildReport(stats, time.Now()),
	})
}

func (h *ReportHandler) filter(c *gin.Context) (timeline.Filter, bool) {
	var f timeline.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		h.fail(c, "timeline", apperr.Validation("Filtro inválido: %v", err))
		return f, false
	}
	return f, true
}

// Timeline handles GET /api/timeline?project=&responsible=
func (h *ReportHandler) Timeline(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}
	all := h.projects.GetAllProjects()
	c.JSON(http.StatusOK, gin.H{
		"timeline": timeline.BuildSimple(all, f, h.projects.Today()),
		"options":  timeline.Options(all),
	})
}

// Gantt handles GET /api/gantt?project=&responsible=
func (h *ReportHandler) Gantt(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bars": timeline.BuildBars(h.projects.GetAllProjects(), f, h.projects.Today()),
	})
}

// ListViews handles GET /api/views
func (h *ReportHandler) ListViews(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"views": h.views.Names()})
}

// GetView handles GET /api/views/:name
func (h *ReportHandler) GetView(c *gin.Context) {
	snap, ok := h.views.Get(c.Param("name"))
	if !ok {
		h.fail(c, "get_view", apperr.NotFound("Visão não encontrada: %s", c.Param("name")))
		return
	}
	c.JSON(http.StatusOK, snap)
}
