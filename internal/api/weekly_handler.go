package api

import (
	"fmt"
	"net/http"

	"projtrack/internal/apperr"
	"projtrack/internal/model"
	"projtrack/internal/notify"
	"projtrack/internal/service/weekly"

	"github.com/gin-gonic/gin"
)

type WeeklyHandler struct {
	responder
	weekly *weekly.Service
}

func NewWeeklyHandler(weeklySvc *weekly.Service, notifier *notify.Notifier) *WeeklyHandler {
	return &WeeklyHandler{responder: responder{notifier: notifier}, weekly: weeklySvc}
}

func (h *WeeklyHandler) day(c *gin.Context, op string) (model.Weekday, bool) {
	day, err := model.ParseWeekday(c.Param("day"))
	if err != nil {
		h.fail(c, op, apperr.Validation("Dia inválido: %s", c.Param("day")))
		return "", false
	}
	return day, true
}

// GetPlanner handles GET /api/weekly
func (h *WeeklyHandler) GetPlanner(c *gin.Context) {
	c.JSON(http.StatusOK, h.loadWarning(gin.H{"planner": h.weekly.Planner()}, h.weekly.LoadError()))
}

// Assign handles POST /api/weekly/:day/tasks
func (h *WeeklyHandler) Assign(c *gin.Context) {
	day, ok := h.day(c, "weekly_assign")
	if !ok {
		return
	}
	var req struct {
		TaskID string `json:"taskId" binding:"required"`
	}
	if !h.bind(c, "weekly_assign", &req) {
		return
	}
	if err := h.weekly.Assign(c.Request.Context(), day, req.TaskID); err != nil {
		h.fail(c, "weekly_assign", err)
		return
	}
	h.success(c, http.StatusOK, fmt.Sprintf("Etapa alocada para %s!", day.Label()), nil)
}

// Remove handles DELETE /api/weekly/:day/tasks/:taskId
func (h *WeeklyHandler) Remove(c *gin.Context) {
	day, ok := h.day(c, "weekly_remove")
	if !ok {
		return
	}
	if err := h.weekly.Remove(c.Request.Context(), day, c.Param("taskId")); err != nil {
		h.fail(c, "weekly_remove", err)
		return
	}
	h.success(c, http.StatusOK, "Etapa removida do dia!", nil)
}

// Clear handles DELETE /api/weekly
func (h *WeeklyHandler) Clear(c *gin.Context) {
	if err := h.weekly.Clear(c.Request.Context()); err != nil {
		h.fail(c, "weekly_clear", err)
		return
	}
	h.success(c, http.StatusOK, "Distribuição semanal limpa!", nil)
}

// Stats handles GET /api/weekly/stats
func (h *WeeklyHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stats": h.weekly.Stats()})
}

// Report handles GET /api/weekly/report
func (h *WeeklyHandler) Report(c *gin.Context) {
	c.String(http.StatusOK, h.weekly.Report())
}
