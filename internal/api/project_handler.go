package api

import (
	"fmt"
	"net/http"

	"projtrack/internal/apperr"
	"projtrack/internal/model"
	"projtrack/internal/notify"
	"projtrack/internal/service/project"
	"projtrack/internal/service/weekly"
	"projtrack/internal/views"

	"github.com/gin-gonic/gin"
)

type ProjectHandler struct {
	responder
	projects *project.Service
	weekly   *weekly.Service
}

func NewProjectHandler(projects *project.Service, weeklySvc *weekly.Service, notifier *notify.Notifier) *ProjectHandler {
	return &ProjectHandler{
		responder: responder{notifier: notifier},
		projects:  projects,
		weekly:    weeklySvc,
	}
}

// ListProjects handles GET /api/projects?name=&responsible=&status=
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	var f project.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		h.fail(c, "list_projects", apperr.Validation("Filtro inválido: %v", err))
		return
	}
	if f.Status != "" && !f.Status.Valid() {
		h.fail(c, "list_projects", apperr.Validation("Status inválido: %s", f.Status))
		return
	}

	projects := h.projects.FilterProjects(f)
	c.JSON(http.StatusOK, h.loadWarning(gin.H{
		"projects": views.BuildCards(projects, h.projects.Today()),
		"total":    len(projects),
	}, h.projects.LoadError()))
}

// GetProject handles GET /api/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	p, err := h.projects.GetProject(c.Param("id"))
	if err != nil {
		h.fail(c, "get_project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p})
}

// CreateProject handles POST /api/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var in project.ProjectInput
	if !h.bind(c, "create_project", &in) {
		return
	}
	p, err := h.projects.CreateProject(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "create_project", err)
		return
	}
	h.success(c, http.StatusCreated, "Projeto criado com sucesso!", gin.H{"project": p})
}

// UpdateProject handles PUT /api/projects/:id
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	var in project.ProjectInput
	if !h.bind(c, "update_project", &in) {
		return
	}
	p, err := h.projects.UpdateProject(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.fail(c, "update_project", err)
		return
	}
	h.success(c, http.StatusOK, "Projeto atualizado com sucesso!", gin.H{"project": p})
}

// DeleteProject handles DELETE /api/projects/:id
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	if err := h.projects.DeleteProject(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "delete_project", err)
		return
	}
	h.success(c, http.StatusOK, "Projeto excluído com sucesso!", nil)
}

// CreateTask handles POST /api/projects/:id/tasks
func (h *ProjectHandler) CreateTask(c *gin.Context) {
	var in project.TaskInput
	if !h.bind(c, "create_task", &in) {
		return
	}
	t, err := h.projects.CreateTask(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.fail(c, "create_task", err)
		return
	}
	h.success(c, http.StatusCreated, "Etapa criada com sucesso!", gin.H{"task": t})
}

type statusRequest struct {
	// empty clears the manual status
	Status model.Status `json:"status"`
}

// UpdateProjectStatus handles PUT /api/projects/:id/status
func (h *ProjectHandler) UpdateProjectStatus(c *gin.Context) {
	var req statusRequest
	if !h.bind(c, "update_project_status", &req) {
		return
	}
	if err := h.projects.UpdateProjectStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		h.fail(c, "update_project_status", err)
		return
	}
	h.success(c, http.StatusOK, "Status do projeto atualizado!", nil)
}

// UpdateTaskStatus handles PUT /api/projects/:id/tasks/:taskId/status
func (h *ProjectHandler) UpdateTaskStatus(c *gin.Context) {
	var req statusRequest
	if !h.bind(c, "update_task_status", &req) {
		return
	}
	if err := h.projects.UpdateTaskStatus(c.Request.Context(), c.Param("id"), c.Param("taskId"), req.Status); err != nil {
		h.fail(c, "update_task_status", err)
		return
	}
	h.success(c, http.StatusOK, "Status da etapa atualizado!", nil)
}

type datesRequest struct {
	StartDate model.Date `json:"startDate"`
	EndDate   model.Date `json:"endDate"`
}

// UpdateTaskDates handles PUT /api/projects/:id/tasks/:taskId/dates
func (h *ProjectHandler) UpdateTaskDates(c *gin.Context) {
	var req datesRequest
	if !h.bind(c, "update_task_dates", &req) {
		return
	}
	err := h.projects.UpdateTaskDates(c.Request.Context(), c.Param("id"), c.Param("taskId"), req.StartDate, req.EndDate)
	if err != nil {
		h.fail(c, "update_task_dates", err)
		return
	}
	h.success(c, http.StatusOK, "Datas da etapa atualizadas!", nil)
}

// UpdateTaskProgress handles PUT /api/projects/:id/tasks/:taskId/progress
func (h *ProjectHandler) UpdateTaskProgress(c *gin.Context) {
	var req struct {
		Progress int `json:"progress"`
	}
	if !h.bind(c, "update_task_progress", &req) {
		return
	}
	if err := h.projects.UpdateTaskProgress(c.Request.Context(), c.Param("id"), c.Param("taskId"), req.Progress); err != nil {
		h.fail(c, "update_task_progress", err)
		return
	}
	h.info(c, fmt.Sprintf("Progresso da etapa atualizado para %d%%", req.Progress), nil)
}

// ListTasks handles GET /api/tasks
func (h *ProjectHandler) ListTasks(c *gin.Context) {
	tasks := h.projects.GetAllTasks()
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "total": len(tasks)})
}

// LoadSample handles POST /api/sample
func (h *ProjectHandler) LoadSample(c *gin.Context) {
	if err := h.projects.LoadSample(c.Request.Context()); err != nil {
		h.fail(c, "load_sample", err)
		return
	}
	h.success(c, http.StatusOK, "Dados de exemplo criados com sucesso!", gin.H{
		"projects": len(h.projects.GetAllProjects()),
	})
}

// ClearAll handles DELETE /api/data
func (h *ProjectHandler) ClearAll(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.projects.Clear(ctx); err != nil {
		h.fail(c, "clear_all", err)
		return
	}
	if err := h.weekly.Clear(ctx); err != nil {
		h.fail(c, "clear_all", err)
		return
	}
	h.success(c, http.StatusOK, "Todos os dados foram limpos!", nil)
}
