package httpserver

import (
	"context"
	"net/http"
	"time"

	"projtrack/internal/api"
	"projtrack/internal/app"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(a *app.App) *Router {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(TraceMiddleware())
	r.Use(LoggingMiddleware(a.Logger))
	r.Use(cors.New(corsConfig(a.Config.CORS.AllowOrigins)))

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if err := a.Ready(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "storage_not_ready", "error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	projects := api.NewProjectHandler(a.Projects, a.Weekly, a.Notifier)
	weekly := api.NewWeeklyHandler(a.Weekly, a.Notifier)
	reports := api.NewReportHandler(a.Projects, a.Views, a.Notifier)
	transfer := api.NewTransferHandler(a.Transfer, a.Notifier)

	g := r.Group("/api")
	if a.Config.JWT.Secret != "" {
		g.Use(AuthMiddleware(a.Config.JWT.Secret))
	}
	{
		g.GET("/projects", projects.ListProjects)
		g.POST("/projects", projects.CreateProject)
		g.GET("/projects/:id", projects.GetProject)
		g.PUT("/projects/:id", projects.UpdateProject)
		g.DELETE("/projects/:id", projects.DeleteProject)
		g.PUT("/projects/:id/status", projects.UpdateProjectStatus)
		g.POST("/projects/:id/tasks", projects.CreateTask)
		g.PUT("/projects/:id/tasks/:taskId/status", projects.UpdateTaskStatus)
		g.PUT("/projects/:id/tasks/:taskId/dates", projects.UpdateTaskDates)
		g.PUT("/projects/:id/tasks/:taskId/progress", projects.UpdateTaskProgress)
		g.GET("/tasks", projects.ListTasks)
		g.POST("/sample", projects.LoadSample)
		g.DELETE("/data", projects.ClearAll)

		g.GET("/weekly", weekly.GetPlanner)
		g.DELETE("/weekly", weekly.Clear)
		g.GET("/weekly/stats", weekly.Stats)
		g.GET("/weekly/report", weekly.Report)
		g.POST("/weekly/:day/tasks", weekly.Assign)
		g.DELETE("/weekly/:day/tasks/:taskId", weekly.Remove)

		g.GET("/analytics", reports.Analytics)
		g.GET("/timeline", reports.Timeline)
		g.GET("/gantt", reports.Gantt)
		g.GET("/views", reports.ListViews)
		g.GET("/views/:name", reports.GetView)

		g.POST("/import", transfer.Import)
		g.GET("/export", transfer.Export)
		g.GET("/template", transfer.Template)
		g.GET("/backup", transfer.Backup)
		g.POST("/restore", transfer.Restore)
	}

	return &Router{Engine: r}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Trace-ID"},
		ExposeHeaders: []string{"Content-Disposition", "X-Trace-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
