package views

import (
	"context"
	"time"

	"projtrack/internal/events"
	"projtrack/internal/model"
	"projtrack/internal/resolver"
	"projtrack/internal/service/analytics"
	"projtrack/internal/service/timeline"
	"projtrack/internal/service/weekly"
	"projtrack/pkg/metrics"
)

const (
	ViewCards     = "cards"
	ViewTimeline  = "timeline"
	ViewGantt     = "gantt"
	ViewPlanner   = "planner"
	ViewAnalytics = "analytics"
)

type ProjectSource interface {
	GetAllProjects() []model.Project
	Today() model.Date
}

type PlannerSource interface {
	Planner() weekly.Planner
	Stats() weekly.Stats
}

type CardTask struct {
	model.Task
	Effective model.Status `json:"effectiveStatus"`
}

type Card struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	StartDate      model.Date   `json:"startDate"`
	EndDate        model.Date   `json:"endDate"`
	Status         model.Status `json:"status"`
	Progress       int          `json:"progress"`
	CompletedTasks int          `json:"completedTasks"`
	TotalTasks     int          `json:"totalTasks"`
	Tasks          []CardTask   `json:"tasks"`
}

func BuildCards(projects []model.Project, today model.Date) []Card {
	out := make([]Card, 0, len(projects))
	for _, p := range projects {
		c := Card{
			ID:         p.ID,
			Name:       p.Name,
			StartDate:  p.StartDate,
			EndDate:    p.EndDate,
			Status:     resolver.ProjectStatus(p, today),
			Progress:   resolver.CompletionPercent(p, today),
			TotalTasks: len(p.Tasks),
			Tasks:      make([]CardTask, 0, len(p.Tasks)),
		}
		for _, t := range p.Tasks {
			st := resolver.TaskStatus(t, today)
			if st == model.StatusCompleted {
				c.CompletedTasks++
			}
			c.Tasks = append(c.Tasks, CardTask{Task: t, Effective: st})
		}
		out = append(out, c)
	}
	return out
}

type PlannerView struct {
	weekly.Planner
	Stats weekly.Stats `json:"stats"`
}

type AnalyticsView struct {
	Stats  analytics.Stats  `json:"stats"`
	Report analytics.Report `json:"report"`
}

var (
	projectTopics = []string{events.TopicProjectsChanged, events.TopicStatusRollover}
	plannerTopics = []string{events.TopicProjectsChanged, events.TopicWeeklyChanged, events.TopicStatusRollover}
)

// RegisterDefaults wires the five built-in views.
func RegisterDefaults(ctx context.Context, r *Registry, projects ProjectSource, planner PlannerSource) error {
	defaults := []View{
		{
			Name:   ViewCards,
			Topics: projectTopics,
			Compute: func(context.Context) (any, error) {
				return BuildCards(projects.GetAllProjects(), projects.Today()), nil
			},
		},
		{
			Name:   ViewTimeline,
			Topics: projectTopics,
			Compute: func(context.Context) (any, error) {
				return timeline.BuildSimple(projects.GetAllProjects(), timeline.Filter{}, projects.Today()), nil
			},
		},
		{
			Name:   ViewGantt,
			Topics: projectTopics,
			Compute: func(context.Context) (any, error) {
				return timeline.BuildBars(projects.GetAllProjects(), timeline.Filter{}, projects.Today()), nil
			},
		},
		{
			Name:   ViewPlanner,
			Topics: plannerTopics,
			Compute: func(context.Context) (any, error) {
				return PlannerView{Planner: planner.Planner(), Stats: planner.Stats()}, nil
			},
		},
		{
			Name:   ViewAnalytics,
			Topics: projectTopics,
			Compute: func(context.Context) (any, error) {
				all := projects.GetAllProjects()
				stats := analytics.Compute(all, projects.Today())
				publishGauges(stats)
				return AnalyticsView{Stats: stats, Report: analytics.BuildReport(stats, time.Now())}, nil
			},
		},
	}

	for _, v := range defaults {
		if err := r.Register(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

func publishGauges(s analytics.Stats) {
	byStatus := make(map[string]int, len(s.TasksByStatus))
	for k, v := range s.TasksByStatus {
		byStatus[string(k)] = v
	}
	metrics.SetStatusCounts(byStatus, s.TotalProjects)
}
