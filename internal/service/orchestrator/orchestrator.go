// Package orchestrator periodically re-resolves task statuses so that
// date-dependent state follows the calendar without user edits.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"projtrack/internal/events"
	"projtrack/internal/model"
	"projtrack/internal/resolver"
	"projtrack/pkg/util"

	"go.uber.org/zap"
)

type ProjectSource interface {
	GetAllProjects() []model.Project
	Today() model.Date
}

type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

type Orchestrator struct {
	projects ProjectSource
	bus      Publisher
	dedup    util.Deduper
	logger   *zap.Logger

	mu       sync.Mutex
	lastDay  model.Date
	statuses map[string]model.Status
}

func NewOrchestrator(projects ProjectSource, bus Publisher, dedup util.Deduper, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		projects: projects,
		bus:      bus,
		dedup:    dedup,
		logger:   logger,
		statuses: make(map[string]model.Status),
	}
}

type SweepResult struct {
	Date     model.Date
	Changed  int
	Overdue  int
	Rollover bool
}

// Sweep recomputes every effective status. Tasks that became overdue since
// the previous sweep publish task.overdue once per task per day; a new day
// or any status change publishes status.rollover.
func (o *Orchestrator) Sweep(ctx context.Context) (SweepResult, error) {
	today := o.projects.Today()
	projects := o.projects.GetAllProjects()

	o.mu.Lock()
	next := make(map[string]model.Status, len(o.statuses))
	res := SweepResult{Date: today}
	var newlyOverdue []events.TaskOverduePayload
	for _, p := range projects {
		for _, t := range p.Tasks {
			st := resolver.TaskStatus(t, today)
			next[t.ID] = st

			prev, seen := o.statuses[t.ID]
			if seen && prev != st {
				res.Changed++
			}
			if st == model.StatusOverdue && prev != model.StatusOverdue {
				newlyOverdue = append(newlyOverdue, events.TaskOverduePayload{
					TaskID:      t.ID,
					TaskName:    t.Name,
					ProjectID:   p.ID,
					ProjectName: p.Name,
					Responsible: t.Responsible,
					EndDate:     t.EndDate.String(),
				})
			}
		}
	}
	dayChanged := !o.lastDay.Equal(today)
	o.statuses = next
	o.lastDay = today
	o.mu.Unlock()

	for _, payload := range newlyOverdue {
		if !o.dedup.AcquireOnce(ctx, "overdue:"+payload.TaskID+":"+today.String()) {
			continue
		}
		if err := o.bus.Publish(ctx, events.TopicTaskOverdue, payload); err != nil {
			o.logger.Error("Failed to publish task.overdue event",
				zap.String("task_id", payload.TaskID),
				zap.Error(err),
			)
			continue
		}
		res.Overdue++
		o.logger.Info("Published task.overdue event",
			zap.String("task_id", payload.TaskID),
			zap.String("project", payload.ProjectName),
		)
	}

	if dayChanged || res.Changed > 0 {
		res.Rollover = true
		err := o.bus.Publish(ctx, events.TopicStatusRollover, events.StatusRolloverPayload{
			Date:    today.String(),
			Changed: res.Changed,
		})
		if err != nil {
			return res, err
		}
	}

	o.logger.Debug("Status sweep completed",
		zap.String("date", today.String()),
		zap.Int("changed", res.Changed),
		zap.Int("overdue", res.Overdue),
		zap.Bool("rollover", res.Rollover),
	)
	return res, nil
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	o.logger.Info("Starting status orchestrator", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run immediately on startup
	if _, err := o.Sweep(ctx); err != nil {
		o.logger.Error("Status sweep failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("Status orchestrator stopped")
			return
		case <-ticker.C:
			if _, err := o.Sweep(ctx); err != nil {
				o.logger.Error("Status sweep failed", zap.Error(err))
			}
		}
	}
}
