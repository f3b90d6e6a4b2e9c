// Package weekly manages the weekly planner: which task is assigned to which
// weekday. Allocations hold task ids only and are resolved against the live
// task list on every read.
package weekly

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"projtrack/internal/apperr"
	"projtrack/internal/events"
	"projtrack/internal/model"
	"projtrack/internal/repository"
	"projtrack/pkg/metrics"

	"go.uber.org/zap"
)

type Repository interface {
	Load(ctx context.Context) (model.WeeklyPlan, error)
	Save(ctx context.Context, plan model.WeeklyPlan) error
}

// TaskSource is the record store side the planner reads from.
type TaskSource interface {
	GetAllTasks() []model.FlatTask
	Today() model.Date
}

type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

type Service struct {
	repo   Repository
	tasks  TaskSource
	bus    Publisher
	logger *zap.Logger

	Now func() time.Time

	mu   sync.Mutex
	plan model.WeeklyPlan
	// loadErr is set when the stored plan could not be decoded; only Replace
	// (import, restore, clear) may overwrite it.
	loadErr error
}

// CorruptMessage tells the user how to recover from an unreadable stored plan.
const CorruptMessage = "A distribuição semanal salva não pôde ser lida. Importe uma planilha, restaure um backup ou limpe a semana para voltar a editar"

// errUnchanged aborts a mutation without writing or publishing.
var errUnchanged = errors.New("weekly plan unchanged")

func NewService(repo Repository, tasks TaskSource, bus Publisher, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		tasks:  tasks,
		bus:    bus,
		logger: logger,
		Now:    time.Now,
		plan:   model.NewWeeklyPlan(),
	}
}

// Load reads the persisted plan. A backend failure aborts startup; an
// undecodable value leaves the service empty and read-only until Replace.
func (s *Service) Load(ctx context.Context) error {
	plan, err := s.repo.Load(ctx)
	var loadErr error
	switch {
	case errors.Is(err, repository.ErrCorrupt):
		s.logger.Error("Stored weekly plan is unreadable, edits disabled until replaced", zap.Error(err))
		loadErr = apperr.Corrupt(err, CorruptMessage)
		plan = model.NewWeeklyPlan()
	case err != nil:
		return fmt.Errorf("load weekly plan: %w", err)
	}

	s.mu.Lock()
	s.plan = plan.Normalize()
	s.loadErr = loadErr
	n := s.plan.Count()
	s.mu.Unlock()

	metrics.SetWeeklyAllocated(n)
	s.logger.Info("Weekly plan loaded", zap.Int("allocated", n))
	return nil
}

func (s *Service) LoadError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// Assign allocates a task to a day. A task already allocated anywhere is a
// conflict and the existing allocation is kept.
func (s *Service) Assign(ctx context.Context, day model.Weekday, taskID string) error {
	if !day.Valid() {
		return apperr.Validation("Dia inválido: %s", day)
	}
	return s.mutate(ctx, "weekly_assign", func(plan model.WeeklyPlan) error {
		// checked under the lock so a concurrent prune cannot miss this id
		if !s.taskExists(taskID) {
			return apperr.NotFound("Etapa não encontrada: %s", taskID)
		}
		if current, ok := plan.Find(taskID); ok {
			return apperr.Conflict("Esta etapa já está alocada em outro dia! (%s)", current.Label())
		}
		plan[day] = append(plan[day], model.Allocation{TaskID: taskID, AssignedAt: s.Now().UTC()})
		return nil
	}, events.WeeklyChangedPayload{Reason: "assign", Day: string(day), TaskID: taskID})
}

func (s *Service) Remove(ctx context.Context, day model.Weekday, taskID string) error {
	if !day.Valid() {
		return apperr.Validation("Dia inválido: %s", day)
	}

	return s.mutate(ctx, "weekly_remove", func(plan model.WeeklyPlan) error {
		kept := plan[day][:0]
		found := false
		for _, a := range plan[day] {
			if a.TaskID == taskID {
				found = true
				continue
			}
			kept = append(kept, a)
		}
		if !found {
			return apperr.NotFound("Etapa %s não está alocada em %s", taskID, day.Label())
		}
		plan[day] = kept
		return nil
	}, events.WeeklyChangedPayload{Reason: "remove", Day: string(day), TaskID: taskID})
}

func (s *Service) Clear(ctx context.Context) error {
	return s.Replace(ctx, model.NewWeeklyPlan(), "clear")
}

// Replace installs a whole plan. A task listed on several days keeps only
// its first allocation.
func (s *Service) Replace(ctx context.Context, plan model.WeeklyPlan, reason string) error {
	next := dedupe(plan.Normalize())
	return s.apply(ctx, "weekly_replace", true, func(p model.WeeklyPlan) error {
		for _, d := range model.Weekdays {
			p[d] = next[d]
		}
		return nil
	}, events.WeeklyChangedPayload{Reason: reason})
}

// Prune drops allocations whose task no longer exists. Liveness is read
// under the plan lock, so an allocation committed before the prune always
// sees its task. Nothing is written when every reference is still live.
func (s *Service) Prune(ctx context.Context) error {
	return s.mutate(ctx, "weekly_prune", func(plan model.WeeklyPlan) error {
		live := make(map[string]struct{})
		for _, t := range s.tasks.GetAllTasks() {
			live[t.ID] = struct{}{}
		}

		stale := 0
		for _, d := range model.Weekdays {
			kept := make([]model.Allocation, 0, len(plan[d]))
			for _, a := range plan[d] {
				if _, ok := live[a.TaskID]; ok {
					kept = append(kept, a)
					continue
				}
				stale++
			}
			plan[d] = kept
		}
		if stale == 0 {
			return errUnchanged
		}
		s.logger.Info("Pruning stale weekly allocations", zap.Int("count", stale))
		return nil
	}, events.WeeklyChangedPayload{Reason: "prune"})
}

// HandleProjectsChanged is the bus handler keeping the plan consistent with
// the record store.
func (s *Service) HandleProjectsChanged(ctx context.Context, _ events.Event) error {
	return s.Prune(ctx)
}

// Plan returns a copy of the raw allocations.
func (s *Service) Plan() model.WeeklyPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan.Clone()
}

func (s *Service) mutate(ctx context.Context, op string, fn func(model.WeeklyPlan) error, payload events.WeeklyChangedPayload) error {
	return s.apply(ctx, op, false, fn, payload)
}

// apply runs fn on a copy under the lock, persists it and swaps it in. fn
// may return errUnchanged to skip the write.
func (s *Service) apply(ctx context.Context, op string, replace bool, fn func(model.WeeklyPlan) error, payload events.WeeklyChangedPayload) error {
	s.mu.Lock()
	next := s.plan.Clone()
	err := fn(next)
	if errors.Is(err, errUnchanged) {
		s.mu.Unlock()
		return nil
	}
	if err == nil && s.loadErr != nil && !replace {
		err = s.loadErr
	}
	if err != nil {
		s.mu.Unlock()
		metrics.IncrementStoreMutation(op, "rejected")
		return err
	}
	if err := s.repo.Save(ctx, next); err != nil {
		s.mu.Unlock()
		metrics.IncrementStoreMutation(op, "error")
		s.logger.Error("Failed to persist weekly plan", zap.String("op", op), zap.Error(err))
		return apperr.Storage(fmt.Errorf("%s: %w", op, err))
	}
	s.plan = next
	if replace {
		s.loadErr = nil
	}
	n := next.Count()
	s.mu.Unlock()

	metrics.IncrementStoreMutation(op, "ok")
	metrics.SetWeeklyAllocated(n)

	if err := s.bus.Publish(ctx, events.TopicWeeklyChanged, payload); err != nil {
		s.logger.Error("Failed to publish weekly.changed", zap.String("op", op), zap.Error(err))
	}
	return nil
}

func (s *Service) taskExists(id string) bool {
	for _, t := range s.tasks.GetAllTasks() {
		if t.ID == id {
			return true
		}
	}
	return false
}

func dedupe(plan model.WeeklyPlan) model.WeeklyPlan {
	seen := make(map[string]struct{})
	for _, d := range model.Weekdays {
		kept := make([]model.Allocation, 0, len(plan[d]))
		for _, a := range plan[d] {
			if a.TaskID == "" {
				continue
			}
			if _, dup := seen[a.TaskID]; dup {
				continue
			}
			seen[a.TaskID] = struct{}{}
			kept = append(kept, a)
		}
		plan[d] = kept
	}
	return plan
}
