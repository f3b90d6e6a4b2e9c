// Package project is the record store: the authoritative list of projects
// and their tasks. Every mutation is validated, persisted as a whole and
// announced on the event bus.
package project

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"projtrack/internal/apperr"
	"projtrack/internal/events"
	"projtrack/internal/model"
	"projtrack/internal/repository"
	"projtrack/internal/resolver"
	"projtrack/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Repository interface {
	Load(ctx context.Context) ([]model.Project, error)
	Save(ctx context.Context, projects []model.Project) error
}

type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

type Service struct {
	repo   Repository
	bus    Publisher
	logger *zap.Logger

	Now   func() time.Time
	NewID func() string

	mu       sync.Mutex
	projects []model.Project
	// loadErr is set when the stored list could not be decoded. Edits are
	// refused until a whole-list replacement overwrites the entry.
	loadErr error
}

func NewService(repo Repository, bus Publisher, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		bus:      bus,
		logger:   logger,
		Now:      time.Now,
		NewID:    uuid.NewString,
		projects: []model.Project{},
	}
}

// Load reads persisted projects. A backend failure aborts startup. A stored
// value that cannot be decoded is kept untouched: the service starts empty
// and refuses edits until import, restore, sample or clear replaces it.
func (s *Service) Load(ctx context.Context) error {
	projects, err := s.repo.Load(ctx)
	var loadErr error
	switch {
	case errors.Is(err, repository.ErrCorrupt):
		s.logger.Error("Stored projects are unreadable, edits disabled until replaced", zap.Error(err))
		loadErr = apperr.Corrupt(err, CorruptMessage)
		projects = []model.Project{}
	case err != nil:
		return fmt.Errorf("load projects: %w", err)
	}

	s.mu.Lock()
	s.projects = normalize(projects, s.NewID, s.Now().UTC())
	s.loadErr = loadErr
	n := len(s.projects)
	s.mu.Unlock()

	s.logger.Info("Projects loaded", zap.Int("count", n))
	return nil
}

// CorruptMessage tells the user how to recover from unreadable stored projects.
const CorruptMessage = "Os projetos salvos não puderam ser lidos. Importe uma planilha, restaure um backup ou limpe os dados para voltar a editar"

// LoadError reports the decode failure found at startup, if it has not been
// cleared by a replacement yet.
func (s *Service) LoadError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

func (s *Service) Today() model.Date {
	return model.DateOf(s.Now())
}

func (s *Service) CreateProject(ctx context.Context, in ProjectInput) (model.Project, error) {
	in.trim()
	if err := validateProject(in); err != nil {
		metrics.IncrementStoreMutation("create_project", "rejected")
		return model.Project{}, err
	}

	now := s.Now().UTC()
	p := model.Project{
		ID:        s.NewID(),
		Name:      in.Name,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		AutoDates: !in.hasDates(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.Tasks = s.buildTasks(in.Tasks, nil)
	applyAutoDates(&p)

	err := s.mutate(ctx, "create_project", func(projects []model.Project) ([]model.Project, error) {
		return append(projects, p), nil
	}, events.ProjectsChangedPayload{Reason: "create", ProjectID: p.ID})
	if err != nil {
		return model.Project{}, err
	}
	return p.Clone(), nil
}

// UpdateProject replaces name, dates and tasks. Tasks whose input has no
// status keep their previous manual status, matched by id.
func (s *Service) UpdateProject(ctx context.Context, id string, in ProjectInput) (model.Project, error) {
	in.trim()
	if err := validateProject(in); err != nil {
		metrics.IncrementStoreMutation("update_project", "rejected")
		return model.Project{}, err
	}

	var updated model.Project
	err := s.mutate(ctx, "update_project", func(projects []model.Project) ([]model.Project, error) {
		i := indexOf(projects, id)
		if i < 0 {
			return nil, apperr.NotFound("Projeto não encontrado: %s", id)
		}
		p := projects[i]
		p.Name = in.Name
		p.StartDate = in.StartDate
		p.EndDate = in.EndDate
		p.AutoDates = !in.hasDates()
		p.Tasks = s.buildTasks(in.Tasks, p.Tasks)
		p.UpdatedAt = s.Now().UTC()
		applyAutoDates(&p)

		projects[i] = p
		updated = p
		return projects, nil
	}, events.ProjectsChangedPayload{Reason: "update", ProjectID: id})
	if err != nil {
		return model.Project{}, err
	}
	return updated.Clone(), nil
}

func (s *Service) DeleteProject(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete_project", func(projects []model.Project) ([]model.Project, error) {
		i := indexOf(projects, id)
		if i < 0 {
			return nil, apperr.NotFound("Projeto não encontrado: %s", id)
		}
		return append(projects[:i], projects[i+1:]...), nil
	}, events.ProjectsChangedPayload{Reason: "delete", ProjectID: id})
}

func (s *Service) CreateTask(ctx context.Context, projectID string, in TaskInput) (model.Task, error) {
	in.trim()
	var created model.Task
	err := s.mutate(ctx, "create_task", func(projects []model.Project) ([]model.Project, error) {
		i := indexOf(projects, projectID)
		if i < 0 {
			return nil, apperr.NotFound("Projeto não encontrado: %s", projectID)
		}
		p := projects[i]
		if err := validateTask(len(p.Tasks)+1, in); err != nil {
			return nil, err
		}
		if !p.AutoDates && !model.Within(in.StartDate, in.EndDate, p.StartDate, p.EndDate) {
			return nil, apperr.Validation("Etapa %d deve estar dentro do período do projeto", len(p.Tasks)+1)
		}

		in.ID = ""
		created = s.buildTasks([]TaskInput{in}, nil)[0]
		p.Tasks = append(p.Tasks, created)
		p.UpdatedAt = s.Now().UTC()
		applyAutoDates(&p)
		projects[i] = p
		return projects, nil
	}, events.ProjectsChangedPayload{Reason: "create_task", ProjectID: projectID})
	if err != nil {
		return model.Task{}, err
	}
	return created, nil
}

// UpdateTaskStatus sets or, with an empty status, clears the manual override.
func (s *Service) UpdateTaskStatus(ctx context.Context, projectID, taskID string, status model.Status) error {
	if err := validateStatus(status); err != nil {
		return err
	}
	return s.updateTask(ctx, "update_task_status", projectID, taskID, func(_ model.Project, t *model.Task) error {
		t.Status = status
		return nil
	})
}

func (s *Service) UpdateTaskProgress(ctx context.Context, projectID, taskID string, progress int) error {
	if err := validateProgress(progress); err != nil {
		return err
	}
	return s.updateTask(ctx, "update_task_progress", projectID, taskID, func(_ model.Project, t *model.Task) error {
		t.Progress = progress
		return nil
	})
}

// UpdateTaskDates moves a task, as a Gantt drag does. The new range must be
// valid and, unless the project follows its tasks, inside the project range.
func (s *Service) UpdateTaskDates(ctx context.Context, projectID, taskID string, start, end model.Date) error {
	if !model.ValidRange(start, end) {
		return apperr.Validation("Datas da etapa são inválidas")
	}
	return s.updateTask(ctx, "update_task_dates", projectID, taskID, func(p model.Project, t *model.Task) error {
		if !p.AutoDates && !model.Within(start, end, p.StartDate, p.EndDate) {
			return apperr.Validation("Etapa deve estar dentro do período do projeto")
		}
		t.StartDate = start
		t.EndDate = end
		return nil
	})
}

func (s *Service) UpdateProjectStatus(ctx context.Context, projectID string, status model.Status) error {
	if err := validateStatus(status); err != nil {
		return err
	}
	return s.mutate(ctx, "update_project_status", func(projects []model.Project) ([]model.Project, error) {
		i := indexOf(projects, projectID)
		if i < 0 {
			return nil, apperr.NotFound("Projeto não encontrado: %s", projectID)
		}
		projects[i].Status = status
		projects[i].UpdatedAt = s.Now().UTC()
		return projects, nil
	}, events.ProjectsChangedPayload{Reason: "update_project_status", ProjectID: projectID})
}

func (s *Service) updateTask(ctx context.Context, op, projectID, taskID string, fn func(p model.Project, t *model.Task) error) error {
	return s.mutate(ctx, op, func(projects []model.Project) ([]model.Project, error) {
		i := indexOf(projects, projectID)
		if i < 0 {
			return nil, apperr.NotFound("Projeto não encontrado: %s", projectID)
		}
		p := projects[i]
		j := p.TaskIndex(taskID)
		if j < 0 {
			return nil, apperr.NotFound("Etapa não encontrada: %s", taskID)
		}
		if err := fn(p, &p.Tasks[j]); err != nil {
			return nil, err
		}
		p.UpdatedAt = s.Now().UTC()
		applyAutoDates(&p)
		projects[i] = p
		return projects, nil
	}, events.ProjectsChangedPayload{Reason: op, ProjectID: projectID, TaskIDs: []string{taskID}})
}

// ReplaceAll installs a whole project list, as import, restore and sample
// data do. Missing ids and timestamps are filled in.
func (s *Service) ReplaceAll(ctx context.Context, projects []model.Project, reason string) error {
	next := normalize(model.CloneProjects(projects), s.NewID, s.Now().UTC())
	return s.apply(ctx, "replace_all", true, func([]model.Project) ([]model.Project, error) {
		return next, nil
	}, events.ProjectsChangedPayload{Reason: reason})
}

func (s *Service) Clear(ctx context.Context) error {
	return s.ReplaceAll(ctx, []model.Project{}, "clear")
}

func (s *Service) LoadSample(ctx context.Context) error {
	return s.ReplaceAll(ctx, SampleProjects(s.NewID, s.Now().UTC()), "sample")
}

func (s *Service) GetProject(id string) (model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.projects, id)
	if i < 0 {
		return model.Project{}, apperr.NotFound("Projeto não encontrado: %s", id)
	}
	return s.projects[i].Clone(), nil
}

func (s *Service) GetAllProjects() []model.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneProjects(s.projects)
}

func (s *Service) GetAllTasks() []model.FlatTask {
	return model.Flatten(s.GetAllProjects())
}

// FilterProjects matches name and responsible by case-insensitive substring
// and status against the effective project status.
func (s *Service) FilterProjects(f Filter) []model.Project {
	today := s.Today()
	name := strings.ToLower(strings.TrimSpace(f.Name))
	responsible := strings.ToLower(strings.TrimSpace(f.Responsible))

	out := []model.Project{}
	for _, p := range s.GetAllProjects() {
		if name != "" && !strings.Contains(strings.ToLower(p.Name), name) {
			continue
		}
		if responsible != "" && !hasResponsible(p, responsible) {
			continue
		}
		if f.Status != "" && resolver.ProjectStatus(p, today) != f.Status {
			continue
		}
		out = append(out, p)
	}
	return out
}

// mutate applies fn to a copy, persists it and only then swaps it in. The
// change event is published after the lock is released.
func (s *Service) mutate(ctx context.Context, op string, fn func([]model.Project) ([]model.Project, error), payload events.ProjectsChangedPayload) error {
	return s.apply(ctx, op, false, fn, payload)
}

// apply runs fn on a copy, persists the result and swaps it in. Only a
// replacement may overwrite a stored value that failed to decode.
func (s *Service) apply(ctx context.Context, op string, replace bool, fn func([]model.Project) ([]model.Project, error), payload events.ProjectsChangedPayload) error {
	s.mu.Lock()
	if s.loadErr != nil && !replace {
		err := s.loadErr
		s.mu.Unlock()
		metrics.IncrementStoreMutation(op, "rejected")
		return err
	}
	next, err := fn(model.CloneProjects(s.projects))
	if err != nil {
		s.mu.Unlock()
		metrics.IncrementStoreMutation(op, "rejected")
		return err
	}
	if err := s.repo.Save(ctx, next); err != nil {
		s.mu.Unlock()
		metrics.IncrementStoreMutation(op, "error")
		s.logger.Error("Failed to persist projects", zap.String("op", op), zap.Error(err))
		return apperr.Storage(fmt.Errorf("%s: %w", op, err))
	}
	s.projects = next
	if replace && s.loadErr != nil {
		s.logger.Info("Unreadable stored projects replaced", zap.String("op", op))
		s.loadErr = nil
	}
	s.mu.Unlock()

	metrics.IncrementStoreMutation(op, "ok")
	s.logger.Info("Projects changed", zap.String("op", op), zap.String("project_id", payload.ProjectID))

	if err := s.bus.Publish(ctx, events.TopicProjectsChanged, payload); err != nil {
		s.logger.Error("Failed to publish projects.changed", zap.String("op", op), zap.Error(err))
	}
	return nil
}

func (s *Service) buildTasks(in []TaskInput, previous []model.Task) []model.Task {
	prev := make(map[string]model.Task, len(previous))
	for _, t := range previous {
		prev[t.ID] = t
	}

	out := make([]model.Task, 0, len(in))
	for _, ti := range in {
		t := model.Task{
			ID:          ti.ID,
			Name:        ti.Name,
			Responsible: ti.Responsible,
			StartDate:   ti.StartDate,
			EndDate:     ti.EndDate,
			Status:      ti.Status,
		}
		old, existed := prev[ti.ID]
		if t.ID == "" {
			t.ID = s.NewID()
		}
		if t.Status == "" && existed {
			t.Status = old.Status
		}
		switch {
		case ti.Progress != nil:
			t.Progress = *ti.Progress
		case existed:
			t.Progress = old.Progress
		}
		out = append(out, t)
	}
	return out
}

func applyAutoDates(p *model.Project) {
	if !p.AutoDates {
		return
	}
	if start, end, ok := p.TaskSpan(); ok {
		p.StartDate, p.EndDate = start, end
	}
}

func normalize(projects []model.Project, newID func() string, now time.Time) []model.Project {
	if projects == nil {
		return []model.Project{}
	}
	for i := range projects {
		p := &projects[i]
		if p.ID == "" {
			p.ID = newID()
		}
		if p.Tasks == nil {
			p.Tasks = []model.Task{}
		}
		for j := range p.Tasks {
			if p.Tasks[j].ID == "" {
				p.Tasks[j].ID = newID()
			}
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = p.CreatedAt
		}
		applyAutoDates(p)
	}
	return projects
}

func indexOf(projects []model.Project, id string) int {
	for i, p := range projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func hasResponsible(p model.Project, needle string) bool {
	for _, t := range p.Tasks {
		if strings.Contains(strings.ToLower(t.Responsible), needle) {
			return true
		}
	}
	return false
}
