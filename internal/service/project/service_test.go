package project

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"projtrack/internal/apperr"
	"projtrack/internal/events"
	"projtrack/internal/model"
	"projtrack/internal/repository"
	"projtrack/pkg/kv"

	"go.uber.org/zap"
)

func d(s string) model.Date { return model.MustParseDate(s) }

type harness struct {
	svc    *Service
	store  *kv.MemoryStore
	repo   *repository.ProjectRepository
	topics []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{store: kv.NewMemoryStore()}
	h.repo = repository.NewProjectRepository(h.store, "")
	bus := events.NewBus(zap.NewNop())
	bus.Subscribe(events.TopicProjectsChanged, "recorder", func(ctx context.Context, evt events.Event) error {
		h.topics = append(h.topics, evt.Type)
		return nil
	})

	h.svc = NewService(h.repo, bus, zap.NewNop())
	h.svc.Now = func() time.Time { return time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC) }
	n := 0
	h.svc.NewID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	if err := h.svc.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return h
}

func validInput() ProjectInput {
	return ProjectInput{
		Name:      "Site",
		StartDate: d("2024-01-01"),
		EndDate:   d("2024-01-31"),
		Tasks: []TaskInput{{
			Name: "Design", Responsible: "Ana",
			StartDate: d("2024-01-01"), EndDate: d("2024-01-15"),
		}},
	}
}

func TestCreateProject_PersistsAndPublishes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p, err := h.svc.CreateProject(ctx, validInput())
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if p.ID == "" || p.Tasks[0].ID == "" {
		t.Errorf("ids not assigned: %+v", p)
	}

	stored, err := h.repo.Load(ctx)
	if err != nil {
		t.Fatalf("repo.Load: %v", err)
	}
	if len(stored) != 1 || stored[0].Name != "Site" {
		t.Errorf("persisted = %+v", stored)
	}
	if len(h.topics) != 1 {
		t.Errorf("published %d events, want 1", len(h.topics))
	}
}

func TestCreateProject_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ProjectInput)
	}{
		{"empty name", func(in *ProjectInput) { in.Name = "  " }},
		{"only start date", func(in *ProjectInput) { in.EndDate = model.Date{} }},
		{"end before start", func(in *ProjectInput) { in.StartDate, in.EndDate = in.EndDate, in.StartDate }},
		{"no tasks", func(in *ProjectInput) { in.Tasks = nil }},
		{"task without name", func(in *ProjectInput) { in.Tasks[0].Name = "" }},
		{"task without responsible", func(in *ProjectInput) { in.Tasks[0].Responsible = "" }},
		{"task with invalid range", func(in *ProjectInput) { in.Tasks[0].EndDate = d("2023-12-01") }},
		{"task outside project", func(in *ProjectInput) { in.Tasks[0].EndDate = d("2024-02-15") }},
		{"task with unknown status", func(in *ProjectInput) { in.Tasks[0].Status = "done" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			in := validInput()
			tt.mutate(&in)

			_, err := h.svc.CreateProject(context.Background(), in)
			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("err = %v, want validation", err)
			}
			if len(h.svc.GetAllProjects()) != 0 || len(h.topics) != 0 {
				t.Error("rejected create must not change state or publish")
			}
		})
	}
}

func TestCreateProject_AutoDates(t *testing.T) {
	h := newHarness(t)
	in := validInput()
	in.StartDate, in.EndDate = model.Date{}, model.Date{}
	in.Tasks = append(in.Tasks, TaskInput{
		Name: "Build", Responsible: "Bia",
		StartDate: d("2024-01-10"), EndDate: d("2024-03-01"),
	})

	p, err := h.svc.CreateProject(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if !p.AutoDates || p.StartDate.String() != "2024-01-01" || p.EndDate.String() != "2024-03-01" {
		t.Errorf("project range = %s..%s auto=%v", p.StartDate, p.EndDate, p.AutoDates)
	}
}

func TestMutation_PersistFailureLeavesMemoryUnchanged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p, err := h.svc.CreateProject(ctx, validInput())
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	h.store.FailWrites = errors.New("quota exceeded")
	h.topics = nil

	if err := h.svc.DeleteProject(ctx, p.ID); !apperr.Is(err, apperr.KindStorage) {
		t.Fatalf("DeleteProject err = %v, want storage", err)
	}
	if _, err := h.svc.CreateProject(ctx, validInput()); !apperr.Is(err, apperr.KindStorage) {
		t.Fatalf("CreateProject err = %v, want storage", err)
	}

	all := h.svc.GetAllProjects()
	if len(all) != 1 || all[0].ID != p.ID {
		t.Errorf("memory changed after failed persist: %+v", all)
	}
	if len(h.topics) != 0 {
		t.Error("failed mutation must not publish")
	}
}

func TestUpdateProject_KeepsManualStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p, _ := h.svc.CreateProject(ctx, validInput())
	taskID := p.Tasks[0].ID

	if err := h.svc.UpdateTaskStatus(ctx, p.ID, taskID, model.StatusCompleted); err != nil {
		t.Fatalf("UpdateTaskStatus: %v", err)
	}

	in := validInput()
	in.Name = "Site v2"
	in.Tasks[0].ID = taskID
	in.Tasks = append(in.Tasks, TaskInput{Name: "QA", Responsible: "Caio", StartDate: d("2024-01-16"), EndDate: d("2024-01-31")})

	updated, err := h.svc.UpdateProject(ctx, p.ID, in)
	if err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	if updated.Name != "Site v2" || updated.CreatedAt != p.CreatedAt {
		t.Errorf("updated = %+v", updated)
	}
	if updated.Tasks[0].Status != model.StatusCompleted {
		t.Errorf("manual status lost: %q", updated.Tasks[0].Status)
	}
	if updated.Tasks[1].ID == "" || updated.Tasks[1].Status != "" {
		t.Errorf("new task = %+v", updated.Tasks[1])
	}
}

func TestUpdateProject_NotFound(t *testing.T) {
	h := newHarness(t)
	if _, err := h.svc.UpdateProject(context.Background(), "missing", validInput()); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("err = %v, want not_found", err)
	}
}

func TestCreateTask(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p, _ := h.svc.CreateProject(ctx, validInput())

	task, err := h.svc.CreateTask(ctx, p.ID, TaskInput{Name: "Copy", Responsible: "Bia", StartDate: d("2024-01-20"), EndDate: d("2024-01-25")})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	got, _ := h.svc.GetProject(p.ID)
	if len(got.Tasks) != 2 || got.Tasks[1].ID != task.ID {
		t.Errorf("tasks = %+v", got.Tasks)
	}

	_, err = h.svc.CreateTask(ctx, p.ID, TaskInput{Name: "Late", Responsible: "Bia", StartDate: d("2024-01-20"), EndDate: d("2024-02-25")})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("out-of-range task err = %v", err)
	}
}

func TestUpdateTaskDates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p, _ := h.svc.CreateProject(ctx, validInput())
	taskID := p.Tasks[0].ID

	if err := h.svc.UpdateTaskDates(ctx, p.ID, taskID, d("2024-01-05"), d("2024-01-20")); err != nil {
		t.Fatalf("UpdateTaskDates: %v", err)
	}
	got, _ := h.svc.GetProject(p.ID)
	if got.Tasks[0].StartDate.String() != "2024-01-05" || got.Tasks[0].EndDate.String() != "2024-01-20" {
		t.Errorf("task dates = %s..%s", got.Tasks[0].StartDate, got.Tasks[0].EndDate)
	}

	if err := h.svc.UpdateTaskDates(ctx, p.ID, taskID, d("2024-01-20"), d("2024-01-05")); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("inverted range err = %v", err)
	}
	if err := h.svc.UpdateTaskDates(ctx, p.ID, taskID, d("2024-01-20"), d("2024-02-05")); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("out-of-project range err = %v", err)
	}
	if err := h.svc.UpdateTaskDates(ctx, p.ID, "nope", d("2024-01-05"), d("2024-01-06")); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("missing task err = %v", err)
	}
}

func TestUpdateTaskProgress(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p, _ := h.svc.CreateProject(ctx, validInput())

	if err := h.svc.UpdateTaskProgress(ctx, p.ID, p.Tasks[0].ID, 120); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("err = %v, want validation", err)
	}
	if err := h.svc.UpdateTaskProgress(ctx, p.ID, p.Tasks[0].ID, 100); err != nil {
		t.Fatalf("UpdateTaskProgress: %v", err)
	}
	got, _ := h.svc.GetProject(p.ID)
	if got.Tasks[0].Progress != 100 {
		t.Errorf("progress = %d", got.Tasks[0].Progress)
	}
}

func TestFilterProjects(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.svc.LoadSample(ctx); err != nil {
		t.Fatalf("LoadSample: %v", err)
	}

	if got := h.svc.FilterProjects(Filter{Name: "website"}); len(got) != 1 {
		t.Errorf("name filter = %d projects", len(got))
	}
	if got := h.svc.FilterProjects(Filter{Responsible: "fernanda"}); len(got) != 1 || got[0].Name != "Campanha de Marketing" {
		t.Errorf("responsible filter = %+v", got)
	}
	// today is 2024-02-01: the website project has an overdue task
	if got := h.svc.FilterProjects(Filter{Status: model.StatusOverdue}); len(got) != 1 || got[0].Name != "Desenvolvimento de Website" {
		t.Errorf("status filter = %+v", got)
	}
	if got := h.svc.FilterProjects(Filter{}); len(got) != 2 {
		t.Errorf("empty filter = %d projects", len(got))
	}
}

func TestReplaceAll_FillsIDs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	in := []model.Project{{Name: "Imported", Tasks: []model.Task{{Name: "A", Responsible: "B"}}}}

	if err := h.svc.ReplaceAll(ctx, in, "import"); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	all := h.svc.GetAllProjects()
	if all[0].ID == "" || all[0].Tasks[0].ID == "" || all[0].CreatedAt.IsZero() {
		t.Errorf("normalized = %+v", all[0])
	}
	if in[0].ID != "" {
		t.Error("caller slice must not be modified")
	}

	if err := h.svc.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if len(h.svc.GetAllProjects()) != 0 || len(h.svc.GetAllTasks()) != 0 {
		t.Error("Clear left data behind")
	}
}

func TestLoad_CorruptDataBlocksEditsUntilReplaced(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	_ = store.Set(ctx, repository.KeyProjects, []byte("[{"))
	svc := NewService(repository.NewProjectRepository(store, ""), events.NewBus(zap.NewNop()), zap.NewNop())

	if err := svc.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(svc.GetAllProjects()) != 0 {
		t.Error("expected empty store")
	}
	if !apperr.Is(svc.LoadError(), apperr.KindCorrupt) {
		t.Fatalf("LoadError = %v, want corrupt", svc.LoadError())
	}

	if _, err := svc.CreateProject(ctx, validInput()); !apperr.Is(err, apperr.KindCorrupt) {
		t.Fatalf("CreateProject err = %v, want corrupt", err)
	}
	raw, _ := store.Get(ctx, repository.KeyProjects)
	if string(raw) != "[{" {
		t.Fatalf("damaged entry was overwritten by an edit: %q", raw)
	}

	if err := svc.LoadSample(ctx); err != nil {
		t.Fatalf("LoadSample: %v", err)
	}
	if svc.LoadError() != nil {
		t.Error("replacement should clear the load error")
	}
	if _, err := svc.CreateProject(ctx, validInput()); err != nil {
		t.Errorf("CreateProject after replacement: %v", err)
	}
}

func TestLoad_BackendFailureAborts(t *testing.T) {
	store := kv.NewMemoryStore()
	store.FailReads = errors.New("connection refused")
	svc := NewService(repository.NewProjectRepository(store, ""), events.NewBus(zap.NewNop()), zap.NewNop())

	if err := svc.Load(context.Background()); err == nil {
		t.Fatal("expected Load to fail when the backend is unreachable")
	}
}

func TestGetAllProjects_ReturnsCopies(t *testing.T) {
	h := newHarness(t)
	p, _ := h.svc.CreateProject(context.Background(), validInput())

	all := h.svc.GetAllProjects()
	all[0].Tasks[0].Name = "mutated"

	got, _ := h.svc.GetProject(p.ID)
	if got.Tasks[0].Name != "Design" {
		t.Error("caller mutation leaked into the store")
	}
}
