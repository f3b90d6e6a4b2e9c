package app

import (
	"context"
	"path/filepath"
	"testing"

	"projtrack/internal/config"
	"projtrack/internal/model"
	"projtrack/internal/views"

	"go.uber.org/zap"
)

func TestNew_SQLiteWiring(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "data", "projtrack.db")

	a, err := New(ctx, cfg, Options{Views: true}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Ready(ctx); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if err := a.Projects.LoadSample(ctx); err != nil {
		t.Fatalf("LoadSample: %v", err)
	}
	task := a.Projects.GetAllTasks()[0]
	if err := a.Weekly.Assign(ctx, model.Monday, task.ID); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	a.Close()

	reopened, err := New(ctx, cfg, Options{}, zap.NewNop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if got := len(reopened.Projects.GetAllProjects()); got != 2 {
		t.Errorf("projects after reopen = %d, want 2", got)
	}
	if day, ok := reopened.Weekly.Plan().Find(task.ID); !ok || day != model.Monday {
		t.Errorf("allocation after reopen = %q, %v", day, ok)
	}
}

func TestNewWithStore_ViewsAndPruneFollowChanges(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Storage.Backend = "memory"
	store, _, err := OpenStore(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}

	a, err := NewWithStore(ctx, cfg, store, Options{Views: true}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWithStore: %v", err)
	}
	defer a.Close()

	if err := a.Projects.LoadSample(ctx); err != nil {
		t.Fatalf("LoadSample: %v", err)
	}
	projects := a.Projects.GetAllProjects()
	doomed := projects[1]
	if err := a.Weekly.Assign(ctx, model.Friday, doomed.Tasks[0].ID); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	snap, ok := a.Views.Get(views.ViewCards)
	if !ok {
		t.Fatal("cards view missing")
	}
	if cards := snap.Data.([]views.Card); len(cards) != 2 {
		t.Errorf("cards = %d, want 2", len(cards))
	}

	if err := a.Projects.DeleteProject(ctx, doomed.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if a.Weekly.Plan().Count() != 0 {
		t.Errorf("stale allocation not pruned: %+v", a.Weekly.Plan())
	}
	snap, _ = a.Views.Get(views.ViewCards)
	if cards := snap.Data.([]views.Card); len(cards) != 1 {
		t.Errorf("cards after delete = %d, want 1", len(cards))
	}
	planner, _ := a.Views.Get(views.ViewPlanner)
	if pv := planner.Data.(views.PlannerView); pv.Stats.TotalAllocated != 0 {
		t.Errorf("planner view still counts the deleted task: %+v", pv.Stats)
	}
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = "mongo"
	if _, _, err := OpenStore(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatal("expected error")
	}
}
