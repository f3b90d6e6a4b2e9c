package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"projtrack/internal/model"
	"projtrack/pkg/kv"
)

// ProjectRepository persists the whole project array as one JSON value.
type ProjectRepository struct {
	store kv.Store
	key   string
}

func NewProjectRepository(store kv.Store, prefix string) *ProjectRepository {
	return &ProjectRepository{store: store, key: prefixed(prefix, KeyProjects)}
}

// Load returns an empty slice when nothing has been saved yet.
func (r *ProjectRepository) Load(ctx context.Context) ([]model.Project, error) {
	raw, err := r.store.Get(ctx, r.key)
	if errors.Is(err, kv.ErrNotFound) {
		return []model.Project{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.key, err)
	}

	var projects []model.Project
	if err := json.Unmarshal(raw, &projects); err != nil {
		return nil, fmt.Errorf("decode %s: %w: %w", r.key, ErrCorrupt, err)
	}
	if projects == nil {
		projects = []model.Project{}
	}
	return projects, nil
}

func (r *ProjectRepository) Save(ctx context.Context, projects []model.Project) error {
	if projects == nil {
		projects = []model.Project{}
	}
	raw, err := json.Marshal(projects)
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.key, err)
	}
	if err := r.store.Set(ctx, r.key, raw); err != nil {
		return fmt.Errorf("write %s: %w", r.key, err)
	}
	return nil
}
