package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"projtrack/internal/model"
	"projtrack/pkg/kv"
)

type WeeklyRepository struct {
	store kv.Store
	key   string
}

func NewWeeklyRepository(store kv.Store, prefix string) *WeeklyRepository {
	return &WeeklyRepository{store: store, key: prefixed(prefix, KeyWeeklyData)}
}

// Load returns a plan with all seven days; unknown day keys are dropped.
func (r *WeeklyRepository) Load(ctx context.Context) (model.WeeklyPlan, error) {
	raw, err := r.store.Get(ctx, r.key)
	if errors.Is(err, kv.ErrNotFound) {
		return model.NewWeeklyPlan(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.key, err)
	}

	var plan model.WeeklyPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("decode %s: %w: %w", r.key, ErrCorrupt, err)
	}
	return plan.Normalize(), nil
}

func (r *WeeklyRepository) Save(ctx context.Context, plan model.WeeklyPlan) error {
	raw, err := json.Marshal(plan.Normalize())
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.key, err)
	}
	if err := r.store.Set(ctx, r.key, raw); err != nil {
		return fmt.Errorf("write %s: %w", r.key, err)
	}
	return nil
}
