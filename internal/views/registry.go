// Package views keeps a cached, versioned snapshot per view and recomputes
// it whenever one of the view's topics fires on the bus.
package views

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"projtrack/internal/events"

	"go.uber.org/zap"
)

type ComputeFunc func(ctx context.Context) (any, error)

type View struct {
	Name    string
	Topics  []string
	Compute ComputeFunc
}

type Snapshot struct {
	View       string    `json:"view"`
	Version    int64     `json:"version"`
	ComputedAt time.Time `json:"computedAt"`
	Data       any       `json:"data"`
}

type Registry struct {
	bus    *events.Bus
	logger *zap.Logger
	now    func() time.Time

	mu        sync.RWMutex
	views     map[string]View
	snapshots map[string]Snapshot
	// one lock per view, held across Compute and the store, so a slower
	// recompute that read older state cannot land after a newer one
	refreshing map[string]*sync.Mutex
}

func NewRegistry(bus *events.Bus, logger *zap.Logger) *Registry {
	return &Registry{
		bus:       bus,
		logger:    logger,
		now:       time.Now,
		views:     make(map[string]View),
		snapshots: make(map[string]Snapshot),

		refreshing: make(map[string]*sync.Mutex),
	}
}

// Register computes the view once and subscribes it to its topics.
func (r *Registry) Register(ctx context.Context, v View) error {
	r.mu.Lock()
	if _, dup := r.views[v.Name]; dup {
		r.mu.Unlock()
		return fmt.Errorf("view %q already registered", v.Name)
	}
	r.views[v.Name] = v
	r.refreshing[v.Name] = &sync.Mutex{}
	r.mu.Unlock()

	for _, topic := range v.Topics {
		name := v.Name
		r.bus.Subscribe(topic, "view:"+name, func(ctx context.Context, _ events.Event) error {
			return r.Refresh(ctx, name)
		})
	}
	return r.Refresh(ctx, v.Name)
}

// Refresh recomputes one view. On failure the previous snapshot is kept.
func (r *Registry) Refresh(ctx context.Context, name string) error {
	r.mu.RLock()
	v, ok := r.views[name]
	lock := r.refreshing[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown view %q", name)
	}

	lock.Lock()
	defer lock.Unlock()

	data, err := v.Compute(ctx)
	if err != nil {
		return fmt.Errorf("compute view %s: %w", name, err)
	}

	r.mu.Lock()
	version := r.snapshots[name].Version + 1
	r.snapshots[name] = Snapshot{View: name, Version: version, ComputedAt: r.now().UTC(), Data: data}
	r.mu.Unlock()

	r.logger.Debug("View recomputed", zap.String("view", name), zap.Int64("version", version))
	return nil
}

func (r *Registry) Get(name string) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.snapshots[name]
	return s, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.views))
	for name := range r.views {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
