// Package kv is the key-value persistence layer. Each backend stores opaque
// byte values under string keys with last-write-wins semantics.
package kv

import (
	"context"
	"errors"
	"time"

	"projtrack/pkg/metrics"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("kv: key not found")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Instrumented records operation latency for the wrapped backend.
type Instrumented struct {
	backend string
	next    Store
}

func Instrument(backend string, next Store) *Instrumented {
	return &Instrumented{backend: backend, next: next}
}

func (s *Instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	defer s.observe("get", time.Now())
	return s.next.Get(ctx, key)
}

func (s *Instrumented) Set(ctx context.Context, key string, value []byte) error {
	defer s.observe("set", time.Now())
	return s.next.Set(ctx, key, value)
}

func (s *Instrumented) Delete(ctx context.Context, key string) error {
	defer s.observe("delete", time.Now())
	return s.next.Delete(ctx, key)
}

func (s *Instrumented) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *Instrumented) Close() error {
	return s.next.Close()
}

func (s *Instrumented) observe(op string, start time.Time) {
	metrics.RecordKVOperation(s.backend, op, time.Since(start))
}
