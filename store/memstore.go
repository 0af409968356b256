// Package store provides reference collab.PipelineStore implementations:
// an in-memory map, and a YAML file on top of it for persistence across
// restarts.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"upsentryd/errcode"
	"upsentryd/pipeline"
)

// Memory is an in-memory, concurrency-safe collab.PipelineStore.
type Memory struct {
	mu        sync.RWMutex
	pipelines map[uuid.UUID]pipeline.EventPipeline
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{pipelines: make(map[uuid.UUID]pipeline.EventPipeline)}
}

func (m *Memory) List(context.Context) ([]pipeline.EventPipeline, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]pipeline.EventPipeline, 0, len(m.pipelines))
	for _, p := range m.pipelines {
		out = append(out, p)
	}
	return out, nil
}

func (m *Memory) Get(_ context.Context, id uuid.UUID) (pipeline.EventPipeline, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pipelines[id]
	if !ok {
		return pipeline.EventPipeline{}, &errcode.E{C: errcode.PipelineNotFound, Op: "store.Get", Msg: id.String()}
	}
	return p, nil
}

func (m *Memory) Put(_ context.Context, p pipeline.EventPipeline) error {
	if err := p.Validate(); err != nil {
		return &errcode.E{C: errcode.InvalidPipeline, Op: "store.Put", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pipelines[p.ID] = p
	return nil
}

func (m *Memory) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pipelines, id)
	return nil
}

func (m *Memory) MarkExecuted(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pipelines[id]
	if !ok {
		return &errcode.E{C: errcode.PipelineNotFound, Op: "store.MarkExecuted", Msg: id.String()}
	}
	t := at
	p.LastExecuted = &t
	m.pipelines[id] = p
	return nil
}
