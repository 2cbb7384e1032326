package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"backoffice/internal/core"
)

// MemoryStore implements JobStore and StateStore in process. It backs the
// memory export backend and tests.
type MemoryStore struct {
	mu    sync.Mutex
	jobs  map[string]core.ExportJob
	state map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: map[string]core.ExportJob{}, state: map[string]string{}}
}

func (m *MemoryStore) CreateJob(_ context.Context, job core.ExportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	job.Status = core.JobPending
	job.CreatedAt, job.UpdatedAt = now, now
	m.jobs[job.ID] = job
	return nil
}

func (m *MemoryStore) GetJob(_ context.Context, id string) (core.ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return core.ExportJob{}, core.ErrJobNotFound
	}
	return job, nil
}

func (m *MemoryStore) PendingJobs(_ context.Context, limit int) ([]core.ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.ExportJob
	for _, j := range m.jobs {
		if j.Status == core.JobPending {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].ID < out[k].ID
		}
		return out[i].CreatedAt.Before(out[k].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) MarkJobDone(_ context.Context, id, sheetRef string) error {
	return m.finish(id, core.JobDone, sheetRef, "")
}

func (m *MemoryStore) MarkJobFailed(_ context.Context, id, reason string) error {
	return m.finish(id, core.JobFailed, "", reason)
}

func (m *MemoryStore) RetryJob(_ context.Context, id, reason string) error {
	return m.finish(id, core.JobPending, "", reason)
}

func (m *MemoryStore) finish(id string, status core.JobStatus, ref, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return core.ErrJobNotFound
	}
	job.Status, job.SheetRef, job.Error = status, ref, reason
	job.Attempts++
	job.UpdatedAt = time.Now().UTC()
	m.jobs[id] = job
	return nil
}

func (m *MemoryStore) GetState(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.state[key]
	return v, ok, nil
}

func (m *MemoryStore) SetState(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[key] = value
	return nil
}
