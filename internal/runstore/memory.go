package runstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dusk-indust/bizdoc/internal/orchestrator"
)

// Compile-time check.
var _ Store = (*MemStore)(nil)

// MemStore keeps runs in process memory. It is used by the CLI and tests.
type MemStore struct {
	mu     sync.RWMutex
	runs   map[uuid.UUID]*Run
	events map[uuid.UUID][]Event
	now    func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		runs:   make(map[uuid.UUID]*Run),
		events: make(map[uuid.UUID][]Event),
		now:    time.Now,
	}
}

func (s *MemStore) Create(_ context.Context, in orchestrator.Input) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := newRun(in, s.now())
	s.runs[r.ID] = r
	cp := *r
	return &cp, nil
}

func (s *MemStore) Get(_ context.Context, id uuid.UUID) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemStore) AppendEvent(_ context.Context, id uuid.UUID, ev orchestrator.ProgressEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return ErrNotFound
	}
	now := s.now()
	s.events[id] = append(s.events[id], Event{Seq: len(s.events[id]), At: now, ProgressEvent: ev})
	r.observe(ev, now)
	return nil
}

func (s *MemStore) Complete(_ context.Context, id uuid.UUID, res *orchestrator.Result) error {
	return s.update(id, func(r *Run, now time.Time) { r.complete(res, now) })
}

func (s *MemStore) Fail(_ context.Context, id uuid.UUID, runErr error) error {
	return s.update(id, func(r *Run, now time.Time) { r.fail(runErr, now) })
}

func (s *MemStore) Events(_ context.Context, id uuid.UUID, from int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.runs[id]; !ok {
		return nil, ErrNotFound
	}
	log := s.events[id]
	if from < 0 {
		from = 0
	}
	if from >= len(log) {
		return nil, nil
	}
	out := make([]Event, len(log)-from)
	copy(out, log[from:])
	return out, nil
}

func (s *MemStore) update(id uuid.UUID, fn func(*Run, time.Time)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return ErrNotFound
	}
	fn(r, s.now())
	return nil
}
