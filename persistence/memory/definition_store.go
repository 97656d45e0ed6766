package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mohitkumar/tokenflow/model"
	"github.com/mohitkumar/tokenflow/persistence"
)

var _ persistence.DefinitionStore = new(DefinitionStore)
var _ persistence.InstanceStore = new(InstanceStore)

type DefinitionStore struct {
	mu        sync.RWMutex
	processes map[string][]byte
	decisions map[string][]byte
}

func NewDefinitionStore() *DefinitionStore {
	return &DefinitionStore{
		processes: make(map[string][]byte),
		decisions: make(map[string][]byte),
	}
}

func (s *DefinitionStore) SaveProcess(ctx context.Context, id string, source []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processes[id] = append([]byte(nil), source...)
	return nil
}

func (s *DefinitionStore) GetProcess(ctx context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.processes[id]
	if !ok {
		return nil, fmt.Errorf("process %s: %w", id, persistence.ErrNotFound)
	}
	return src, nil
}

func (s *DefinitionStore) ListProcesses(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.processes))
	for id := range s.processes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *DefinitionStore) SaveDecision(ctx context.Context, key string, source []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions[key] = append([]byte(nil), source...)
	return nil
}

func (s *DefinitionStore) GetDecision(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.decisions[key]
	if !ok {
		return nil, fmt.Errorf("decision %s: %w", key, persistence.ErrNotFound)
	}
	return src, nil
}

type InstanceStore struct {
	mu        sync.RWMutex
	instances map[string]model.InstanceRecord
}

func NewInstanceStore() *InstanceStore {
	return &InstanceStore{
		instances: make(map[string]model.InstanceRecord),
	}
}

func (s *InstanceStore) SaveInstance(ctx context.Context, rec *model.InstanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[rec.Id] = *rec
	return nil
}

func (s *InstanceStore) GetInstance(ctx context.Context, id string) (*model.InstanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.instances[id]
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", id, persistence.ErrNotFound)
	}
	return &rec, nil
}
