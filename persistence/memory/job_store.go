package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mohitkumar/tokenflow/model"
	"github.com/mohitkumar/tokenflow/persistence"
)

var _ persistence.JobStore = new(JobStore)

// JobStore keeps jobs in process memory. Scopes stage their writes and apply
// them atomically on Commit.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
	dead map[string]*model.Job
}

func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]*model.Job),
		dead: make(map[string]*model.Job),
	}
}

func (s *JobStore) Add(ctx context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Id] = copyJob(job)
	return nil
}

func (s *JobStore) Get(ctx context.Context, id string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		return copyJob(job), nil
	}
	if job, ok := s.dead[id]; ok {
		return copyJob(job), nil
	}
	return nil, fmt.Errorf("job %s: %w", id, persistence.ErrNotFound)
}

func (s *JobStore) DeadLetters(ctx context.Context) ([]*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Job, 0, len(s.dead))
	for _, job := range s.dead {
		out = append(out, copyJob(job))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out, nil
}

func (s *JobStore) Begin(ctx context.Context) (persistence.JobScope, error) {
	return &jobScope{store: s}, nil
}

type op func(s *JobStore)

type jobScope struct {
	store *JobStore
	ops   []op
}

func (sc *jobScope) Due(ctx context.Context, now time.Time) ([]*model.Job, error) {
	sc.store.mu.Lock()
	defer sc.store.mu.Unlock()
	var out []*model.Job
	for _, job := range sc.store.jobs {
		if job.IsDue(now) {
			out = append(out, copyJob(job))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DueAt.Equal(out[j].DueAt) {
			return out[i].Id < out[j].Id
		}
		return out[i].DueAt.Before(out[j].DueAt)
	})
	return out, nil
}

func (sc *jobScope) Remove(ctx context.Context, id string) error {
	sc.ops = append(sc.ops, func(s *JobStore) {
		delete(s.jobs, id)
	})
	return nil
}

func (sc *jobScope) Save(ctx context.Context, job *model.Job) error {
	j := copyJob(job)
	sc.ops = append(sc.ops, func(s *JobStore) {
		s.jobs[j.Id] = j
	})
	return nil
}

func (sc *jobScope) DeadLetter(ctx context.Context, job *model.Job) error {
	j := copyJob(job)
	sc.ops = append(sc.ops, func(s *JobStore) {
		delete(s.jobs, j.Id)
		s.dead[j.Id] = j
	})
	return nil
}

func (sc *jobScope) Commit(ctx context.Context) error {
	sc.store.mu.Lock()
	defer sc.store.mu.Unlock()
	for _, o := range sc.ops {
		o(sc.store)
	}
	sc.ops = nil
	return nil
}

func (sc *jobScope) Rollback(ctx context.Context) {
	sc.ops = nil
}

func copyJob(job *model.Job) *model.Job {
	c := *job
	if job.Attributes != nil {
		c.Attributes = make(map[string]string, len(job.Attributes))
		for k, v := range job.Attributes {
			c.Attributes[k] = v
		}
	}
	if job.Payload != nil {
		c.Payload = make(map[string]any, len(job.Payload))
		for k, v := range job.Payload {
			c.Payload[k] = v
		}
	}
	return &c
}
