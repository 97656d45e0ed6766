package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mohitkumar/tokenflow/model"
)

var ErrNotFound = errors.New("not found")

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) Error() string {
	return fmt.Sprintf("storage layer error %s", e.Message)
}

// JobStore holds deferred work. Every scheduler tick works inside its own
// JobScope, and changes made through the scope become visible on Commit.
type JobStore interface {
	Begin(ctx context.Context) (JobScope, error)
	Add(ctx context.Context, job *model.Job) error
	Get(ctx context.Context, id string) (*model.Job, error)
	DeadLetters(ctx context.Context) ([]*model.Job, error)
}

type JobScope interface {
	// Due returns jobs with DueAt <= now, earliest first.
	Due(ctx context.Context, now time.Time) ([]*model.Job, error)
	Remove(ctx context.Context, id string) error
	// Save stores job and reindexes it by its DueAt.
	Save(ctx context.Context, job *model.Job) error
	// DeadLetter takes job out of the due set for good.
	DeadLetter(ctx context.Context, job *model.Job) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context)
}

// DefinitionStore keeps deployed BPMN and DMN documents.
type DefinitionStore interface {
	SaveProcess(ctx context.Context, id string, source []byte) error
	GetProcess(ctx context.Context, id string) ([]byte, error)
	ListProcesses(ctx context.Context) ([]string, error)
	SaveDecision(ctx context.Context, key string, source []byte) error
	GetDecision(ctx context.Context, key string) ([]byte, error)
}

type InstanceStore interface {
	SaveInstance(ctx context.Context, rec *model.InstanceRecord) error
	GetInstance(ctx context.Context, id string) (*model.InstanceRecord, error)
}
