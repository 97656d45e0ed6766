// Package persistencetest holds behaviour checks shared by every store
// implementation.
package persistencetest

import (
	"context"
	"testing"
	"time"

	"github.com/mohitkumar/tokenflow/model"
	"github.com/mohitkumar/tokenflow/persistence"
	"github.com/stretchr/testify/require"
)

func job(id string, dueAt time.Time) *model.Job {
	return &model.Job{
		Id:          id,
		InstanceRef: "inst-" + id,
		Kind:        model.JOB_KIND_TIMER,
		DueAt:       dueAt,
		State:       model.JOB_SCHEDULED,
		Attributes:  map[string]string{"k": "v"},
		CreatedAt:   dueAt,
	}
}

// JobStore runs the JobStore contract against a fresh store from newStore.
func JobStore(t *testing.T, newStore func(t *testing.T) persistence.JobStore) {
	for scenario, fn := range map[string]func(t *testing.T, store persistence.JobStore){
		"due jobs in order":       testDueOrder,
		"scope commit":            testCommit,
		"scope rollback":          testRollback,
		"dead letter":             testDeadLetter,
		"get missing":             testGetMissing,
		"save reschedules future": testReschedule,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, newStore(t))
		})
	}
}

func testDueOrder(t *testing.T, store persistence.JobStore) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond)
	require.NoError(t, store.Add(ctx, job("late", now.Add(-time.Second))))
	require.NoError(t, store.Add(ctx, job("early", now.Add(-time.Minute))))
	require.NoError(t, store.Add(ctx, job("future", now.Add(time.Hour))))

	scope, err := store.Begin(ctx)
	require.NoError(t, err)
	due, err := scope.Due(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	require.Equal(t, "early", due[0].Id)
	require.Equal(t, "late", due[1].Id)
	require.Equal(t, "v", due[0].Attributes["k"])
	require.NoError(t, scope.Commit(ctx))
}

func testCommit(t *testing.T, store persistence.JobStore) {
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, store.Add(ctx, job("a", now.Add(-time.Second))))
	require.NoError(t, store.Add(ctx, job("b", now.Add(-time.Second))))

	scope, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, scope.Remove(ctx, "a"))

	_, err = store.Get(ctx, "a")
	require.NoError(t, err, "writes are not visible before commit")

	require.NoError(t, scope.Commit(ctx))
	_, err = store.Get(ctx, "a")
	require.ErrorIs(t, err, persistence.ErrNotFound)

	scope, err = store.Begin(ctx)
	require.NoError(t, err)
	due, err := scope.Due(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "b", due[0].Id)
	require.NoError(t, scope.Commit(ctx))
}

func testRollback(t *testing.T, store persistence.JobStore) {
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, store.Add(ctx, job("a", now.Add(-time.Second))))

	scope, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, scope.Remove(ctx, "a"))
	scope.Rollback(ctx)
	require.NoError(t, scope.Commit(ctx))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "inst-a", got.InstanceRef)
}

func testDeadLetter(t *testing.T, store persistence.JobStore) {
	ctx := context.Background()
	now := time.Now()
	j := job("a", now.Add(-time.Second))
	require.NoError(t, store.Add(ctx, j))

	scope, err := store.Begin(ctx)
	require.NoError(t, err)
	j.State = model.JOB_DEAD_LETTERED
	j.LastError = "boom"
	require.NoError(t, scope.DeadLetter(ctx, j))
	require.NoError(t, scope.Commit(ctx))

	scope, err = store.Begin(ctx)
	require.NoError(t, err)
	due, err := scope.Due(ctx, now)
	require.NoError(t, err)
	require.Empty(t, due)

	dead, err := store.DeadLetters(ctx)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	require.Equal(t, model.JOB_DEAD_LETTERED, dead[0].State)
	require.Equal(t, "boom", dead[0].LastError)

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, model.JOB_DEAD_LETTERED, got.State)
}

func testGetMissing(t *testing.T, store persistence.JobStore) {
	_, err := store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, persistence.ErrNotFound)
}

func testReschedule(t *testing.T, store persistence.JobStore) {
	ctx := context.Background()
	now := time.Now()
	j := job("a", now.Add(-time.Second))
	require.NoError(t, store.Add(ctx, j))

	scope, err := store.Begin(ctx)
	require.NoError(t, err)
	j.DueAt = now.Add(time.Hour)
	j.RetryCount = 1
	j.State = model.JOB_FAILED
	require.NoError(t, scope.Save(ctx, j))
	require.NoError(t, scope.Commit(ctx))

	scope, err = store.Begin(ctx)
	require.NoError(t, err)
	due, err := scope.Due(ctx, now)
	require.NoError(t, err)
	require.Empty(t, due)
	due, err = scope.Due(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, 1, due[0].RetryCount)
	require.Equal(t, model.JOB_FAILED, due[0].State)
}

// DefinitionStore runs the DefinitionStore contract.
func DefinitionStore(t *testing.T, store persistence.DefinitionStore) {
	ctx := context.Background()
	require.NoError(t, store.SaveProcess(ctx, "b", []byte("<process id=\"b\"/>")))
	require.NoError(t, store.SaveProcess(ctx, "a", []byte("<process id=\"a\"/>")))
	src, err := store.GetProcess(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "<process id=\"a\"/>", string(src))
	ids, err := store.ListProcesses(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, ids)
	_, err = store.GetProcess(ctx, "c")
	require.ErrorIs(t, err, persistence.ErrNotFound)

	require.NoError(t, store.SaveDecision(ctx, "ageGroup", []byte("<definitions/>")))
	src, err = store.GetDecision(ctx, "ageGroup")
	require.NoError(t, err)
	require.Equal(t, "<definitions/>", string(src))
	_, err = store.GetDecision(ctx, "other")
	require.ErrorIs(t, err, persistence.ErrNotFound)
}

// InstanceStore runs the InstanceStore contract.
func InstanceStore(t *testing.T, store persistence.InstanceStore) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	rec := &model.InstanceRecord{
		Id:        "inst-1",
		ProcessId: "order",
		State:     model.INSTANCE_COMPLETED,
		Trace:     []string{"StartEvent: start"},
		Variables: map[string]any{"result": "adult"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.SaveInstance(ctx, rec))
	got, err := store.GetInstance(ctx, "inst-1")
	require.NoError(t, err)
	require.Equal(t, rec.ProcessId, got.ProcessId)
	require.Equal(t, rec.Trace, got.Trace)
	require.Equal(t, "adult", got.Variables["result"])
	require.True(t, now.Equal(got.CreatedAt))

	_, err = store.GetInstance(ctx, "inst-2")
	require.ErrorIs(t, err, persistence.ErrNotFound)
}
