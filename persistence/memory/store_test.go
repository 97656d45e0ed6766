package memory

import (
	"testing"

	"github.com/mohitkumar/tokenflow/persistence"
	"github.com/mohitkumar/tokenflow/persistence/persistencetest"
)

func TestJobStore(t *testing.T) {
	persistencetest.JobStore(t, func(t *testing.T) persistence.JobStore {
		return NewJobStore()
	})
}

func TestDefinitionStore(t *testing.T) {
	persistencetest.DefinitionStore(t, NewDefinitionStore())
}

func TestInstanceStore(t *testing.T) {
	persistencetest.InstanceStore(t, NewInstanceStore())
}
