package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohitkumar/tokenflow/model"
)

var (
	ErrDispatchFailure = errors.New("dispatch failure")
	ErrHandlerNotFound = errors.New("handler not found")
)

// Dispatcher hands a unit of work to a handler. Local implementations return
// after the handler finished; remote ones return once the request is durably
// queued, with no effect on req.Variables.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *model.DispatchRequest) error
}

type DispatchError struct {
	ImplementationKey string
	TargetWorkerId    string
	Err               error
}

func (e *DispatchError) Error() string {
	if e.TargetWorkerId != "" {
		return fmt.Sprintf("dispatch %s to worker %s: %v", e.ImplementationKey, e.TargetWorkerId, e.Err)
	}
	return fmt.Sprintf("dispatch %s: %v", e.ImplementationKey, e.Err)
}

func (e *DispatchError) Unwrap() []error {
	return []error{ErrDispatchFailure, e.Err}
}

func wrap(req *model.DispatchRequest, err error) error {
	return &DispatchError{
		ImplementationKey: req.ImplementationKey,
		TargetWorkerId:    req.TargetWorkerId,
		Err:               err,
	}
}
