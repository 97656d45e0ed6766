package worker

import (
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

type RetryPolicy string

const RETRY_POLICY_FIXED RetryPolicy = "FIXED"
const RETRY_POLICY_BACKOFF RetryPolicy = "BACKOFF"

var _ Worker = new(WorkerWrapper)

// WorkerWrapper turns a plain function into a Worker that retries failed
// executions in place.
type WorkerWrapper struct {
	name          string
	worker        func(map[string]any) (map[string]any, error)
	retryCount    int
	retryInterval time.Duration
	retryPolicy   RetryPolicy
}

func NewDefaultWorker(name string, w func(map[string]any) (map[string]any, error)) *WorkerWrapper {
	return &WorkerWrapper{
		name:          name,
		worker:        w,
		retryCount:    1,
		retryInterval: time.Second,
		retryPolicy:   RETRY_POLICY_FIXED,
	}
}

func (w *WorkerWrapper) WithRetryCount(count int) *WorkerWrapper {
	w.retryCount = count
	return w
}

func (w *WorkerWrapper) WithRetryInterval(retryInterval time.Duration) *WorkerWrapper {
	w.retryInterval = retryInterval
	return w
}

func (w *WorkerWrapper) WithRetryPolicy(policy string) *WorkerWrapper {
	w.retryPolicy = RetryPolicy(policy)
	return w
}

func (w *WorkerWrapper) GetName() string {
	return w.name
}

// Execute runs the function up to retryCount times.
func (w *WorkerWrapper) Execute(input map[string]any) (map[string]any, error) {
	var out map[string]any
	err := backoff.Retry(func() error {
		res, err := w.worker(input)
		if err != nil {
			return err
		}
		out = res
		return nil
	}, w.backoff())
	return out, err
}

func (w *WorkerWrapper) backoff() backoff.BackOff {
	retries := w.retryCount - 1
	if retries < 0 {
		retries = 0
	}
	var b backoff.BackOff = backoff.NewConstantBackOff(w.retryInterval)
	if w.retryPolicy == RETRY_POLICY_BACKOFF {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = w.retryInterval
		eb.MaxElapsedTime = 0
		b = eb
	}
	return backoff.WithMaxRetries(b, uint64(retries))
}
