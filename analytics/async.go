package analytics

import (
	"context"
	"fmt"
	"sync"

	"github.com/mohitkumar/tokenflow/model"
	"github.com/mohitkumar/tokenflow/util"
)

var _ EventSink = new(AsyncSink)

// AsyncSink hands events to a background worker so slow sinks do not hold up
// the scheduler. Record blocks only when the buffer is full.
type AsyncSink struct {
	worker *util.Worker
	wg     *sync.WaitGroup
}

func NewAsyncSink(sink EventSink, capacity int) *AsyncSink {
	wg := &sync.WaitGroup{}
	handler := func(t util.Task) error {
		event, ok := t.(model.Event)
		if !ok {
			return fmt.Errorf("unexpected task %T", t)
		}
		return sink.Record(context.Background(), event)
	}
	w := util.NewWorker("event-sink", wg, handler, capacity)
	w.Start()
	return &AsyncSink{
		worker: w,
		wg:     wg,
	}
}

func (a *AsyncSink) Record(ctx context.Context, event model.Event) error {
	select {
	case a.worker.Sender() <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes queued events. Record must not be called afterwards.
func (a *AsyncSink) Close() {
	a.worker.Stop()
	a.wg.Wait()
}
