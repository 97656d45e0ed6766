package util

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTickWorker(t *testing.T) {
	var wg sync.WaitGroup
	var ticks int32
	tw := NewTickWorker("test", 10*time.Millisecond, func(ctx context.Context) {
		atomic.AddInt32(&ticks, 1)
	}, &wg)
	tw.Start(context.Background())
	require.Eventually(t, func() bool { return atomic.LoadInt32(&ticks) >= 3 }, time.Second, 5*time.Millisecond)
	require.True(t, tw.IsRunning())
	tw.Stop()
	wg.Wait()
	require.False(t, tw.IsRunning())
}

func TestWorkerDrainsOnStop(t *testing.T) {
	var wg sync.WaitGroup
	var handled int32
	w := NewWorker("drain", &wg, func(task Task) error {
		atomic.AddInt32(&handled, 1)
		return nil
	}, 8)
	for i := 0; i < 5; i++ {
		w.Sender() <- i
	}
	w.Start()
	w.Stop()
	wg.Wait()
	require.Equal(t, int32(5), atomic.LoadInt32(&handled))
}
