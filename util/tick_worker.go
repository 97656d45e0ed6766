package util

import (
	"context"
	"sync"
	"time"

	"github.com/mohitkumar/tokenflow/logger"
	"go.uber.org/zap"
)

// TickWorker calls fn every interval until its context is cancelled or Stop is
// called. fn never runs concurrently with itself.
type TickWorker struct {
	tickInterval time.Duration
	wg           *sync.WaitGroup
	name         string
	fn           func(ctx context.Context)
	cancel       context.CancelFunc
	mu           sync.Mutex
	running      bool
}

func NewTickWorker(name string, interval time.Duration, fn func(ctx context.Context), wg *sync.WaitGroup) *TickWorker {
	return &TickWorker{
		tickInterval: interval,
		wg:           wg,
		fn:           fn,
		name:         name,
	}
}

func (tw *TickWorker) Start(ctx context.Context) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.running {
		return
	}
	ctx, tw.cancel = context.WithCancel(ctx)
	tw.running = true
	tw.wg.Add(1)
	go func() {
		defer tw.wg.Done()
		tw.Run(ctx)
		tw.mu.Lock()
		tw.running = false
		tw.mu.Unlock()
	}()
	logger.Info("tick worker started", zap.String("worker", tw.name), zap.Duration("interval", tw.tickInterval))
}

// Run blocks, ticking on the caller's goroutine.
func (tw *TickWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(tw.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			tw.fn(ctx)
		case <-ctx.Done():
			logger.Info("stopping tick worker", zap.String("worker", tw.name))
			return
		}
	}
}

func (tw *TickWorker) Stop() {
	tw.mu.Lock()
	cancel := tw.cancel
	tw.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (tw *TickWorker) IsRunning() bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.running
}
