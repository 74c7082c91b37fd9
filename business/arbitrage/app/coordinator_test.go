package app_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	arbitrageApp "github.com/fd1az/arbitrage-bot/business/arbitrage/app"
	"github.com/fd1az/arbitrage-bot/internal/config"
	"github.com/fd1az/arbitrage-bot/internal/logger"
)

// stubWorker is a minimal arbitrageApp.Worker for exercising the Coordinator
// without a real chain pipeline.
type stubWorker struct {
	startCalls int32
	stopCalls  int32
	startErr   error
	done       chan struct{}
}

func newStubWorker() *stubWorker {
	return &stubWorker{done: make(chan struct{})}
}

func (w *stubWorker) Start(ctx context.Context) error {
	atomic.AddInt32(&w.startCalls, 1)
	return w.startErr
}

func (w *stubWorker) Stop() error {
	atomic.AddInt32(&w.stopCalls, 1)
	return nil
}

func (w *stubWorker) Done() <-chan struct{} {
	return w.done
}

func TestCoordinator_StopsWorkersOnContextCancel(t *testing.T) {
	arbCfg := config.ArbitrageConfig{WorkerStaggerDelay: 0, WorkerRestartCooldown: time.Millisecond}
	coord := arbitrageApp.NewCoordinator(arbCfg, logger.Noop())

	w := newStubWorker()
	coord.Register("ethereum", w)

	ctx, cancel := context.WithCancel(context.Background())
	coord.Start(ctx)

	time.Sleep(20 * time.Millisecond)
	cancel()

	waitDone := make(chan struct{})
	go func() {
		coord.Wait()
		close(waitDone)
	}()

	select {
	case <-waitDone:
	case <-time.After(time.Second):
		t.Fatal("expected Coordinator.Wait to return after context cancellation")
	}

	if atomic.LoadInt32(&w.startCalls) == 0 {
		t.Error("expected worker to have been started at least once")
	}
	if atomic.LoadInt32(&w.stopCalls) == 0 {
		t.Error("expected worker Stop to be called on shutdown")
	}
}

func TestCoordinator_RestartsAfterDoneSignal(t *testing.T) {
	arbCfg := config.ArbitrageConfig{WorkerStaggerDelay: 0, WorkerRestartCooldown: time.Millisecond, CrashLoopThreshold: 100}
	coord := arbitrageApp.NewCoordinator(arbCfg, logger.Noop())

	w := newStubWorker()
	coord.Register("ethereum", w)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	coord.Start(ctx)

	close(w.done) // simulate the run loop exiting unexpectedly
	time.Sleep(50 * time.Millisecond)

	if atomic.LoadInt32(&w.startCalls) < 2 {
		t.Errorf("expected worker to be restarted after an unexpected exit, got %d starts", w.startCalls)
	}
}

func TestCoordinator_TripsCrashLoopBreaker(t *testing.T) {
	arbCfg := config.ArbitrageConfig{
		WorkerStaggerDelay:    0,
		WorkerRestartCooldown: time.Millisecond,
		CrashLoopThreshold:    3,
		CrashLoopWindow:       time.Minute,
	}
	coord := arbitrageApp.NewCoordinator(arbCfg, logger.Noop())

	w := &stubWorker{done: make(chan struct{}), startErr: errors.New("boom")}
	coord.Register("ethereum", w)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	coord.Start(ctx)

	waitDone := make(chan struct{})
	go func() {
		coord.Wait()
		close(waitDone)
	}()

	select {
	case <-waitDone:
	case <-time.After(2 * time.Second):
		t.Fatal("expected the supervisor to give up once the crash-loop breaker trips")
	}

	if atomic.LoadInt32(&w.startCalls) < int32(arbCfg.CrashLoopThreshold) {
		t.Errorf("expected at least %d start attempts before tripping, got %d", arbCfg.CrashLoopThreshold, w.startCalls)
	}
}
