package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fd1az/arbitrage-bot/internal/config"
	"github.com/fd1az/arbitrage-bot/internal/logger"
)

// Worker is the subset of ChainWorker the Coordinator supervises. Narrowed
// to an interface so tests can supervise a stub instead of a real worker
// wired to live chain RPCs.
type Worker interface {
	Start(ctx context.Context) error
	Stop() error
}

// doneWorker is a Worker that exposes when its run loop has exited, so the
// Coordinator can tell a clean shutdown from a recovered-panic exit and
// restart only the latter. ChainWorker implements this; a Worker that
// doesn't is assumed to run until ctx cancellation.
type doneWorker interface {
	Worker
	Done() <-chan struct{}
}

// namedWorker pairs a supervised worker with the chain name used in logs
// and crash-loop accounting.
type namedWorker struct {
	chainName string
	worker    Worker
}

// Coordinator supervises one ChainWorker per enabled chain (spec.md §4.15):
// staggered startup, panic recovery with a cooldown restart, and a
// crash-loop breaker that gives up on a chain entirely once it fails too
// often inside the configured window.
type Coordinator struct {
	arbCfg  config.ArbitrageConfig
	workers []namedWorker
	log     logger.LoggerInterface

	mu       sync.Mutex
	failures map[string][]time.Time
	tripped  map[string]bool

	wg sync.WaitGroup
}

// NewCoordinator builds a Coordinator over the given chain workers.
func NewCoordinator(arbCfg config.ArbitrageConfig, log logger.LoggerInterface) *Coordinator {
	return &Coordinator{
		arbCfg:   arbCfg,
		log:      log,
		failures: make(map[string][]time.Time),
		tripped:  make(map[string]bool),
	}
}

// Register adds a chain worker under supervision. Call before Start.
func (c *Coordinator) Register(chainName string, w Worker) {
	c.workers = append(c.workers, namedWorker{chainName: chainName, worker: w})
}

// Start launches every registered worker, staggered by
// ArbitrageConfig.WorkerStaggerDelay so they don't all open RPC connections
// in the same instant (spec.md §4.15).
func (c *Coordinator) Start(ctx context.Context) {
	for _, nw := range c.workers {
		c.wg.Add(1)
		go c.supervise(ctx, nw)
		if c.arbCfg.WorkerStaggerDelay > 0 {
			time.Sleep(c.arbCfg.WorkerStaggerDelay)
		}
	}
}

// Wait blocks until every supervised worker has permanently stopped (either
// ctx was cancelled or every worker tripped its crash-loop breaker).
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) supervise(ctx context.Context, nw namedWorker) {
	defer c.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}
		if c.isTripped(nw.chainName) {
			c.log.Error(ctx, "chain worker crash-looped, giving up", "chain", nw.chainName)
			return
		}

		if err := c.runOnce(ctx, nw); err != nil {
			c.log.Error(ctx, "chain worker failed, restarting after cooldown", "chain", nw.chainName, "error", err)
			c.recordFailure(nw.chainName)
		}

		if ctx.Err() != nil {
			return
		}

		cooldown := c.arbCfg.WorkerRestartCooldown
		if cooldown <= 0 {
			cooldown = 5 * time.Second
		}
		select {
		case <-time.After(cooldown):
		case <-ctx.Done():
			return
		}
	}
}

// runOnce starts the worker and recovers a panic into an error, so one
// chain's worker crashing never takes down the process or the other
// chains' workers. A ChainWorker also recovers panics in its own run loop
// (belt-and-braces: that goroutine is spawned from Start, outside this
// function's stack, so this defer alone can't see it) and signals the exit
// via Done — runOnce treats that as a failure unless ctx was the cause, so
// supervise restarts it instead of treating the worker as merely finished.
func (c *Coordinator) runOnce(ctx context.Context, nw namedWorker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in chain worker %s: %v", nw.chainName, r)
		}
	}()

	if startErr := nw.worker.Start(ctx); startErr != nil {
		return startErr
	}

	dw, ok := nw.worker.(doneWorker)
	if !ok {
		<-ctx.Done()
		return nw.worker.Stop()
	}

	select {
	case <-ctx.Done():
		return nw.worker.Stop()
	case <-dw.Done():
		stopErr := nw.worker.Stop()
		if ctx.Err() != nil {
			return stopErr
		}
		if stopErr != nil {
			return stopErr
		}
		return fmt.Errorf("chain worker %s run loop exited unexpectedly", nw.chainName)
	}
}

func (c *Coordinator) recordFailure(chainName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	threshold := c.arbCfg.CrashLoopThreshold
	if threshold <= 0 {
		threshold = 10
	}
	window := c.arbCfg.CrashLoopWindow
	if window <= 0 {
		window = 5 * time.Minute
	}

	now := time.Now()
	cutoff := now.Add(-window)
	recent := c.failures[chainName][:0]
	for _, t := range c.failures[chainName] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	recent = append(recent, now)
	c.failures[chainName] = recent

	if len(recent) >= threshold {
		c.tripped[chainName] = true
	}
}

func (c *Coordinator) isTripped(chainName string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tripped[chainName]
}
