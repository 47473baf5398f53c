package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/clvm/vm"
)

// ErrPoolStopped is returned by Do after Stop.
var ErrPoolStopped = errors.New("evaluation pool stopped")

// evalRequest is a unit of work executed on a pool goroutine.
type evalRequest struct {
	fn   func(*vm.IntAllocator) (any, error)
	done chan evalResult
}

// evalResult holds the return value of an evaluation job.
type evalResult struct {
	value any
	err   error
}

// EvalPool runs evaluation jobs on a fixed set of goroutines. Every job
// gets a fresh allocator that nothing else can reach, so jobs never share
// mutable state; the number of workers bounds concurrent evaluations.
type EvalPool struct {
	requests  chan evalRequest
	quit      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	allocOpts []vm.IntAllocatorOption
}

// NewEvalPool creates a pool and starts its goroutines. Allocators are
// built with allocOpts.
func NewEvalPool(workers int, allocOpts ...vm.IntAllocatorOption) *EvalPool {
	if workers < 1 {
		workers = 1
	}
	p := &EvalPool{
		requests:  make(chan evalRequest, 64),
		quit:      make(chan struct{}),
		allocOpts: allocOpts,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.loop()
	}
	return p
}

// loop processes requests until the pool is stopped.
func (p *EvalPool) loop() {
	defer p.wg.Done()
	for {
		select {
		case req := <-p.requests:
			req.done <- p.execute(req.fn)
		case <-p.quit:
			return
		}
	}
}

// execute runs fn against a new allocator, recovering from panics.
func (p *EvalPool) execute(fn func(*vm.IntAllocator) (any, error)) (result evalResult) {
	defer func() {
		if r := recover(); r != nil {
			result = evalResult{err: fmt.Errorf("evaluation panicked: %v", r)}
		}
	}()
	value, err := fn(vm.NewIntAllocator(p.allocOpts...))
	return evalResult{value: value, err: err}
}

// Do submits fn and blocks until it completes or ctx is done. A job that
// has started runs to completion; its cost ceiling bounds it.
func (p *EvalPool) Do(ctx context.Context, fn func(*vm.IntAllocator) (any, error)) (any, error) {
	req := evalRequest{
		fn:   fn,
		done: make(chan evalResult, 1),
	}
	select {
	case p.requests <- req:
	case <-p.quit:
		return nil, ErrPoolStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-p.quit:
		// a queued job is never picked up once the pool stops
		p.wg.Wait()
		select {
		case result := <-req.done:
			return result.value, result.err
		default:
			return nil, ErrPoolStopped
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop shuts down the pool goroutines and waits for running jobs.
func (p *EvalPool) Stop() {
	p.stopOnce.Do(func() { close(p.quit) })
	p.wg.Wait()
}
