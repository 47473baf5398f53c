package server

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chazu/clvm/vm"
)

func TestEvalPool_FreshAllocatorPerJob(t *testing.T) {
	p := NewEvalPool(1)
	defer p.Stop()

	for i := 0; i < 3; i++ {
		got, err := p.Do(bg(), func(a *vm.IntAllocator) (any, error) {
			before := a.PairCount()
			if _, err := a.NewPair(a.Null(), a.Null()); err != nil {
				return nil, err
			}
			return before, nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if got.(int) != 0 {
			t.Errorf("job %d saw %d pairs from an earlier job", i, got)
		}
	}
}

func TestEvalPool_AllocatorOptions(t *testing.T) {
	p := NewEvalPool(1, vm.WithMaxPairs(1))
	defer p.Stop()

	_, err := p.Do(bg(), func(a *vm.IntAllocator) (any, error) {
		if _, err := a.NewPair(a.Null(), a.Null()); err != nil {
			return nil, err
		}
		return a.NewPair(a.Null(), a.Null())
	})
	if !errors.Is(err, vm.ErrAllocation) {
		t.Errorf("error = %v, want ErrAllocation", err)
	}
}

func TestEvalPool_RecoversPanics(t *testing.T) {
	p := NewEvalPool(1)
	defer p.Stop()

	_, err := p.Do(bg(), func(*vm.IntAllocator) (any, error) {
		panic("boom")
	})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("error = %v, want the panic value", err)
	}

	// the worker survives
	got, err := p.Do(bg(), func(*vm.IntAllocator) (any, error) { return 7, nil })
	if err != nil || got.(int) != 7 {
		t.Errorf("after panic: (%v, %v)", got, err)
	}
}

func TestEvalPool_Concurrent(t *testing.T) {
	p := NewEvalPool(4)
	defer p.Stop()

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := p.Do(bg(), func(a *vm.IntAllocator) (any, error) {
				n, err := a.NewAtom([]byte{byte(i)})
				if err != nil {
					return nil, err
				}
				return int(a.Buf(n)[0]), nil
			})
			if err != nil {
				errs <- err
				return
			}
			if got.(int) != i {
				errs <- errors.New("job result crossed between callers")
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestEvalPool_ContextCanceled(t *testing.T) {
	p := NewEvalPool(1)
	defer p.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	go p.Do(bg(), func(*vm.IntAllocator) (any, error) {
		close(started)
		<-release
		return nil, nil
	})
	<-started

	ctx, cancel := context.WithTimeout(bg(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Do(ctx, func(*vm.IntAllocator) (any, error) { return nil, nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want DeadlineExceeded", err)
	}
	close(release)
}

func TestEvalPool_Stopped(t *testing.T) {
	p := NewEvalPool(1)
	p.Stop()
	p.Stop()
	_, err := p.Do(bg(), func(*vm.IntAllocator) (any, error) { return nil, nil })
	if !errors.Is(err, ErrPoolStopped) {
		t.Errorf("error = %v, want ErrPoolStopped", err)
	}
}
