package llm

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// fakeRunner records invocations and replies with a canned result.
type fakeRunner struct {
	mu    sync.Mutex
	calls []Invocation

	result *Result
	err    error

	// block makes Run wait for ctx to end and return its error.
	block bool
	// delay makes Run sleep before answering, honouring ctx.
	delay time.Duration

	running    atomic.Int32
	maxRunning atomic.Int32
}

func (f *fakeRunner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, inv)
	f.mu.Unlock()

	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		peak := f.maxRunning.Load()
		if n <= peak || f.maxRunning.CompareAndSwap(peak, n) {
			break
		}
	}

	if f.block {
		<-ctx.Done()
		return &Result{ExitCode: -1}, ctx.Err()
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return &Result{ExitCode: -1}, ctx.Err()
		}
	}

	if f.err != nil {
		return nil, f.err
	}
	if f.result == nil {
		return &Result{}, nil
	}
	res := *f.result
	return &res, nil
}

func (f *fakeRunner) Calls() []Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Invocation(nil), f.calls...)
}
