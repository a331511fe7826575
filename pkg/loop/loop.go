// Package loop implements the single-threaded UI loop that hook callbacks run on.
//
// Work submitted from any goroutine is queued in FIFO order and executed one
// task at a time on the goroutine that calls Run (or Drain). Nothing in a task
// is preempted by another task, which is the execution model the timer and
// controllable-state hooks rely on.
//
//	l := loop.New()
//	restore := l.Install() // platform.Dispatch now feeds this loop
//	defer restore()
//	go l.Run(ctx)
package loop

import (
	"context"
	"sync"

	"github.com/eapache/queue"
	"go.uber.org/zap"

	"github.com/go-drift/hooks/pkg/errors"
	"github.com/go-drift/hooks/pkg/log"
	"github.com/go-drift/hooks/pkg/platform"
)

// Loop is a FIFO task runner.
type Loop struct {
	mu     sync.Mutex
	tasks  *queue.Queue
	wake   chan struct{}
	done   chan struct{}
	closed bool
	panics int
}

// New creates an idle loop.
func New() *Loop {
	return &Loop{
		tasks: queue.New(),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Submit queues fn to run on the loop goroutine. Safe to call from any goroutine.
func (l *Loop) Submit(fn func()) error {
	if fn == nil {
		return nil
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return errors.ErrLoopClosed
	}
	l.tasks.Add(fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Len returns the number of queued tasks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tasks.Length()
}

// Drain runs queued tasks on the calling goroutine until the queue is empty,
// including tasks submitted while draining. It returns the number of tasks run.
func (l *Loop) Drain() int {
	n := 0
	for {
		fn, ok := l.pop()
		if !ok {
			return n
		}
		l.execute(fn)
		n++
	}
}

// Run processes tasks until ctx is cancelled or the loop is closed. It
// returns ctx.Err() on cancellation and nil after Close.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			// Run what was queued before Close.
			l.Drain()
			return nil
		case <-l.wake:
		}
	}
}

// Close stops accepting work and makes Run return. Close is idempotent.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	close(l.done)
}

// Install registers the loop as the platform dispatcher and returns a
// function that removes it.
func (l *Loop) Install() func() {
	platform.RegisterDispatch(func(callback func()) {
		if err := l.Submit(callback); err != nil {
			log.Named("loop").Debug("dropped dispatched callback", zap.Error(err))
		}
	})
	return func() {
		platform.RegisterDispatch(nil)
	}
}

func (l *Loop) pop() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tasks.Length() == 0 {
		return nil, false
	}
	return l.tasks.Remove().(func()), true
}

func (l *Loop) execute(fn func()) {
	defer errors.RecoverWithCallback("loop.task", func(r any) {
		l.mu.Lock()
		l.panics++
		n := l.panics
		l.mu.Unlock()
		log.Named("loop").Warn("task panicked", zap.Any("value", r), zap.Int("panics", n))
	})
	fn()
}

// Panics returns how many tasks have panicked since the loop was created.
func (l *Loop) Panics() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.panics
}
