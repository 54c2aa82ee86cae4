package p2p

import (
	"context"
	"log/slog"
	"sync"
)

// Policy selects how a background task is scheduled.
type Policy int

const (
	// Concurrent tasks start immediately and may overlap.
	Concurrent Policy = iota
	// Exclusive tasks are queued per key; at most one per key runs at a
	// time, in submission order.
	Exclusive
)

type task struct {
	name string
	fn   func(context.Context)
}

// Scheduler runs background work that must not block the caller:
// topology event handlers, gossip fan-out and the join bootstrap.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	wg     sync.WaitGroup
	mu     sync.Mutex
	queues map[any][]task
}

// NewScheduler creates a scheduler. A nil logger means slog.Default().
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		queues: make(map[any][]task),
	}
}

// Go runs fn concurrently.
func (s *Scheduler) Go(name string, fn func(context.Context)) {
	s.Submit(Concurrent, nil, name, fn)
}

// Exclusive queues fn behind earlier exclusive tasks for key.
func (s *Scheduler) Exclusive(key any, name string, fn func(context.Context)) {
	s.Submit(Exclusive, key, name, fn)
}

// Submit schedules fn under policy. key is only used by Exclusive.
func (s *Scheduler) Submit(policy Policy, key any, name string, fn func(context.Context)) {
	t := task{name: name, fn: fn}
	s.wg.Add(1)

	if policy == Concurrent {
		go func() {
			defer s.wg.Done()
			s.run(t)
		}()
		return
	}

	s.mu.Lock()
	if pending, busy := s.queues[key]; busy {
		s.queues[key] = append(pending, t)
		s.mu.Unlock()
		return
	}
	s.queues[key] = nil
	s.mu.Unlock()

	go s.drain(key, t)
}

func (s *Scheduler) drain(key any, t task) {
	for {
		s.run(t)
		s.wg.Done()

		s.mu.Lock()
		pending := s.queues[key]
		if len(pending) == 0 {
			delete(s.queues, key)
			s.mu.Unlock()
			return
		}
		t = pending[0]
		s.queues[key] = pending[1:]
		s.mu.Unlock()
	}
}

func (s *Scheduler) run(t task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("background task panicked",
				"task", t.name,
				"panic", r)
		}
	}()
	t.fn(s.ctx)
}

// Wait blocks until every submitted task, including tasks submitted by
// running tasks, has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Close cancels the context handed to tasks and waits for them.
func (s *Scheduler) Close() {
	s.cancel()
	s.wg.Wait()
}
