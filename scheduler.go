package termengine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler runs deferred work for the terminal's write pacing.
// All work scheduled by one Terminal must run serially.
type Scheduler interface {
	// Now returns the current time, used to bound processing slices.
	Now() time.Time
	// Schedule runs fn after delay. The returned function cancels it if it has not run yet.
	Schedule(delay time.Duration, fn func()) (cancel func())
}

// SyncScheduler runs work inline on the calling goroutine, ignoring delays.
// Work scheduled from inside running work is queued and drained by the outermost
// call, so rescheduling never recurses.
type SyncScheduler struct {
	mu       sync.Mutex
	tasks    []*syncTask
	draining bool
	now      func() time.Time
}

type syncTask struct {
	fn        func()
	cancelled bool
}

// NewSyncScheduler returns a scheduler that runs work immediately.
func NewSyncScheduler() *SyncScheduler {
	return &SyncScheduler{now: time.Now}
}

// Now returns the wall clock time.
func (s *SyncScheduler) Now() time.Time {
	return s.now()
}

// Schedule queues fn and drains the queue unless a drain is already in progress.
func (s *SyncScheduler) Schedule(_ time.Duration, fn func()) func() {
	task := &syncTask{fn: fn}

	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	if s.draining {
		s.mu.Unlock()
		return s.canceller(task)
	}
	s.draining = true
	s.mu.Unlock()

	s.drain()
	return s.canceller(task)
}

func (s *SyncScheduler) canceller(task *syncTask) func() {
	return func() {
		s.mu.Lock()
		task.cancelled = true
		s.mu.Unlock()
	}
}

func (s *SyncScheduler) drain() {
	for {
		s.mu.Lock()
		if len(s.tasks) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		task := s.tasks[0]
		s.tasks = s.tasks[1:]
		cancelled := task.cancelled
		s.mu.Unlock()

		if !cancelled {
			task.fn()
		}
	}
}

// LoopScheduler is a serial event loop. Run executes posted work in order on one
// goroutine; Schedule posts work after the delay elapses.
//
// Example:
//
//	loop := termengine.NewLoopScheduler(64)
//	go loop.Run(ctx)
//	term := termengine.New(termengine.WithScheduler(loop))
type LoopScheduler struct {
	work chan func()
	now  func() time.Time

	// overflow holds work posted while the queue was full, in posting order.
	mu       sync.Mutex
	overflow []func()
}

// NewLoopScheduler creates a loop with the given queue capacity.
func NewLoopScheduler(capacity int) *LoopScheduler {
	return &LoopScheduler{
		work: make(chan func(), max(capacity, 1)),
		now:  time.Now,
	}
}

// Now returns the wall clock time.
func (l *LoopScheduler) Now() time.Time {
	return l.now()
}

// Schedule posts fn to the loop after delay.
func (l *LoopScheduler) Schedule(delay time.Duration, fn func()) func() {
	var cancelled atomic.Bool
	run := func() {
		if !cancelled.Load() {
			fn()
		}
	}

	if delay <= 0 {
		l.Post(run)
		return func() { cancelled.Store(true) }
	}

	timer := time.AfterFunc(delay, func() { l.Post(run) })
	return func() {
		cancelled.Store(true)
		timer.Stop()
	}
}

// Post queues fn to run on the loop. Work runs in posting order. When the queue
// is full, fn waits in an overflow list, so Post never blocks the caller.
func (l *LoopScheduler) Post(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.overflow) == 0 {
		select {
		case l.work <- fn:
			return
		default:
		}
	}
	l.overflow = append(l.overflow, fn)
}

// refill moves overflow work into the queue while there is room.
func (l *LoopScheduler) refill() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for len(l.overflow) > 0 {
		select {
		case l.work <- l.overflow[0]:
			l.overflow[0] = nil
			l.overflow = l.overflow[1:]
		default:
			return
		}
	}
}

// Run executes posted work until ctx is done.
func (l *LoopScheduler) Run(ctx context.Context) error {
	for {
		l.refill()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.work:
			fn()
		}
	}
}

// Ensure implementations satisfy their interfaces
var _ Scheduler = (*SyncScheduler)(nil)
var _ Scheduler = (*LoopScheduler)(nil)
