package explorer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mobile-next/touchguide/types"
)

const defaultQueueSize = 256

// Service owns an Engine and serializes every call onto one goroutine,
// including the delayed tasks the engine schedules.
type Service struct {
	engine *Engine
	tasks  chan func()
	done   chan struct{}
	once   sync.Once
}

// NewService builds an engine from opts. Any Scheduler in opts is replaced
// by one that runs on the service queue. Call Run to start processing.
func NewService(opts Options) *Service {
	s := &Service{
		tasks: make(chan func(), defaultQueueSize),
		done:  make(chan struct{}),
	}
	opts.Scheduler = queueScheduler{service: s}
	s.engine = NewEngine(opts)
	return s
}

// AddListener registers l. Call it before Run, or through Do.
func (s *Service) AddListener(l Listener) {
	s.engine.AddListener(l)
}

// Run processes queued work until ctx is done or Close is called.
func (s *Service) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case fn := <-s.tasks:
			fn()
		}
	}
}

// Close stops Run. Work still queued is discarded.
func (s *Service) Close() {
	s.once.Do(func() { close(s.done) })
}

// Post queues ev without waiting for it to be processed.
func (s *Service) Post(ev types.PointerEvent) error {
	return s.post(context.Background(), func() { _ = s.engine.HandleEvent(ev) })
}

// Submit queues ev and waits for the engine's verdict on it.
func (s *Service) Submit(ctx context.Context, ev types.PointerEvent) error {
	result := make(chan error, 1)
	if err := s.post(ctx, func() { result <- s.engine.HandleEvent(ev) }); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrServiceClosed
	}
}

// Do runs fn on the service goroutine and waits for it to return.
func (s *Service) Do(ctx context.Context, fn func(*Engine)) error {
	finished := make(chan struct{})
	if err := s.post(ctx, func() {
		fn(s.engine)
		close(finished)
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrServiceClosed
	}
}

func (s *Service) post(ctx context.Context, fn func()) error {
	select {
	case <-s.done:
		return ErrServiceClosed
	default:
	}
	select {
	case s.tasks <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrServiceClosed
	}
}

type queueScheduler struct {
	service *Service
}

type queueTask struct {
	timer     *time.Timer
	cancelled atomic.Bool
}

func (t *queueTask) Cancel() {
	t.cancelled.Store(true)
	t.timer.Stop()
}

// AfterFunc re-posts fn onto the queue when the timer fires. A task
// cancelled in between is skipped when it reaches the queue.
func (q queueScheduler) AfterFunc(d time.Duration, fn func()) Task {
	task := &queueTask{}
	task.timer = time.AfterFunc(d, func() {
		_ = q.service.post(context.Background(), func() {
			if !task.cancelled.Load() {
				fn()
			}
		})
	})
	return task
}
