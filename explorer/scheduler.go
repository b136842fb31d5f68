package explorer

import (
	"sort"
	"time"
)

// Task is a delayed function that may be cancelled before it runs.
type Task interface {
	Cancel()
}

// Scheduler runs delayed functions on the engine's serial context.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Task
}

// VirtualScheduler is a Scheduler driven by an explicit clock. Time only moves
// through Advance and AdvanceTo, so it is deterministic. It is not safe for
// concurrent use.
type VirtualScheduler struct {
	now     time.Duration
	seq     uint64
	pending []*virtualTask
}

type virtualTask struct {
	at        time.Duration
	seq       uint64
	fn        func()
	cancelled bool
}

func (t *virtualTask) Cancel() {
	t.cancelled = true
}

func NewVirtualScheduler() *VirtualScheduler {
	return &VirtualScheduler{}
}

func (s *VirtualScheduler) AfterFunc(d time.Duration, fn func()) Task {
	if d < 0 {
		d = 0
	}
	s.seq++
	task := &virtualTask{at: s.now + d, seq: s.seq, fn: fn}
	s.pending = append(s.pending, task)
	return task
}

// Now returns the current virtual time.
func (s *VirtualScheduler) Now() time.Duration {
	return s.now
}

// Advance moves the clock forward by d, running every task that falls due.
func (s *VirtualScheduler) Advance(d time.Duration) {
	s.AdvanceTo(s.now + d)
}

// AdvanceTo moves the clock to t, running due tasks in deadline order.
// Moving backwards is a no-op.
func (s *VirtualScheduler) AdvanceTo(t time.Duration) {
	for {
		task := s.nextDue(t)
		if task == nil {
			break
		}
		s.now = task.at
		task.fn()
	}
	if t > s.now {
		s.now = t
	}
}

// Pending returns the number of tasks that have neither run nor been cancelled.
func (s *VirtualScheduler) Pending() int {
	n := 0
	for _, task := range s.pending {
		if !task.cancelled {
			n++
		}
	}
	return n
}

func (s *VirtualScheduler) nextDue(t time.Duration) *virtualTask {
	live := s.pending[:0]
	for _, task := range s.pending {
		if !task.cancelled {
			live = append(live, task)
		}
	}
	s.pending = live
	if len(s.pending) == 0 {
		return nil
	}

	sort.Slice(s.pending, func(i, j int) bool {
		if s.pending[i].at == s.pending[j].at {
			return s.pending[i].seq < s.pending[j].seq
		}
		return s.pending[i].at < s.pending[j].at
	})

	next := s.pending[0]
	if next.at > t {
		return nil
	}
	s.pending = s.pending[1:]
	return next
}
