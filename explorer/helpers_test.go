package explorer

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/mobile-next/touchguide/config"
	"github.com/mobile-next/touchguide/types"
)

type recorder struct {
	events []types.Event
}

func (r *recorder) OnEvent(ev types.Event) {
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []types.EventKind {
	out := make([]types.EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind())
	}
	return out
}

func (r *recorder) kindsWithoutHover() []types.EventKind {
	var out []types.EventKind
	for _, ev := range r.events {
		if ev.Kind() != types.KindHoverMove {
			out = append(out, ev.Kind())
		}
	}
	return out
}

func (r *recorder) count(kind types.EventKind) int {
	n := 0
	for _, ev := range r.events {
		if ev.Kind() == kind {
			n++
		}
	}
	return n
}

func (r *recorder) gestures() []types.GestureType {
	var out []types.GestureType
	for _, ev := range r.events {
		if end, ok := ev.(types.TouchGuideGestureEnd); ok {
			out = append(out, end.Gesture)
		}
	}
	return out
}

type stubFocus struct {
	ref types.ElementRef
	err error
}

func (f *stubFocus) CurrentFocus() (types.ElementRef, error) {
	return f.ref, f.err
}

var errNoFocus = errors.New("nothing focused")

type recordingExecutor struct {
	mu     sync.Mutex
	clicks []types.ElementRef
}

func (x *recordingExecutor) Click(_ context.Context, ref types.ElementRef) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.clicks = append(x.clicks, ref)
	return nil
}

func (x *recordingExecutor) clicked() []types.ElementRef {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]types.ElementRef(nil), x.clicks...)
}

type harness struct {
	t        *testing.T
	cfg      config.Touch
	sched    *VirtualScheduler
	engine   *Engine
	rec      *recorder
	focus    *stubFocus
	executor *recordingExecutor
	raw      []types.PointerEvent
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		cfg:      config.DefaultTouch(),
		sched:    NewVirtualScheduler(),
		rec:      &recorder{},
		focus:    &stubFocus{ref: types.ElementRef{WindowID: 1, ElementID: 42}},
		executor: &recordingExecutor{},
	}
	h.engine = NewEngine(Options{
		Config:      h.cfg,
		Scheduler:   h.sched,
		Focus:       h.focus,
		Executor:    h.executor,
		Passthrough: RawInputFunc(func(ev types.PointerEvent) { h.raw = append(h.raw, ev) }),
	})
	h.engine.AddListener(h.rec)
	return h
}

func ms(v int64) int64 {
	return v * 1000
}

// send advances virtual time to the event timestamp before delivering it,
// the way a trace replay does.
func (h *harness) send(ev types.PointerEvent) error {
	h.sched.AdvanceTo(time.Duration(ev.TimestampUs) * time.Microsecond)
	return h.engine.HandleEvent(ev)
}

func (h *harness) down(id int, x, y float64, atMs int64) error {
	return h.send(types.PointerEvent{PointerID: id, Action: types.ActionDown, X: x, Y: y, TimestampUs: ms(atMs)})
}

func (h *harness) move(id int, x, y float64, atMs int64) error {
	return h.send(types.PointerEvent{PointerID: id, Action: types.ActionMove, X: x, Y: y, TimestampUs: ms(atMs)})
}

func (h *harness) up(id int, x, y float64, atMs int64) error {
	return h.send(types.PointerEvent{PointerID: id, Action: types.ActionUp, X: x, Y: y, TimestampUs: ms(atMs)})
}

func (h *harness) cancel(atMs int64) error {
	return h.send(types.PointerEvent{Action: types.ActionCancel, TimestampUs: ms(atMs)})
}

func (h *harness) must(err error) {
	h.t.Helper()
	if err != nil {
		h.t.Fatalf("unexpected error: %v", err)
	}
}

func pt(x, y float64) types.TouchPoint {
	return types.TouchPoint{X: x, Y: y, Pressed: true}
}

// stroke presses at the first point at t=0, moves through the rest starting
// at startMs every stepMs, and releases at the last point.
func (h *harness) stroke(points [][2]float64, startMs, stepMs int64) {
	h.t.Helper()
	first := points[0]
	h.must(h.down(0, first[0], first[1], 0))
	at := startMs
	for _, p := range points[1:] {
		h.must(h.move(0, p[0], p[1], at))
		at += stepMs
	}
	last := points[len(points)-1]
	h.must(h.up(0, last[0], last[1], at))
}

// resample walks the polyline in steps no longer than step, keeping every vertex.
func resample(points [][2]float64, step float64) [][2]float64 {
	out := [][2]float64{points[0]}
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		n := int(math.Ceil(math.Hypot(b[0]-a[0], b[1]-a[1]) / step))
		for k := 1; k <= n; k++ {
			f := float64(k) / float64(n)
			out = append(out, [2]float64{a[0] + (b[0]-a[0])*f, a[1] + (b[1]-a[1])*f})
		}
	}
	return out
}
