package explorer

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/mobile-next/touchguide/config"
	"github.com/mobile-next/touchguide/types"
	"github.com/mobile-next/touchguide/utils"
)

// FocusProvider resolves the element currently holding accessibility focus.
type FocusProvider interface {
	CurrentFocus() (types.ElementRef, error)
}

// RawInputSink receives pointer events that bypass exploration, unmodified.
type RawInputSink interface {
	Forward(ev types.PointerEvent)
}

// RawInputFunc adapts a function to the RawInputSink interface.
type RawInputFunc func(ev types.PointerEvent)

func (f RawInputFunc) Forward(ev types.PointerEvent) {
	f(ev)
}

// Options wires an Engine to its configuration and collaborators.
// Only Config is required.
type Options struct {
	Config          config.Touch
	Scheduler       Scheduler
	Focus           FocusProvider
	Executor        ActionExecutor
	ExecutorTimeout time.Duration
	Passthrough     RawInputSink
}

// Engine is the touch exploration state machine. It is not safe for
// concurrent use: every call, including delayed tasks fired by its
// Scheduler, must happen on one serial context. Service provides one.
type Engine struct {
	cfg         config.Touch
	sched       Scheduler
	tracker     *Tracker
	classifier  *Classifier
	taps        *TapDetector
	emitter     *Emitter
	focus       FocusProvider
	passthrough RawInputSink

	state      SessionState
	primary    int
	downTime   int64
	downPoint  types.TouchPoint
	guideDelay Task
	trajectory []types.TouchPoint
	touchBegan bool
	origins    map[int]types.TouchPoint
	dragging   [2]int

	lastTimestamp int64
}

func NewEngine(opts Options) *Engine {
	sched := opts.Scheduler
	if sched == nil {
		sched = NewVirtualScheduler()
	}
	return &Engine{
		cfg:         opts.Config,
		sched:       sched,
		tracker:     NewTracker(opts.Config.MaxPointers),
		classifier:  NewClassifier(opts.Config),
		taps:        NewTapDetector(opts.Config.DoubleTapTimeout, opts.Config.DoubleTapSlop),
		emitter:     NewEmitter(opts.Executor, opts.ExecutorTimeout),
		focus:       opts.Focus,
		passthrough: opts.Passthrough,
		primary:     -1,
	}
}

func (e *Engine) AddListener(l Listener) {
	e.emitter.AddListener(l)
}

func (e *Engine) State() SessionState {
	return e.state
}

// Session returns the id of the current or most recent touch session.
func (e *Engine) Session() string {
	return e.emitter.Session()
}

// ActivePointers returns the pointers currently pressed.
func (e *Engine) ActivePointers() []types.TouchPoint {
	return e.tracker.Active()
}

// HandleEvent feeds one pointer event through the state machine. Rejected
// events return an error and leave the engine untouched.
func (e *Engine) HandleEvent(ev types.PointerEvent) error {
	if err := e.validate(ev); err != nil {
		utils.Verbose("dropping pointer event %+v: %v", ev, err)
		return err
	}

	var err error
	switch ev.Action {
	case types.ActionDown:
		err = e.onDown(ev)
	case types.ActionMove:
		err = e.onMove(ev)
	case types.ActionUp:
		err = e.onUp(ev)
	case types.ActionCancel:
		e.onCancel(ev)
	}
	if err != nil {
		utils.Verbose("ignoring %s of pointer %d in %s: %v", ev.Action, ev.PointerID, e.state, err)
		return err
	}

	if ev.TimestampUs > e.lastTimestamp {
		e.lastTimestamp = ev.TimestampUs
	}
	return nil
}

// Cancel abandons the current session as if a Cancel event had arrived.
func (e *Engine) Cancel() {
	e.onCancel(types.PointerEvent{Action: types.ActionCancel, TimestampUs: e.lastTimestamp})
}

func (e *Engine) validate(ev types.PointerEvent) error {
	if !ev.Action.Valid() {
		return fmt.Errorf("%w: action %d", ErrMalformedEvent, int(ev.Action))
	}
	if ev.Action == types.ActionCancel {
		return nil
	}
	if ev.PointerID < 0 {
		return fmt.Errorf("%w: negative pointer id %d", ErrMalformedEvent, ev.PointerID)
	}
	if !finite(ev.X) || !finite(ev.Y) {
		return fmt.Errorf("%w: non-finite position (%v, %v)", ErrMalformedEvent, ev.X, ev.Y)
	}
	if ev.TimestampUs < 0 {
		return fmt.Errorf("%w: negative timestamp %d", ErrMalformedEvent, ev.TimestampUs)
	}
	if ev.TimestampUs < e.lastTimestamp {
		return fmt.Errorf("%w: timestamp %d precedes %d", ErrMalformedEvent, ev.TimestampUs, e.lastTimestamp)
	}
	for _, p := range ev.Others {
		if p.PointerID < 0 || !finite(p.X) || !finite(p.Y) {
			return fmt.Errorf("%w: context pointer %d at (%v, %v)", ErrMalformedEvent, p.PointerID, p.X, p.Y)
		}
	}
	return nil
}

func (e *Engine) onDown(ev types.PointerEvent) error {
	var leftover, adopted []int
	if e.state == StateIdle {
		// fingers still resting after a drag ended were already passed through
		leftover = pointerIDs(e.tracker.Active())
		adopted = e.tracker.Adopt(ev.Others, ev.PointerID)
	}
	count, err := e.tracker.OnDown(ev)
	if err != nil {
		// undo the adoption so a rejected Down leaves nothing behind
		e.tracker.Forget(adopted...)
		return err
	}

	switch e.state {
	case StateIdle:
		e.emitter.Begin()
		e.primary = ev.PointerID
		e.downTime = ev.TimestampUs
		e.downPoint = ev.Point()
		if count > 1 {
			e.enterMultiFinger(ev, leftover...)
			return nil
		}
		e.emit(types.TouchBegin{Base: e.base(ev.TimestampUs)})
		e.touchBegan = true
		e.state = StateTouchBegin
		e.guideDelay = e.sched.AfterFunc(e.cfg.GuideEntryDelay, e.onGuideDelay)

	case StateTouchBegin, StateTouchGuiding, StateTouchGuideGesture:
		e.cancelGuideDelay()
		e.trajectory = nil
		e.enterMultiFinger(ev)

	case StateMultiFingerGesture:
		e.origins[ev.PointerID] = ev.Point()
		e.forward(ev)

	case StateDragging:
		e.forward(ev)
	}
	return nil
}

func (e *Engine) onMove(ev types.PointerEvent) error {
	previous, _ := e.tracker.Get(ev.PointerID)
	if err := e.tracker.OnMove(ev); err != nil {
		return err
	}
	current := ev.Point()

	switch e.state {
	case StateIdle:
		// only fingers left over from a finished drag are tracked here
		e.forward(ev)

	case StateTouchBegin:
		if e.movedAway(current) {
			e.cancelGuideDelay()
			e.emit(types.TouchGuideBegin{Base: e.base(ev.TimestampUs)})
			e.startGesture(current)
		}

	case StateTouchGuiding:
		if samePosition(previous, current) {
			return nil
		}
		if e.movedAway(current) {
			e.startGesture(current)
			return nil
		}
		e.emit(types.HoverMove{Base: e.base(ev.TimestampUs), X: ev.X, Y: ev.Y})

	case StateTouchGuideGesture:
		if samePosition(e.trajectory[len(e.trajectory)-1], current) {
			return nil
		}
		e.trajectory = append(e.trajectory, current)
		e.emit(types.HoverMove{Base: e.base(ev.TimestampUs), X: ev.X, Y: ev.Y})

	case StateMultiFingerGesture:
		e.forward(ev)
		if e.draggingTogether() {
			utils.Verbose("two-finger drag detected in session %s", e.Session())
			active := e.tracker.Active()
			e.dragging = [2]int{active[0].PointerID, active[1].PointerID}
			e.state = StateDragging
		}

	case StateDragging:
		e.forward(ev)
	}
	return nil
}

func (e *Engine) onUp(ev types.PointerEvent) error {
	count, err := e.tracker.OnUp(ev)
	if err != nil {
		return err
	}

	switch e.state {
	case StateIdle:
		e.forward(ev)

	case StateTouchBegin:
		e.cancelGuideDelay()
		e.emit(types.TouchEnd{Base: e.base(ev.TimestampUs)})
		e.reportTap(ev)
		e.finish()

	case StateTouchGuiding:
		e.emit(types.TouchGuideEnd{Base: e.base(ev.TimestampUs)})
		e.emit(types.TouchEnd{Base: e.base(ev.TimestampUs)})
		e.reportTap(ev)
		e.finish()

	case StateTouchGuideGesture:
		current := ev.Point()
		if !samePosition(e.trajectory[len(e.trajectory)-1], current) {
			e.trajectory = append(e.trajectory, current)
		}
		gesture := e.classifier.Classify(e.trajectory)
		utils.Verbose("session %s classified %d samples as %s", e.Session(), len(e.trajectory), gesture)
		e.emit(types.TouchGuideGestureEnd{Base: e.base(ev.TimestampUs), Gesture: gesture})
		e.emit(types.TouchGuideEnd{Base: e.base(ev.TimestampUs)})
		e.emit(types.TouchEnd{Base: e.base(ev.TimestampUs)})
		e.finish()

	case StateMultiFingerGesture:
		e.forward(ev)
		delete(e.origins, ev.PointerID)
		// a TouchBegin already delivered is always closed
		if count == 0 {
			if e.touchBegan {
				e.emit(types.TouchEnd{Base: e.base(ev.TimestampUs)})
			}
			e.finish()
		}

	case StateDragging:
		e.forward(ev)
		// the drag ends with its own two fingers; any others keep passing through
		if e.dragReleased() {
			if e.touchBegan {
				e.emit(types.TouchEnd{Base: e.base(ev.TimestampUs)})
			}
			e.finish()
		}
	}
	return nil
}

func (e *Engine) onCancel(ev types.PointerEvent) {
	if e.state == StateIdle && e.tracker.Count() == 0 {
		return
	}
	if e.state.passthrough() || e.state == StateIdle {
		e.forward(ev)
	}
	utils.Verbose("session %s cancelled in %s", e.Session(), e.state)
	e.emitter.Abort()
	e.tracker.OnCancel()
	e.taps.Reset()
	e.reset()
}

// onGuideDelay runs when a single finger rested long enough to start touch guide.
func (e *Engine) onGuideDelay() {
	e.guideDelay = nil
	if e.state != StateTouchBegin || e.tracker.Count() != 1 {
		return
	}
	p, ok := e.tracker.Get(e.primary)
	if !ok {
		return
	}

	at := e.downTime + e.cfg.GuideEntryDelay.Microseconds()
	if p.TimestampUs > at {
		at = p.TimestampUs
	}
	e.state = StateTouchGuiding
	e.emit(types.TouchGuideBegin{Base: e.base(at)})
	e.emit(types.HoverMove{Base: e.base(at), X: p.X, Y: p.Y})
}

// movedAway reports whether p lies at least the movement threshold away from
// where the exploring finger went down.
func (e *Engine) movedAway(p types.TouchPoint) bool {
	return distance(e.downPoint, p) >= e.cfg.MoveThreshold
}

// startGesture opens a trajectory at the down point.
func (e *Engine) startGesture(to types.TouchPoint) {
	e.state = StateTouchGuideGesture
	e.taps.Reset()
	e.trajectory = []types.TouchPoint{e.downPoint, to}
	e.emit(types.TouchGuideGestureBegin{Base: e.base(to.TimestampUs)})
}

// enterMultiFinger switches to pass-through. The pointers that were already
// down are replayed to the sink so it sees a complete stream, except those
// listed in forwarded.
func (e *Engine) enterMultiFinger(ev types.PointerEvent, forwarded ...int) {
	e.state = StateMultiFingerGesture
	e.taps.Reset()

	active := e.tracker.Active()
	e.origins = make(map[int]types.TouchPoint, len(active))
	for _, p := range active {
		e.origins[p.PointerID] = p
		if p.PointerID == ev.PointerID || slices.Contains(forwarded, p.PointerID) {
			continue
		}
		e.forward(types.PointerEvent{
			PointerID:   p.PointerID,
			Action:      types.ActionDown,
			X:           p.X,
			Y:           p.Y,
			TimestampUs: p.TimestampUs,
		})
	}
	e.forward(ev)
}

// draggingTogether reports whether exactly two fingers have both translated
// past the drag threshold in roughly the same direction.
func (e *Engine) draggingTogether() bool {
	active := e.tracker.Active()
	if len(active) != 2 {
		return false
	}

	var dx, dy [2]float64
	for i, p := range active {
		origin, ok := e.origins[p.PointerID]
		if !ok {
			return false
		}
		dx[i], dy[i] = p.X-origin.X, p.Y-origin.Y
		if math.Hypot(dx[i], dy[i]) < e.cfg.DragThreshold {
			return false
		}
	}

	cosine := (dx[0]*dx[1] + dy[0]*dy[1]) / (math.Hypot(dx[0], dy[0]) * math.Hypot(dx[1], dy[1]))
	return cosine >= e.cfg.DragMinCosine
}

func (e *Engine) dragReleased() bool {
	for _, id := range e.dragging {
		if _, ok := e.tracker.Get(id); ok {
			return false
		}
	}
	return true
}

func (e *Engine) reportTap(ev types.PointerEvent) {
	if e.movedAway(ev.Point()) {
		// a press that travelled is not a tap and breaks any pending pair
		e.taps.Reset()
		return
	}
	if !e.taps.OnTouchEnd(ev.X, ev.Y, ev.TimestampUs) {
		return
	}
	if e.focus == nil {
		utils.Verbose("double tap in session %s without a focus provider", e.Session())
		return
	}
	ref, err := e.focus.CurrentFocus()
	if err != nil {
		utils.Verbose("dropping activation in session %s: %v", e.Session(), err)
		return
	}
	e.emit(types.Activation{Base: e.base(ev.TimestampUs), Element: ref})
}

func (e *Engine) emit(ev types.Event) {
	e.emitter.Emit(ev)
}

func (e *Engine) base(timestampUs int64) types.Base {
	return types.Base{Session: e.emitter.Session(), Time: timestampUs}
}

func (e *Engine) forward(ev types.PointerEvent) {
	if e.passthrough != nil {
		e.passthrough.Forward(ev)
	}
}

func (e *Engine) cancelGuideDelay() {
	if e.guideDelay != nil {
		e.guideDelay.Cancel()
		e.guideDelay = nil
	}
}

// finish closes a session that ran to completion.
func (e *Engine) finish() {
	e.emitter.End()
	e.reset()
}

func (e *Engine) reset() {
	e.cancelGuideDelay()
	e.state = StateIdle
	e.primary = -1
	e.trajectory = nil
	e.touchBegan = false
	e.origins = nil
}

func pointerIDs(points []types.TouchPoint) []int {
	out := make([]int, 0, len(points))
	for _, p := range points {
		out = append(out, p.PointerID)
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
