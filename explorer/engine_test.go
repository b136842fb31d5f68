package explorer

import (
	"math"
	"testing"
	"time"

	"github.com/mobile-next/touchguide/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_TapBeforeGuideDelay(t *testing.T) {
	h := newHarness(t)

	h.must(h.down(0, 100, 100, 0))
	assert.Equal(t, StateTouchBegin, h.engine.State())
	assert.Equal(t, 1, h.sched.Pending())

	h.must(h.up(0, 100, 100, 50))
	assert.Equal(t, StateIdle, h.engine.State())
	assert.Equal(t, 0, h.sched.Pending(), "guide entry delay must be cancelled")
	assert.Equal(t, []types.EventKind{types.KindTouchBegin, types.KindTouchEnd}, h.rec.kinds())
}

func TestEngine_PressAndReleaseAfterDelay(t *testing.T) {
	h := newHarness(t)

	h.must(h.down(0, 100, 100, 0))
	h.sched.Advance(h.cfg.GuideEntryDelay)
	assert.Equal(t, StateTouchGuiding, h.engine.State())

	h.must(h.move(0, 110, 105, 200))
	h.must(h.up(0, 110, 105, 300))

	assert.Equal(t, []types.EventKind{
		types.KindTouchBegin,
		types.KindTouchGuideBegin,
		types.KindTouchGuideEnd,
		types.KindTouchEnd,
	}, h.rec.kindsWithoutHover())
	assert.Equal(t, StateIdle, h.engine.State())
}

func TestEngine_GuideEntryEmitsHoverAtCurrentPosition(t *testing.T) {
	h := newHarness(t)

	h.must(h.down(0, 100, 100, 0))
	h.must(h.move(0, 120, 130, 50))
	h.sched.Advance(h.cfg.GuideEntryDelay)

	require.Len(t, h.rec.events, 3)
	hover, ok := h.rec.events[2].(types.HoverMove)
	require.True(t, ok)
	assert.Equal(t, 120.0, hover.X)
	assert.Equal(t, 130.0, hover.Y)
	assert.Equal(t, ms(150), hover.TimestampUs())
}

func TestEngine_HoverMovesWhileGuiding(t *testing.T) {
	h := newHarness(t)

	h.must(h.down(0, 100, 100, 0))
	h.must(h.move(0, 140, 100, 200))
	h.must(h.move(0, 180, 100, 220))
	// repeated sample is not a move
	h.must(h.move(0, 180, 100, 230))
	h.must(h.up(0, 180, 100, 240))

	assert.Equal(t, 3, h.rec.count(types.KindHoverMove))
	assert.Equal(t, 0, h.rec.count(types.KindTouchGuideGestureBegin))
}

func TestEngine_GestureClassification(t *testing.T) {
	tests := []struct {
		name     string
		points   [][2]float64
		expected types.GestureType
	}{
		{"right then up", [][2]float64{{2500, 2500}, {3500, 2500}, {5000, 2500}, {4000, 0}}, types.SwipeRightThenUp},
		{"left then up", [][2]float64{{2500, 2500}, {1500, 2500}, {0, 2500}, {1000, 0}}, types.SwipeLeftThenUp},
		{"down then left", [][2]float64{{2500, 2500}, {2500, 3500}, {2500, 5000}, {0, 4000}}, types.SwipeDownThenLeft},
		{"down then right", [][2]float64{{2500, 2500}, {2500, 3500}, {2500, 5000}, {5000, 4000}}, types.SwipeDownThenRight},
		{"left", [][2]float64{{2500, 2500}, {1000, 2500}, {0, 2500}}, types.SwipeLeft},
	}

	for _, tt := range tests {
		for _, dense := range []bool{false, true} {
			for _, waitForGuide := range []bool{false, true} {
				name := tt.name
				points := tt.points
				if dense {
					name += " resampled"
					points = resample(points, 50)
				}
				if waitForGuide {
					name += " after guide entry"
				}
				t.Run(name, func(t *testing.T) {
					h := newHarness(t)
					start := int64(10)
					if waitForGuide {
						start = 200
					}
					h.stroke(points, start, 10)

					assert.Equal(t, []types.GestureType{tt.expected}, h.rec.gestures())
					kinds := h.rec.kindsWithoutHover()
					assert.Equal(t, []types.EventKind{
						types.KindTouchBegin,
						types.KindTouchGuideBegin,
						types.KindTouchGuideGestureBegin,
						types.KindTouchGuideGestureEnd,
						types.KindTouchGuideEnd,
						types.KindTouchEnd,
					}, kinds)
					assert.Equal(t, StateIdle, h.engine.State())
				})
			}
		}
	}
}

func TestEngine_DisplacementDecidesBetweenHoverAndGesture(t *testing.T) {
	tests := []struct {
		name     string
		points   [][2]float64
		startMs  int64
		gestures []types.GestureType
	}{
		{
			name:     "fast swipe in small steps",
			points:   resample([][2]float64{{1000, 1000}, {3000, 1000}}, 100),
			startMs:  200,
			gestures: []types.GestureType{types.SwipeRight},
		},
		{
			name:     "slow drag before guide entry",
			points:   resample([][2]float64{{1000, 1000}, {1000, 1600}}, 50),
			startMs:  10,
			gestures: []types.GestureType{types.SwipeDown},
		},
		{
			name:     "slow drag while guiding",
			points:   resample([][2]float64{{1000, 1000}, {1600, 1000}}, 50),
			startMs:  200,
			gestures: []types.GestureType{types.SwipeRight},
		},
		{
			name:     "wandering near the down point",
			points:   [][2]float64{{1000, 1000}, {1150, 1000}, {1000, 1000}, {850, 1000}, {1000, 1000}, {1000, 1150}},
			startMs:  200,
			gestures: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.stroke(tt.points, tt.startMs, 8)

			assert.Equal(t, tt.gestures, h.rec.gestures())
			expected := 0
			if tt.gestures != nil {
				expected = 1
			}
			assert.Equal(t, expected, h.rec.count(types.KindTouchGuideGestureBegin))
			assert.Equal(t, StateIdle, h.engine.State())
		})
	}
}

func TestEngine_GestureTrajectoryStartsAtDownPoint(t *testing.T) {
	h := newHarness(t)

	// the step that crosses the threshold is only 50 units long, the whole
	// stroke is 600 units from the down point
	h.stroke([][2]float64{{2500, 2500}, {2650, 2500}, {2700, 2500}, {3100, 2500}}, 200, 10)

	assert.Equal(t, []types.GestureType{types.SwipeRight}, h.rec.gestures())
}

func TestEngine_SwipesNeverCountAsTaps(t *testing.T) {
	tests := []struct {
		name   string
		points [][2]float64
	}{
		{"fast swipes in small steps", resample([][2]float64{{1000, 1000}, {2000, 1000}}, 100)},
		{"release away from the down point", [][2]float64{{1000, 1000}, {2000, 1000}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			first, last := tt.points[0], tt.points[len(tt.points)-1]

			for _, base := range []int64{0, 100} {
				h.must(h.down(0, first[0], first[1], base))
				at := base
				for _, p := range tt.points[1 : len(tt.points)-1] {
					at++
					h.must(h.move(0, p[0], p[1], at))
				}
				h.must(h.up(0, last[0], last[1], at+1))
			}

			assert.Equal(t, 0, h.rec.count(types.KindActivation))
			assert.Equal(t, 2, h.rec.count(types.KindTouchEnd))
			assert.Empty(t, h.executor.clicked())
		})
	}
}

func TestEngine_RepeatedMoveDoesNotChangeClassification(t *testing.T) {
	run := func(repeat bool) []types.GestureType {
		h := newHarness(t)
		h.must(h.down(0, 2500, 2500, 0))
		h.must(h.move(0, 3500, 2500, 10))
		h.must(h.move(0, 5000, 2500, 20))
		if repeat {
			h.must(h.move(0, 5000, 2500, 25))
		}
		h.must(h.move(0, 4000, 0, 30))
		if repeat {
			h.must(h.move(0, 4000, 0, 35))
		}
		h.must(h.up(0, 4000, 0, 40))
		return h.rec.gestures()
	}

	assert.Equal(t, run(false), run(true))
	assert.Equal(t, []types.GestureType{types.SwipeRightThenUp}, run(true))
}

func TestEngine_ShortGestureIsUnrecognized(t *testing.T) {
	h := newHarness(t)

	h.must(h.down(0, 1000, 1000, 0))
	h.must(h.move(0, 1250, 1000, 10))
	h.must(h.up(0, 1250, 1000, 20))

	assert.Equal(t, []types.GestureType{types.GestureUnrecognized}, h.rec.gestures())
}

func TestEngine_DoubleTapActivatesFocusedElement(t *testing.T) {
	h := newHarness(t)

	h.must(h.down(0, 300, 300, 0))
	h.must(h.up(0, 300, 300, 0))
	h.must(h.down(0, 300, 300, 200))
	h.must(h.up(0, 300, 300, 200))

	require.Equal(t, 1, h.rec.count(types.KindActivation))
	last := h.rec.events[len(h.rec.events)-1]
	activation, ok := last.(types.Activation)
	require.True(t, ok, "activation follows the second TouchEnd")
	assert.Equal(t, h.focus.ref, activation.Element)

	assert.Eventually(t, func() bool {
		return len(h.executor.clicked()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestEngine_SlowSecondTapDoesNotActivate(t *testing.T) {
	h := newHarness(t)

	h.must(h.down(0, 300, 300, 0))
	h.must(h.up(0, 300, 300, 50))
	h.must(h.down(0, 300, 300, 500))
	h.must(h.up(0, 300, 300, 550))

	assert.Equal(t, 0, h.rec.count(types.KindActivation))
}

func TestEngine_UnresolvedFocusDropsActivation(t *testing.T) {
	h := newHarness(t)
	h.focus.err = errNoFocus

	h.must(h.down(0, 300, 300, 0))
	h.must(h.up(0, 300, 300, 20))
	h.must(h.down(0, 300, 300, 100))
	h.must(h.up(0, 300, 300, 120))

	assert.Equal(t, 0, h.rec.count(types.KindActivation))
	assert.Equal(t, 2, h.rec.count(types.KindTouchEnd))
	assert.Empty(t, h.executor.clicked())
}

func TestEngine_PureMultiFingerProducesNothing(t *testing.T) {
	h := newHarness(t)

	err := h.send(types.PointerEvent{
		PointerID: 0, Action: types.ActionDown, X: 0, Y: 0, TimestampUs: 0,
		Others: []types.TouchPoint{{PointerID: 1, X: 10, Y: 10, Pressed: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, StateMultiFingerGesture, h.engine.State())

	h.must(h.move(0, 5, 5, 10))
	h.must(h.move(1, 15, 15, 20))
	h.sched.Advance(time.Second)
	assert.Empty(t, h.rec.events)

	h.must(h.up(0, 5, 5, 1100))
	h.must(h.up(1, 15, 15, 1110))

	assert.Empty(t, h.rec.events)
	assert.Equal(t, StateIdle, h.engine.State())

	// the sink saw the adopted pointer go down first, then everything else
	require.Len(t, h.raw, 6)
	assert.Equal(t, types.ActionDown, h.raw[0].Action)
	assert.Equal(t, 1, h.raw[0].PointerID)
	assert.Equal(t, types.ActionDown, h.raw[1].Action)
	assert.Equal(t, 0, h.raw[1].PointerID)
}

func TestEngine_SecondFingerDuringTouchBegin(t *testing.T) {
	h := newHarness(t)

	h.must(h.down(0, 100, 100, 0))
	h.must(h.down(1, 400, 100, 20))
	assert.Equal(t, StateMultiFingerGesture, h.engine.State())
	assert.Equal(t, 0, h.sched.Pending())

	h.sched.Advance(time.Second)
	h.must(h.move(0, 120, 100, 1100))
	h.must(h.up(0, 120, 100, 1200))
	h.must(h.up(1, 400, 100, 1210))

	assert.Equal(t, []types.EventKind{types.KindTouchBegin, types.KindTouchEnd}, h.rec.kinds())
}

func TestEngine_SecondFingerDiscardsGesture(t *testing.T) {
	h := newHarness(t)

	h.must(h.down(0, 2500, 2500, 0))
	h.must(h.move(0, 3500, 2500, 10))
	assert.Equal(t, StateTouchGuideGesture, h.engine.State())

	h.must(h.down(1, 100, 100, 20))
	h.must(h.move(0, 5000, 2500, 30))
	h.must(h.up(0, 5000, 2500, 40))
	h.must(h.up(1, 100, 100, 50))

	assert.Empty(t, h.rec.gestures())
	assert.Equal(t, 0, h.rec.count(types.KindTouchGuideGestureEnd))
	assert.Equal(t, types.KindTouchEnd, h.rec.kinds()[len(h.rec.events)-1])
}

func TestEngine_TwoFingerDrag(t *testing.T) {
	h := newHarness(t)

	h.must(h.down(0, 1000, 1000, 0))
	h.must(h.down(1, 1200, 1000, 10))
	h.must(h.move(0, 1000, 1200, 20))
	assert.Equal(t, StateMultiFingerGesture, h.engine.State(), "one finger moving is not a drag")

	h.must(h.move(1, 1200, 1200, 30))
	assert.Equal(t, StateDragging, h.engine.State())

	h.must(h.down(2, 50, 50, 40))
	assert.Equal(t, StateDragging, h.engine.State(), "extra fingers do not end a drag")

	h.must(h.move(0, 1000, 1500, 50))
	h.must(h.up(0, 1000, 1500, 60))
	assert.Equal(t, StateDragging, h.engine.State())
	h.must(h.up(1, 1200, 1500, 60))
	assert.Equal(t, StateIdle, h.engine.State(), "the drag ends with its own two fingers")
	assert.Equal(t, []types.EventKind{types.KindTouchBegin, types.KindTouchEnd}, h.rec.kinds())

	// the extra finger keeps passing through until it lifts
	h.must(h.move(2, 60, 60, 65))
	h.must(h.up(2, 60, 60, 70))
	assert.Equal(t, StateIdle, h.engine.State())
	assert.Empty(t, h.engine.ActivePointers())

	assert.Equal(t, 0, h.rec.count(types.KindHoverMove))
	assert.Equal(t, []types.EventKind{types.KindTouchBegin, types.KindTouchEnd}, h.rec.kinds())

	moves := 0
	for _, ev := range h.raw {
		if ev.Action == types.ActionMove {
			moves++
		}
	}
	assert.Equal(t, 4, moves, "every move is passed through unmodified")
	last := h.raw[len(h.raw)-1]
	assert.Equal(t, types.ActionUp, last.Action)
	assert.Equal(t, 2, last.PointerID)
}

func TestEngine_FingerLeftAfterDragJoinsNextSession(t *testing.T) {
	h := newHarness(t)
	h.must(h.down(0, 1000, 1000, 0))
	h.must(h.down(1, 1200, 1000, 10))
	h.must(h.move(0, 1000, 1200, 20))
	h.must(h.move(1, 1200, 1200, 30))
	require.Equal(t, StateDragging, h.engine.State())
	h.must(h.down(2, 50, 50, 40))
	h.must(h.up(0, 1000, 1200, 50))
	h.must(h.up(1, 1200, 1200, 60))
	require.Equal(t, StateIdle, h.engine.State())
	first := h.engine.Session()
	forwarded := len(h.raw)

	// a new finger next to the one still resting is multi-finger straight away
	h.must(h.down(3, 500, 500, 100))
	assert.Equal(t, StateMultiFingerGesture, h.engine.State())
	assert.NotEqual(t, first, h.engine.Session())
	require.Len(t, h.raw, forwarded+1, "the resting finger is not replayed")
	assert.Equal(t, 3, h.raw[forwarded].PointerID)

	h.must(h.up(2, 50, 50, 110))
	h.must(h.up(3, 500, 500, 120))
	assert.Equal(t, StateIdle, h.engine.State())
	assert.Equal(t, []types.EventKind{types.KindTouchBegin, types.KindTouchEnd}, h.rec.kinds())
}

func TestEngine_CancelForwardsFingerLeftAfterDrag(t *testing.T) {
	h := newHarness(t)

	h.must(h.down(0, 1000, 1000, 0))
	h.must(h.down(1, 1200, 1000, 10))
	h.must(h.move(0, 1000, 1200, 20))
	h.must(h.move(1, 1200, 1200, 30))
	h.must(h.down(2, 50, 50, 40))
	h.must(h.up(0, 1000, 1200, 50))
	h.must(h.up(1, 1200, 1200, 60))
	require.Equal(t, StateIdle, h.engine.State())

	h.must(h.cancel(70))
	assert.Equal(t, types.ActionCancel, h.raw[len(h.raw)-1].Action)
	assert.Empty(t, h.engine.ActivePointers())
	assert.Equal(t, []types.EventKind{types.KindTouchBegin, types.KindTouchEnd}, h.rec.kinds())
}

func TestEngine_PinchIsNotADrag(t *testing.T) {
	h := newHarness(t)

	h.must(h.down(0, 1000, 1000, 0))
	h.must(h.down(1, 1200, 1000, 10))
	h.must(h.move(0, 700, 1000, 20))
	h.must(h.move(1, 1500, 1000, 30))

	assert.Equal(t, StateMultiFingerGesture, h.engine.State())
}

func TestEngine_CancelAfterGuideBegin(t *testing.T) {
	h := newHarness(t)

	h.must(h.down(0, 100, 100, 0))
	h.sched.Advance(h.cfg.GuideEntryDelay)
	first := h.engine.Session()
	before := len(h.rec.events)
	require.Equal(t, types.KindTouchGuideBegin, h.rec.events[1].Kind())

	h.must(h.cancel(200))
	assert.Equal(t, StateIdle, h.engine.State())
	assert.Len(t, h.rec.events, before, "cancel emits nothing")
	assert.Empty(t, h.engine.ActivePointers())

	// the cancelled pointer is gone
	assert.ErrorIs(t, h.up(0, 100, 100, 210), ErrUnknownPointerID)
	assert.Len(t, h.rec.events, before)

	// a fresh session starts cleanly
	h.must(h.down(0, 500, 500, 300))
	h.must(h.up(0, 500, 500, 320))
	assert.NotEqual(t, first, h.engine.Session())
	assert.Equal(t, []types.EventKind{types.KindTouchBegin, types.KindTouchEnd}, h.rec.kinds()[before:])
	for _, ev := range h.rec.events[before:] {
		assert.Equal(t, h.engine.Session(), ev.SessionID())
	}
}

func TestEngine_CancelDuringTouchBeginStopsDelay(t *testing.T) {
	h := newHarness(t)

	h.must(h.down(0, 100, 100, 0))
	h.must(h.cancel(10))
	h.sched.Advance(time.Second)

	assert.Equal(t, []types.EventKind{types.KindTouchBegin}, h.rec.kinds())
	assert.Equal(t, 0, h.sched.Pending())
}

func TestEngine_CancelForgetsPendingTap(t *testing.T) {
	h := newHarness(t)

	h.must(h.down(0, 300, 300, 0))
	h.must(h.up(0, 300, 300, 10))
	h.must(h.down(0, 300, 300, 50))
	h.must(h.cancel(60))
	h.must(h.down(0, 300, 300, 100))
	h.must(h.up(0, 300, 300, 110))

	assert.Equal(t, 0, h.rec.count(types.KindActivation))
}

func TestEngine_CancelInPassthroughIsForwarded(t *testing.T) {
	h := newHarness(t)

	h.must(h.down(0, 100, 100, 0))
	h.must(h.down(1, 300, 100, 10))
	h.must(h.cancel(20))

	require.NotEmpty(t, h.raw)
	assert.Equal(t, types.ActionCancel, h.raw[len(h.raw)-1].Action)
	assert.Equal(t, []types.EventKind{types.KindTouchBegin}, h.rec.kinds())
}

func TestEngine_RejectsBadEventsWithoutTransition(t *testing.T) {
	h := newHarness(t)
	h.must(h.down(0, 100, 100, 100))

	tests := []struct {
		name string
		ev   types.PointerEvent
		err  error
	}{
		{"duplicate down", types.PointerEvent{PointerID: 0, Action: types.ActionDown, TimestampUs: ms(110)}, ErrDuplicatePointerID},
		{"unknown move", types.PointerEvent{PointerID: 5, Action: types.ActionMove, TimestampUs: ms(110)}, ErrUnknownPointerID},
		{"unknown up", types.PointerEvent{PointerID: 5, Action: types.ActionUp, TimestampUs: ms(110)}, ErrUnknownPointerID},
		{"bad action", types.PointerEvent{PointerID: 0, Action: types.PointerAction(9), TimestampUs: ms(110)}, ErrMalformedEvent},
		{"negative id", types.PointerEvent{PointerID: -1, Action: types.ActionDown, TimestampUs: ms(110)}, ErrMalformedEvent},
		{"bad context pointer", types.PointerEvent{
			PointerID: 3, Action: types.ActionDown, TimestampUs: ms(110),
			Others: []types.TouchPoint{{PointerID: -4, X: 1, Y: 1}},
		}, ErrMalformedEvent},
		{"time goes backwards", types.PointerEvent{PointerID: 0, Action: types.ActionMove, TimestampUs: ms(50)}, ErrMalformedEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.engine.HandleEvent(tt.ev)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, StateTouchBegin, h.engine.State())
			assert.Equal(t, []types.EventKind{types.KindTouchBegin}, h.rec.kinds())
		})
	}
}

func TestEngine_RejectsMalformedContextPointers(t *testing.T) {
	tests := []struct {
		name  string
		other types.TouchPoint
	}{
		{"negative id", types.TouchPoint{PointerID: -1, X: 10, Y: 10}},
		{"nan x", types.TouchPoint{PointerID: 1, X: math.NaN(), Y: 10}},
		{"infinite y", types.TouchPoint{PointerID: 1, X: 10, Y: math.Inf(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			err := h.send(types.PointerEvent{
				PointerID: 0, Action: types.ActionDown, X: 100, Y: 100,
				Others: []types.TouchPoint{{PointerID: 2, X: 5, Y: 5}, tt.other},
			})
			assert.ErrorIs(t, err, ErrMalformedEvent)
			assert.Equal(t, StateIdle, h.engine.State())
			assert.Empty(t, h.engine.ActivePointers())
			assert.Empty(t, h.rec.events)
			assert.Empty(t, h.raw)

			// the same finger goes down cleanly afterwards
			h.must(h.down(0, 100, 100, 10))
			assert.Equal(t, StateTouchBegin, h.engine.State())
		})
	}
}

func TestEngine_MoveInIdleIsUnknown(t *testing.T) {
	h := newHarness(t)

	assert.ErrorIs(t, h.move(3, 10, 10, 0), ErrUnknownPointerID)
	assert.Equal(t, StateIdle, h.engine.State())
	assert.Empty(t, h.rec.events)
}
