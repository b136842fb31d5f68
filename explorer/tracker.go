package explorer

import (
	"fmt"
	"sort"

	"github.com/mobile-next/touchguide/types"
)

// Tracker keeps the set of pressed pointers and their last known samples.
type Tracker struct {
	max    int
	points map[int]types.TouchPoint
}

// NewTracker creates a tracker that accepts at most max simultaneous pointers.
func NewTracker(max int) *Tracker {
	return &Tracker{
		max:    max,
		points: make(map[int]types.TouchPoint),
	}
}

// OnDown registers a newly pressed pointer and returns the active count.
func (t *Tracker) OnDown(ev types.PointerEvent) (int, error) {
	if _, exists := t.points[ev.PointerID]; exists {
		return len(t.points), fmt.Errorf("%w: %d", ErrDuplicatePointerID, ev.PointerID)
	}
	if t.max > 0 && len(t.points) >= t.max {
		return len(t.points), fmt.Errorf("%w: limit %d", ErrTooManyPointers, t.max)
	}
	t.points[ev.PointerID] = ev.Point()
	return len(t.points), nil
}

// OnMove records the new position of a pressed pointer.
func (t *Tracker) OnMove(ev types.PointerEvent) error {
	if _, exists := t.points[ev.PointerID]; !exists {
		return fmt.Errorf("%w: %d", ErrUnknownPointerID, ev.PointerID)
	}
	t.points[ev.PointerID] = ev.Point()
	return nil
}

// OnUp removes a released pointer and returns the remaining active count.
func (t *Tracker) OnUp(ev types.PointerEvent) (int, error) {
	if _, exists := t.points[ev.PointerID]; !exists {
		return len(t.points), fmt.Errorf("%w: %d", ErrUnknownPointerID, ev.PointerID)
	}
	delete(t.points, ev.PointerID)
	return len(t.points), nil
}

// OnCancel forgets every pointer.
func (t *Tracker) OnCancel() {
	clear(t.points)
}

// Adopt registers pressed pointers reported as context by the input source
// that the tracker has not seen go down. It returns the ids it added.
func (t *Tracker) Adopt(points []types.TouchPoint, except int) []int {
	var added []int
	for _, p := range points {
		if p.PointerID == except {
			continue
		}
		if _, exists := t.points[p.PointerID]; exists {
			continue
		}
		if t.max > 0 && len(t.points) >= t.max-1 {
			// keep room for the pointer that is going down
			break
		}
		p.Pressed = true
		t.points[p.PointerID] = p
		added = append(added, p.PointerID)
	}
	return added
}

// Forget drops the given pointers without treating them as released.
func (t *Tracker) Forget(ids ...int) {
	for _, id := range ids {
		delete(t.points, id)
	}
}

func (t *Tracker) Count() int {
	return len(t.points)
}

func (t *Tracker) Get(id int) (types.TouchPoint, bool) {
	p, ok := t.points[id]
	return p, ok
}

// Active returns the pressed pointers ordered by id.
func (t *Tracker) Active() []types.TouchPoint {
	out := make([]types.TouchPoint, 0, len(t.points))
	for _, p := range t.points {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PointerID < out[j].PointerID })
	return out
}
