package explorer

import "fmt"

// SessionState is the state of the single live touch session.
type SessionState int

const (
	StateIdle SessionState = iota
	StateTouchBegin
	StateTouchGuiding
	StateTouchGuideGesture
	StateMultiFingerGesture
	StateDragging
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateTouchBegin:
		return "TouchBegin"
	case StateTouchGuiding:
		return "TouchGuiding"
	case StateTouchGuideGesture:
		return "TouchGuideGesture"
	case StateMultiFingerGesture:
		return "MultiFingerGesture"
	case StateDragging:
		return "Dragging"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// passthrough reports whether raw input bypasses exploration in s.
func (s SessionState) passthrough() bool {
	return s == StateMultiFingerGesture || s == StateDragging
}
