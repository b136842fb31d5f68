package types

// EventKind names one member of the semantic event alphabet.
type EventKind string

const (
	KindTouchBegin             EventKind = "touchBegin"
	KindTouchEnd               EventKind = "touchEnd"
	KindTouchGuideBegin        EventKind = "touchGuideBegin"
	KindTouchGuideEnd          EventKind = "touchGuideEnd"
	KindTouchGuideGestureBegin EventKind = "touchGuideGestureBegin"
	KindTouchGuideGestureEnd   EventKind = "touchGuideGestureEnd"
	KindHoverMove              EventKind = "hoverMove"
	KindActivation             EventKind = "activation"
)

// ElementRef identifies an element holding accessibility focus.
type ElementRef struct {
	WindowID  int   `json:"windowId"`
	ElementID int64 `json:"elementId"`
}

// Event is a semantic accessibility event produced by the touch explorer.
type Event interface {
	Kind() EventKind
	SessionID() string
	TimestampUs() int64
}

// Base carries the fields every event shares.
type Base struct {
	Session string
	Time    int64
}

func (b Base) SessionID() string  { return b.Session }
func (b Base) TimestampUs() int64 { return b.Time }

type TouchBegin struct{ Base }

func (TouchBegin) Kind() EventKind { return KindTouchBegin }

type TouchEnd struct{ Base }

func (TouchEnd) Kind() EventKind { return KindTouchEnd }

type TouchGuideBegin struct{ Base }

func (TouchGuideBegin) Kind() EventKind { return KindTouchGuideBegin }

type TouchGuideEnd struct{ Base }

func (TouchGuideEnd) Kind() EventKind { return KindTouchGuideEnd }

type TouchGuideGestureBegin struct{ Base }

func (TouchGuideGestureBegin) Kind() EventKind { return KindTouchGuideGestureBegin }

// TouchGuideGestureEnd closes a gesture with its classification.
type TouchGuideGestureEnd struct {
	Base
	Gesture GestureType
}

func (TouchGuideGestureEnd) Kind() EventKind { return KindTouchGuideGestureEnd }

// HoverMove moves the exploration hover to X, Y.
type HoverMove struct {
	Base
	X, Y float64
}

func (HoverMove) Kind() EventKind { return KindHoverMove }

// Activation asks for a click on the focused element.
type Activation struct {
	Base
	Element ElementRef
}

func (Activation) Kind() EventKind { return KindActivation }

// Envelope is the flat JSON form of an Event.
type Envelope struct {
	Kind        EventKind   `json:"kind"`
	SessionID   string      `json:"sessionId"`
	TimestampUs int64       `json:"timestampUs"`
	Gesture     string      `json:"gesture,omitempty"`
	X           *float64    `json:"x,omitempty"`
	Y           *float64    `json:"y,omitempty"`
	Element     *ElementRef `json:"element,omitempty"`
}

// ToEnvelope flattens ev for serialization.
func ToEnvelope(ev Event) Envelope {
	env := Envelope{
		Kind:        ev.Kind(),
		SessionID:   ev.SessionID(),
		TimestampUs: ev.TimestampUs(),
	}
	switch e := ev.(type) {
	case TouchGuideGestureEnd:
		env.Gesture = e.Gesture.String()
	case HoverMove:
		x, y := e.X, e.Y
		env.X = &x
		env.Y = &y
	case Activation:
		ref := e.Element
		env.Element = &ref
	}
	return env
}
