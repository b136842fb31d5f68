package types

import (
	"fmt"
	"strings"
)

// PointerAction is the kind of change a pointer event reports.
type PointerAction int

const (
	ActionDown PointerAction = iota
	ActionMove
	ActionUp
	ActionCancel
)

func (a PointerAction) String() string {
	switch a {
	case ActionDown:
		return "down"
	case ActionMove:
		return "move"
	case ActionUp:
		return "up"
	case ActionCancel:
		return "cancel"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Valid reports whether a is one of the four known actions.
func (a PointerAction) Valid() bool {
	return a >= ActionDown && a <= ActionCancel
}

// ParsePointerAction accepts the lowercase names produced by String.
func ParsePointerAction(s string) (PointerAction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "down":
		return ActionDown, nil
	case "move":
		return ActionMove, nil
	case "up":
		return ActionUp, nil
	case "cancel":
		return ActionCancel, nil
	}
	return 0, fmt.Errorf("unknown pointer action %q", s)
}

func (a PointerAction) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("unknown pointer action %d", int(a))
	}
	return []byte(a.String()), nil
}

func (a *PointerAction) UnmarshalText(text []byte) error {
	parsed, err := ParsePointerAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// TouchPoint is one live or historical sample of a pointer.
type TouchPoint struct {
	PointerID   int     `json:"pointerId"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	TimestampUs int64   `json:"timestampUs"`
	Pressed     bool    `json:"pressed"`
}

// PointerEvent is a single input sample for the pointer whose state changed.
// Others carries the other pointers the input source reports as pressed.
type PointerEvent struct {
	PointerID   int           `json:"pointerId"`
	Action      PointerAction `json:"action"`
	X           float64       `json:"x"`
	Y           float64       `json:"y"`
	TimestampUs int64         `json:"timestampUs"`
	Others      []TouchPoint  `json:"others,omitempty"`
}

// Point returns the event position as a pressed TouchPoint.
func (e PointerEvent) Point() TouchPoint {
	return TouchPoint{
		PointerID:   e.PointerID,
		X:           e.X,
		Y:           e.Y,
		TimestampUs: e.TimestampUs,
		Pressed:     e.Action == ActionDown || e.Action == ActionMove,
	}
}
