package types

import "fmt"

// Direction is the dominant direction of one run of a swipe.
type Direction int

const (
	DirectionUp Direction = iota
	DirectionDown
	DirectionLeft
	DirectionRight
)

func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "Up"
	case DirectionDown:
		return "Down"
	case DirectionLeft:
		return "Left"
	case DirectionRight:
		return "Right"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// GestureType identifies a classified touch-guide gesture.
type GestureType int

const (
	GestureUnrecognized GestureType = iota

	SwipeUp
	SwipeDown
	SwipeLeft
	SwipeRight

	SwipeUpThenLeft
	SwipeUpThenRight
	SwipeUpThenDown
	SwipeDownThenLeft
	SwipeDownThenRight
	SwipeDownThenUp
	SwipeLeftThenUp
	SwipeLeftThenDown
	SwipeLeftThenRight
	SwipeRightThenUp
	SwipeRightThenDown
	SwipeRightThenLeft
)

var gestureNames = map[GestureType]string{
	GestureUnrecognized: "Unrecognized",
	SwipeUp:             "SwipeUp",
	SwipeDown:           "SwipeDown",
	SwipeLeft:           "SwipeLeft",
	SwipeRight:          "SwipeRight",
	SwipeUpThenLeft:     "SwipeUpThenLeft",
	SwipeUpThenRight:    "SwipeUpThenRight",
	SwipeUpThenDown:     "SwipeUpThenDown",
	SwipeDownThenLeft:   "SwipeDownThenLeft",
	SwipeDownThenRight:  "SwipeDownThenRight",
	SwipeDownThenUp:     "SwipeDownThenUp",
	SwipeLeftThenUp:     "SwipeLeftThenUp",
	SwipeLeftThenDown:   "SwipeLeftThenDown",
	SwipeLeftThenRight:  "SwipeLeftThenRight",
	SwipeRightThenUp:    "SwipeRightThenUp",
	SwipeRightThenDown:  "SwipeRightThenDown",
	SwipeRightThenLeft:  "SwipeRightThenLeft",
}

func (g GestureType) String() string {
	if name, ok := gestureNames[g]; ok {
		return name
	}
	return fmt.Sprintf("GestureType(%d)", int(g))
}

// ParseGestureType is the inverse of String.
func ParseGestureType(s string) (GestureType, error) {
	for g, name := range gestureNames {
		if name == s {
			return g, nil
		}
	}
	return GestureUnrecognized, fmt.Errorf("unknown gesture type %q", s)
}

func (g GestureType) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

func (g *GestureType) UnmarshalText(text []byte) error {
	parsed, err := ParseGestureType(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// SingleSwipe maps a direction to its one-run gesture.
func SingleSwipe(d Direction) GestureType {
	switch d {
	case DirectionUp:
		return SwipeUp
	case DirectionDown:
		return SwipeDown
	case DirectionLeft:
		return SwipeLeft
	case DirectionRight:
		return SwipeRight
	}
	return GestureUnrecognized
}

var composed = map[[2]Direction]GestureType{
	{DirectionUp, DirectionLeft}:    SwipeUpThenLeft,
	{DirectionUp, DirectionRight}:   SwipeUpThenRight,
	{DirectionUp, DirectionDown}:    SwipeUpThenDown,
	{DirectionDown, DirectionLeft}:  SwipeDownThenLeft,
	{DirectionDown, DirectionRight}: SwipeDownThenRight,
	{DirectionDown, DirectionUp}:    SwipeDownThenUp,
	{DirectionLeft, DirectionUp}:    SwipeLeftThenUp,
	{DirectionLeft, DirectionDown}:  SwipeLeftThenDown,
	{DirectionLeft, DirectionRight}: SwipeLeftThenRight,
	{DirectionRight, DirectionUp}:   SwipeRightThenUp,
	{DirectionRight, DirectionDown}: SwipeRightThenDown,
	{DirectionRight, DirectionLeft}: SwipeRightThenLeft,
}

// ComposeGesture returns the two-run gesture "first then second".
// Two runs in the same direction collapse into the single swipe.
func ComposeGesture(first, second Direction) GestureType {
	if first == second {
		return SingleSwipe(first)
	}
	if g, ok := composed[[2]Direction{first, second}]; ok {
		return g
	}
	return GestureUnrecognized
}
