package explorer

import (
	"math"

	"github.com/mobile-next/touchguide/config"
	"github.com/mobile-next/touchguide/types"
)

// Classifier turns a recorded touch-guide trajectory into a GestureType.
//
// The trajectory is split at the sample that deviates most from the chord
// joining its first and last samples. If that deviation stays below the bend
// threshold the whole trajectory is one run, otherwise it is two runs. Each
// run takes the direction of its larger axis of displacement.
type Classifier struct {
	minDistance   float64
	bendThreshold float64
	minSegment    float64
}

func NewClassifier(cfg config.Touch) *Classifier {
	return &Classifier{
		minDistance:   cfg.MinGestureDistance,
		bendThreshold: cfg.BendThreshold,
		minSegment:    cfg.MinSegmentDistance,
	}
}

// Classify returns GestureUnrecognized for trajectories that travel less than
// the minimum gesture distance.
func (c *Classifier) Classify(trajectory []types.TouchPoint) types.GestureType {
	points := dedupe(trajectory)
	if len(points) < 2 || pathLength(points) < c.minDistance {
		return types.GestureUnrecognized
	}

	first, last := points[0], points[len(points)-1]
	bend, deviation := maxDeviation(points)
	if bend < 0 || deviation < c.bendThreshold {
		return c.singleRun(first, last)
	}

	corner := points[bend]
	firstLen := distance(first, corner)
	secondLen := distance(corner, last)
	switch {
	case firstLen < c.minSegment && secondLen < c.minSegment:
		return c.singleRun(first, last)
	case firstLen < c.minSegment:
		return types.SingleSwipe(direction(corner, last))
	case secondLen < c.minSegment:
		return types.SingleSwipe(direction(first, corner))
	}
	return types.ComposeGesture(direction(first, corner), direction(corner, last))
}

func (c *Classifier) singleRun(from, to types.TouchPoint) types.GestureType {
	if distance(from, to) < c.minSegment {
		return types.GestureUnrecognized
	}
	return types.SingleSwipe(direction(from, to))
}

// maxDeviation returns the index of the interior sample farthest from the
// chord and its distance. For a closed path the distance to the start is used.
func maxDeviation(points []types.TouchPoint) (int, float64) {
	first, last := points[0], points[len(points)-1]
	chordX, chordY := last.X-first.X, last.Y-first.Y
	chord := math.Hypot(chordX, chordY)

	index, best := -1, 0.0
	for i := 1; i < len(points)-1; i++ {
		p := points[i]
		var d float64
		if chord == 0 {
			d = distance(first, p)
		} else {
			d = math.Abs(chordX*(p.Y-first.Y)-chordY*(p.X-first.X)) / chord
		}
		if d > best {
			index, best = i, d
		}
	}
	return index, best
}

// direction uses screen coordinates: y grows downwards. Ties go horizontal.
func direction(from, to types.TouchPoint) types.Direction {
	dx, dy := to.X-from.X, to.Y-from.Y
	if math.Abs(dx) >= math.Abs(dy) {
		if dx >= 0 {
			return types.DirectionRight
		}
		return types.DirectionLeft
	}
	if dy > 0 {
		return types.DirectionDown
	}
	return types.DirectionUp
}

func dedupe(points []types.TouchPoint) []types.TouchPoint {
	out := make([]types.TouchPoint, 0, len(points))
	for _, p := range points {
		if n := len(out); n > 0 && samePosition(out[n-1], p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func pathLength(points []types.TouchPoint) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += distance(points[i-1], points[i])
	}
	return total
}

func distance(a, b types.TouchPoint) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

func samePosition(a, b types.TouchPoint) bool {
	return a.X == b.X && a.Y == b.Y
}
