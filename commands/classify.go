package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mobile-next/touchguide/config"
	"github.com/mobile-next/touchguide/explorer"
	"github.com/mobile-next/touchguide/types"
)

// ClassifyRequest represents the parameters for classifying a trajectory
type ClassifyRequest struct {
	// Points is a whitespace separated list of "x,y" pairs.
	Points string
	Touch  *config.Touch
}

type ClassifyResponse struct {
	Gesture string `json:"gesture"`
	Points  int    `json:"points"`
}

// ClassifyCommand runs the gesture classifier on a literal trajectory.
func ClassifyCommand(req ClassifyRequest) *CommandResponse {
	points, err := ParsePoints(req.Points)
	if err != nil {
		return NewErrorResponse(err)
	}

	touch := config.DefaultTouch()
	if req.Touch != nil {
		touch = *req.Touch
	}

	gesture := explorer.NewClassifier(touch).Classify(points)
	return NewSuccessResponse(ClassifyResponse{
		Gesture: gesture.String(),
		Points:  len(points),
	})
}

// ParsePoints reads "x,y x,y ..." into a trajectory sampled every millisecond.
func ParsePoints(s string) ([]types.TouchPoint, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("at least one point is required")
	}

	points := make([]types.TouchPoint, 0, len(fields))
	for i, field := range fields {
		xs, ys, ok := strings.Cut(field, ",")
		if !ok {
			return nil, fmt.Errorf("point %d: expected x,y, got %q", i+1, field)
		}
		x, err := strconv.ParseFloat(xs, 64)
		if err != nil {
			return nil, fmt.Errorf("point %d: invalid x: %w", i+1, err)
		}
		y, err := strconv.ParseFloat(ys, 64)
		if err != nil {
			return nil, fmt.Errorf("point %d: invalid y: %w", i+1, err)
		}
		points = append(points, types.TouchPoint{X: x, Y: y, TimestampUs: int64(i) * 1000, Pressed: true})
	}
	return points, nil
}
