package actions

import (
	"context"
	"fmt"
	"math"

	"github.com/mobile-next/touchguide/types"
	"github.com/mobile-next/touchguide/utils"
)

// Executor performs the default action of an element.
type Executor interface {
	Click(ctx context.Context, ref types.ElementRef) error
}

// BoundsResolver maps an element to its on-screen rectangle.
type BoundsResolver interface {
	Bounds(ref types.ElementRef) (types.Rect, error)
}

// Tapper injects a tap at screen coordinates.
type Tapper interface {
	Tap(ctx context.Context, x, y int) error
}

// LogExecutor only records clicks. It is used when no device agent is configured.
type LogExecutor struct{}

func (LogExecutor) Click(_ context.Context, ref types.ElementRef) error {
	utils.Info("click element %d in window %d", ref.ElementID, ref.WindowID)
	return nil
}

// TapExecutor clicks an element by tapping the centre of its bounds.
type TapExecutor struct {
	bounds BoundsResolver
	tapper Tapper
}

func NewTapExecutor(bounds BoundsResolver, tapper Tapper) *TapExecutor {
	return &TapExecutor{bounds: bounds, tapper: tapper}
}

func (e *TapExecutor) Click(ctx context.Context, ref types.ElementRef) error {
	rect, err := e.bounds.Bounds(ref)
	if err != nil {
		return fmt.Errorf("failed to resolve bounds: %w", err)
	}

	cx, cy := rect.Center()
	x, y := int(math.Round(cx)), int(math.Round(cy))
	utils.Verbose("tapping element %d at %d,%d", ref.ElementID, x, y)

	if err := e.tapper.Tap(ctx, x, y); err != nil {
		return fmt.Errorf("failed to tap element %d: %w", ref.ElementID, err)
	}
	return nil
}
