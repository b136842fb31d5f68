package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mobile-next/touchguide/explorer"
	"github.com/mobile-next/touchguide/types"
)

// TouchState is the result of touch.inject, touch.cancel and touch.state.
type TouchState struct {
	State    string             `json:"state"`
	Session  string             `json:"session,omitempty"`
	Pointers []types.TouchPoint `json:"pointers"`
}

type FocusSetParams struct {
	WindowID  int   `json:"windowId"`
	ElementID int64 `json:"elementId"`
}

type FocusPutParams struct {
	types.Element
	Focus bool `json:"focus,omitempty"`
}

func decodeParams(params json.RawMessage, v interface{}, fields string) error {
	if len(params) == 0 {
		return fmt.Errorf("%w: 'params' is required with fields: %s", errInvalidParams, fields)
	}
	if err := json.Unmarshal(params, v); err != nil {
		return fmt.Errorf("%w: %v. Expected fields: %s", errInvalidParams, err, fields)
	}
	return nil
}

// handleTouchInject accepts a single pointer event or an array of them. The
// events are handled in order and the first rejected one stops the batch.
func (s *Server) handleTouchInject(ctx context.Context, params json.RawMessage) (interface{}, error) {
	const fields = "pointerId, action, x, y, timestampUs, others"

	var events []types.PointerEvent
	if trimmed := bytes.TrimSpace(params); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := decodeParams(params, &events, fields); err != nil {
			return nil, err
		}
	} else {
		var ev types.PointerEvent
		if err := decodeParams(params, &ev, fields); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	for i, ev := range events {
		if err := s.service.Submit(ctx, ev); err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
	}

	return s.touchState(ctx)
}

func (s *Server) handleTouchCancel(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	if err := s.service.Do(ctx, func(e *explorer.Engine) { e.Cancel() }); err != nil {
		return nil, err
	}
	return s.touchState(ctx)
}

func (s *Server) handleTouchState(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return s.touchState(ctx)
}

func (s *Server) touchState(ctx context.Context) (TouchState, error) {
	var state TouchState
	err := s.service.Do(ctx, func(e *explorer.Engine) {
		state = TouchState{
			State:    e.State().String(),
			Session:  e.Session(),
			Pointers: e.ActivePointers(),
		}
	})
	if state.Pointers == nil {
		state.Pointers = []types.TouchPoint{}
	}
	return state, err
}

func (s *Server) handleFocusSet(_ context.Context, params json.RawMessage) (interface{}, error) {
	var p FocusSetParams
	if err := decodeParams(params, &p, "windowId, elementId"); err != nil {
		return nil, err
	}
	s.focus.SetFocus(types.ElementRef{WindowID: p.WindowID, ElementID: p.ElementID})
	return okResponse, nil
}

func (s *Server) handleFocusPut(_ context.Context, params json.RawMessage) (interface{}, error) {
	var p FocusPutParams
	if err := decodeParams(params, &p, "ref, label, bounds, focus"); err != nil {
		return nil, err
	}
	if p.Bounds.Width < 0 || p.Bounds.Height < 0 {
		return nil, fmt.Errorf("%w: bounds must not have a negative size", errInvalidParams)
	}

	s.focus.Put(p.Element)
	if p.Focus {
		s.focus.SetFocus(p.Ref)
	}
	return okResponse, nil
}

type configView struct {
	Source string `json:"source"`
	Touch  struct {
		GuideEntryDelayMs  int64   `json:"guideEntryDelayMs"`
		MoveThreshold      float64 `json:"moveThreshold"`
		DoubleTapTimeoutMs int64   `json:"doubleTapTimeoutMs"`
		DoubleTapSlop      float64 `json:"doubleTapSlop"`
		DragThreshold      float64 `json:"dragThreshold"`
		DragMinCosine      float64 `json:"dragMinCosine"`
		MinGestureDistance float64 `json:"minGestureDistance"`
		BendThreshold      float64 `json:"bendThreshold"`
		MinSegmentDistance float64 `json:"minSegmentDistance"`
		MaxPointers        int     `json:"maxPointers"`
	} `json:"touch"`
	FocusCacheSize   int  `json:"focusCacheSize"`
	DeviceKitEnabled bool `json:"deviceKitEnabled"`
}

func (s *Server) handleConfigGet(_ context.Context, _ json.RawMessage) (interface{}, error) {
	t := s.cfg.Touch

	var view configView
	view.Source = s.cfg.Source
	view.Touch.GuideEntryDelayMs = t.GuideEntryDelay.Milliseconds()
	view.Touch.MoveThreshold = t.MoveThreshold
	view.Touch.DoubleTapTimeoutMs = t.DoubleTapTimeout.Milliseconds()
	view.Touch.DoubleTapSlop = t.DoubleTapSlop
	view.Touch.DragThreshold = t.DragThreshold
	view.Touch.DragMinCosine = t.DragMinCosine
	view.Touch.MinGestureDistance = t.MinGestureDistance
	view.Touch.BendThreshold = t.BendThreshold
	view.Touch.MinSegmentDistance = t.MinSegmentDistance
	view.Touch.MaxPointers = t.MaxPointers
	view.FocusCacheSize = s.cfg.Focus.CacheSize
	view.DeviceKitEnabled = s.cfg.DeviceKit.Enabled

	return view, nil
}

func (s *Server) handleServerShutdown(_ context.Context, _ json.RawMessage) (interface{}, error) {
	s.Shutdown()
	return okResponse, nil
}
