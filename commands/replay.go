package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mobile-next/touchguide/config"
	"github.com/mobile-next/touchguide/explorer"
	"github.com/mobile-next/touchguide/focus"
	"github.com/mobile-next/touchguide/types"
	"github.com/mobile-next/touchguide/utils"
)

// ReplayRequest represents the parameters for replaying a recorded trace
type ReplayRequest struct {
	// TracePath is a file of JSON lines, one pointer event per line. "-" reads stdin.
	TracePath string
	// Trace is used instead of TracePath when set.
	Trace io.Reader
	// Touch overrides the engine configuration; zero means defaults.
	Touch *config.Touch
	// Focus, when set, is the element that holds accessibility focus during the replay.
	Focus *types.ElementRef
	// Settle lets the clock run past the last event so pending delays fire.
	Settle bool
}

// RejectedEvent is a trace line the engine refused.
type RejectedEvent struct {
	Line  int    `json:"line"`
	Error string `json:"error"`
}

// ReplayResponse is the outcome of a replay.
type ReplayResponse struct {
	Events     []types.Envelope `json:"events"`
	Sessions   int              `json:"sessions"`
	Gestures   []string         `json:"gestures,omitempty"`
	Rejected   []RejectedEvent  `json:"rejected,omitempty"`
	FinalState string           `json:"finalState"`
}

// ReplayCommand feeds a trace through a touch exploration engine on a
// virtual clock driven by the trace timestamps.
func ReplayCommand(req ReplayRequest) *CommandResponse {
	trace := req.Trace
	if trace == nil {
		if req.TracePath == "" {
			return NewErrorResponse(fmt.Errorf("trace path is required"))
		}
		if req.TracePath == "-" {
			trace = os.Stdin
		} else {
			f, err := os.Open(req.TracePath)
			if err != nil {
				return NewErrorResponse(fmt.Errorf("error opening trace: %w", err))
			}
			defer func() { _ = f.Close() }()
			trace = f
		}
	}

	touch := config.DefaultTouch()
	if req.Touch != nil {
		touch = *req.Touch
	}

	var provider explorer.FocusProvider
	if req.Focus != nil {
		registry, err := focus.NewRegistry(1)
		if err != nil {
			return NewErrorResponse(err)
		}
		registry.Put(types.Element{Ref: *req.Focus})
		registry.SetFocus(*req.Focus)
		provider = registry
	}

	response, err := replay(trace, touch, provider, req.Settle)
	if err != nil {
		return NewErrorResponse(err)
	}
	return NewSuccessResponse(response)
}

func replay(trace io.Reader, touch config.Touch, provider explorer.FocusProvider, settle bool) (ReplayResponse, error) {
	sched := explorer.NewVirtualScheduler()
	engine := explorer.NewEngine(explorer.Options{
		Config:    touch,
		Scheduler: sched,
		Focus:     provider,
	})

	response := ReplayResponse{Events: []types.Envelope{}}
	sessions := map[string]bool{}
	engine.AddListener(explorer.ListenerFunc(func(ev types.Event) {
		response.Events = append(response.Events, types.ToEnvelope(ev))
		sessions[ev.SessionID()] = true
		if end, ok := ev.(types.TouchGuideGestureEnd); ok {
			response.Gestures = append(response.Gestures, end.Gesture.String())
		}
	}))

	scanner := bufio.NewScanner(trace)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		var ev types.PointerEvent
		if err := json.Unmarshal([]byte(text), &ev); err != nil {
			response.Rejected = append(response.Rejected, RejectedEvent{Line: line, Error: err.Error()})
			continue
		}

		sched.AdvanceTo(time.Duration(ev.TimestampUs) * time.Microsecond)
		if err := engine.HandleEvent(ev); err != nil {
			utils.Verbose("trace line %d rejected: %v", line, err)
			response.Rejected = append(response.Rejected, RejectedEvent{Line: line, Error: err.Error()})
		}
	}
	if err := scanner.Err(); err != nil {
		return ReplayResponse{}, fmt.Errorf("error reading trace: %w", err)
	}

	if settle {
		sched.Advance(touch.GuideEntryDelay)
	}

	response.Sessions = len(sessions)
	response.FinalState = engine.State().String()
	return response, nil
}
