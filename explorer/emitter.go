package explorer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mobile-next/touchguide/types"
	"github.com/mobile-next/touchguide/utils"
)

// Listener receives semantic events on the engine's serial context.
// Implementations must not block.
type Listener interface {
	OnEvent(ev types.Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ev types.Event)

func (f ListenerFunc) OnEvent(ev types.Event) {
	f(ev)
}

// ActionExecutor performs the click requested by an Activation.
type ActionExecutor interface {
	Click(ctx context.Context, ref types.ElementRef) error
}

// Emitter delivers the events of one touch session at a time, in order.
// Events stamped with another session, or emitted after Abort, are dropped.
type Emitter struct {
	listeners []Listener
	executor  ActionExecutor
	timeout   time.Duration

	session string
	open    bool
	count   int
	newID   func() string
}

func NewEmitter(executor ActionExecutor, timeout time.Duration) *Emitter {
	return &Emitter{
		executor: executor,
		timeout:  timeout,
		newID:    uuid.NewString,
	}
}

func (e *Emitter) AddListener(l Listener) {
	e.listeners = append(e.listeners, l)
}

// Begin opens a new session and returns its id.
func (e *Emitter) Begin() string {
	e.session = e.newID()
	e.open = true
	e.count = 0
	return e.session
}

// Session returns the id of the current or most recent session.
func (e *Emitter) Session() string {
	return e.session
}

// Open reports whether the current session still accepts events.
func (e *Emitter) Open() bool {
	return e.open
}

// Count returns how many events the current session delivered.
func (e *Emitter) Count() int {
	return e.count
}

// Emit delivers ev to every listener and reports whether it was delivered.
func (e *Emitter) Emit(ev types.Event) bool {
	if !e.open || ev.SessionID() != e.session {
		utils.WithSession(ev.SessionID()).Debugf("dropping %s outside of the open session", ev.Kind())
		return false
	}

	e.count++
	for _, l := range e.listeners {
		l.OnEvent(ev)
	}

	if activation, ok := ev.(types.Activation); ok {
		e.dispatchActivation(activation)
	}
	return true
}

// End closes the session after its final event.
func (e *Emitter) End() {
	e.open = false
}

// Abort closes the session without delivering anything further.
func (e *Emitter) Abort() {
	if e.open {
		utils.WithSession(e.session).Debugf("session aborted after %d events", e.count)
	}
	e.open = false
}

func (e *Emitter) dispatchActivation(ev types.Activation) {
	if e.executor == nil {
		return
	}

	executor, timeout := e.executor, e.timeout
	go func() {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		if err := executor.Click(ctx, ev.Element); err != nil {
			utils.WithSession(ev.SessionID()).Warnf("activation of element %d in window %d failed: %v",
				ev.Element.ElementID, ev.Element.WindowID, err)
		}
	}()
}
