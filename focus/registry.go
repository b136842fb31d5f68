package focus

import (
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mobile-next/touchguide/types"
	"github.com/mobile-next/touchguide/utils"
)

// ErrUnresolvedFocusTarget is returned when nothing usable holds accessibility focus.
var ErrUnresolvedFocusTarget = errors.New("unresolved focus target")

// Registry remembers recently reported elements and which one holds
// accessibility focus. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	elements *lru.Cache[types.ElementRef, types.Element]
	focused  *types.ElementRef
}

// NewRegistry creates a registry that keeps at most size elements.
func NewRegistry(size int) (*Registry, error) {
	cache, err := lru.New[types.ElementRef, types.Element](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create element cache: %w", err)
	}
	return &Registry{elements: cache}, nil
}

// Put records or refreshes an element.
func (r *Registry) Put(element types.Element) {
	r.elements.Add(element.Ref, element)
}

// SetFocus moves accessibility focus to ref. The element does not need to be
// known yet; CurrentFocus fails until it is.
func (r *Registry) SetFocus(ref types.ElementRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.focused = &ref
	utils.Verbose("accessibility focus moved to element %d in window %d", ref.ElementID, ref.WindowID)
}

// ClearFocus drops accessibility focus.
func (r *Registry) ClearFocus() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.focused = nil
}

// CurrentFocus returns the focused element if it is still known.
func (r *Registry) CurrentFocus() (types.ElementRef, error) {
	r.mu.RLock()
	focused := r.focused
	r.mu.RUnlock()

	if focused == nil {
		return types.ElementRef{}, fmt.Errorf("%w: nothing is focused", ErrUnresolvedFocusTarget)
	}
	if !r.elements.Contains(*focused) {
		return types.ElementRef{}, fmt.Errorf("%w: element %d in window %d is unknown",
			ErrUnresolvedFocusTarget, focused.ElementID, focused.WindowID)
	}
	return *focused, nil
}

// Element returns what is known about ref.
func (r *Registry) Element(ref types.ElementRef) (types.Element, error) {
	element, ok := r.elements.Get(ref)
	if !ok {
		return types.Element{}, fmt.Errorf("%w: element %d in window %d is unknown",
			ErrUnresolvedFocusTarget, ref.ElementID, ref.WindowID)
	}
	return element, nil
}

// Bounds returns the on-screen rectangle of ref.
func (r *Registry) Bounds(ref types.ElementRef) (types.Rect, error) {
	element, err := r.Element(ref)
	if err != nil {
		return types.Rect{}, err
	}
	return element.Bounds, nil
}

// RemoveWindow forgets every element of a window, e.g. when it closes.
func (r *Registry) RemoveWindow(windowID int) int {
	removed := 0
	for _, ref := range r.elements.Keys() {
		if ref.WindowID == windowID {
			r.elements.Remove(ref)
			removed++
		}
	}

	r.mu.Lock()
	if r.focused != nil && r.focused.WindowID == windowID {
		r.focused = nil
	}
	r.mu.Unlock()
	return removed
}

// Len returns the number of known elements.
func (r *Registry) Len() int {
	return r.elements.Len()
}
