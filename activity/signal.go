package activity

import "sync"

// Signal is one kind of user interaction.
type Signal string

const (
	SignalPointerDown Signal = "pointerdown"
	SignalPointerMove Signal = "pointermove"
	SignalKeyPress    Signal = "keypress"
	SignalScroll      Signal = "scroll"
	SignalTouchStart  Signal = "touchstart"
	SignalClick       Signal = "click"
)

// Signals lists every tracked interaction.
var Signals = []Signal{
	SignalPointerDown,
	SignalPointerMove,
	SignalKeyPress,
	SignalScroll,
	SignalTouchStart,
	SignalClick,
}

// IsValid reports whether s is a tracked interaction.
func (s Signal) IsValid() bool {
	for _, candidate := range Signals {
		if candidate == s {
			return true
		}
	}
	return false
}

// Source delivers signals to subscribers until they unsubscribe.
type Source interface {
	Subscribe(fn func(Signal)) (unsubscribe func())
}

// Hub is an in-process Source. The zero value is ready to use.
type Hub struct {
	mu   sync.RWMutex
	subs map[uint64]func(Signal)
	next uint64
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]func(Signal))}
}

// Subscribe registers fn. The returned function removes it and is safe to
// call more than once.
func (h *Hub) Subscribe(fn func(Signal)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[uint64]func(Signal))
	}
	id := h.next
	h.next++
	h.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Emit delivers s to every subscriber synchronously. Unknown signals are
// ignored.
func (h *Hub) Emit(s Signal) {
	if !s.IsValid() {
		return
	}
	h.mu.RLock()
	fns := make([]func(Signal), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(s)
	}
}

// Subscribers reports the number of registered subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
