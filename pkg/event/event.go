// Package event is an in-process publish/subscribe bus.
//
//	bus := event.NewBus()
//	bus.Listen("sale.status", func(p any) { ... })
//	stop := bus.Subscribe("sale.status", handler) // for short-lived listeners
//	defer stop()
//	bus.Fire("sale.status", change)
package event

import "sync"

// Handler receives an event payload.
type Handler func(payload any)

type subscription struct {
	id uint64
	h  Handler
}

// Bus dispatches named events to registered listeners.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string][]subscription
}

func NewBus() *Bus {
	return &Bus{handlers: map[string][]subscription{}}
}

// Listen registers a handler for the lifetime of the bus.
func (b *Bus) Listen(event string, handler Handler) {
	b.Subscribe(event, handler)
}

// Subscribe registers a handler and returns a func that removes it. The
// returned func is safe to call more than once.
func (b *Bus) Subscribe(event string, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[event] = append(b.handlers[event], subscription{id: id, h: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(event, id) })
	}
}

func (b *Bus) remove(event string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.handlers[event]
	for i, s := range subs {
		if s.id == id {
			b.handlers[event] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

func (b *Bus) snapshot(event string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hs := make([]Handler, len(b.handlers[event]))
	for i, s := range b.handlers[event] {
		hs[i] = s.h
	}
	return hs
}

// Fire dispatches synchronously to all listeners. A nil bus drops the event.
func (b *Bus) Fire(event string, payload any) {
	if b == nil {
		return
	}
	for _, h := range b.snapshot(event) {
		h(payload)
	}
}

// FireAsync dispatches to every listener on its own goroutine and returns
// immediately.
func (b *Bus) FireAsync(event string, payload any) {
	if b == nil {
		return
	}
	for _, h := range b.snapshot(event) {
		go h(payload)
	}
}
