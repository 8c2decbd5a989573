package core

import "sync"

// Hub fans views out to subscribers. Each subscriber holds at most one
// pending view; a slow reader only ever sees the latest.
type Hub[T any] struct {
	mu   sync.Mutex
	subs map[chan T]struct{}
}

// Subscribe returns a channel of views and a cancel func that closes it.
func (h *Hub[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)
	h.mu.Lock()
	if h.subs == nil {
		h.subs = make(map[chan T]struct{})
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers v to every subscriber without blocking.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		// drop the stale pending view, then retry once
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}
