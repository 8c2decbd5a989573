package core

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// FetchFunc performs one telemetry request.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Result is one completed fetch as delivered to apply.
// Err is set on network, status or decode failure; Value is then zero.
type Result[T any] struct {
	Seq   uint64
	Value T
	Err   error
	At    time.Time
}

// PollHandle controls a running poll loop.
type PollHandle struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}

	// mu guards stopped and the sequence counters, and is held while apply runs.
	mu      sync.Mutex
	stopped bool

	stopOnce sync.Once
}

type pollLoop[T any] struct {
	h        *PollHandle
	interval time.Duration
	fetch    FetchFunc[T]
	apply    func(Result[T])

	issued  uint64
	applied uint64
}

// StartPoller fetches once immediately and then every interval until Stop.
// Ticks never wait for earlier fetches. A result is applied only if it is newer
// than every result applied so far; late arrivals from older ticks are dropped.
// apply runs with the handle lock held and must not call Stop.
func StartPoller[T any](ctx context.Context, name string, interval time.Duration, fetch FetchFunc[T], apply func(Result[T])) (*PollHandle, error) {
	if interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if fetch == nil || apply == nil {
		return nil, errors.New("poller: fetch and apply required")
	}

	ctx, cancel := context.WithCancel(ctx)
	h := &PollHandle{name: name, cancel: cancel, done: make(chan struct{})}
	l := &pollLoop[T]{h: h, interval: interval, fetch: fetch, apply: apply}

	go l.run(ctx)
	return h, nil
}

func (l *pollLoop[T]) run(ctx context.Context) {
	defer close(l.h.done)

	l.tick(ctx)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *pollLoop[T]) tick(ctx context.Context) {
	l.h.mu.Lock()
	if l.h.stopped {
		l.h.mu.Unlock()
		return
	}
	l.issued++
	seq := l.issued
	l.h.mu.Unlock()

	go func() {
		v, err := l.fetch(ctx)
		at := time.Now()

		l.h.mu.Lock()
		defer l.h.mu.Unlock()
		if l.h.stopped {
			return
		}
		if seq <= l.applied {
			log.Printf("[poller] %s: dropping stale result seq=%d (applied=%d)", l.h.name, seq, l.applied)
			return
		}
		l.applied = seq
		if err != nil {
			var zero T
			v = zero
		}
		l.apply(Result[T]{Seq: seq, Value: v, Err: err, At: at})
	}()
}

// Stop ends the loop and cancels in-flight fetches. Once Stop returns, apply
// is never called again, even for fetches that ignore cancellation.
func (h *PollHandle) Stop() {
	if h == nil {
		return
	}
	h.stopOnce.Do(func() {
		h.mu.Lock()
		h.stopped = true
		h.mu.Unlock()
		h.cancel()
		<-h.done
	})
}
