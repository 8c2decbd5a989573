package core

import (
	"context"
	"sync"
	"time"

	"NpkBot/internal/model"
	"NpkBot/internal/util"
)

// PositionSource fetches the robot's GPS fix.
type PositionSource interface {
	Position(ctx context.Context, base string) (model.Position, error)
}

// MapView is what the map screen displays.
type MapView struct {
	Position     *model.Position     `json:"position"`
	Connectivity model.Connectivity  `json:"connectivity"`
	LastFetch    time.Time           `json:"last_fetch,omitempty"`
	LastError    string              `json:"last_error,omitempty"`
	Policy       model.FailurePolicy `json:"policy"`
}

// MapScreen polls /gps and keeps the latest position.
type MapScreen struct {
	addr     AddressSource
	src      PositionSource
	interval time.Duration
	policy   model.FailurePolicy

	mu     sync.Mutex
	view   MapView
	handle *PollHandle
	base   string // address the view's data came from

	hub Hub[MapView]
}

// NewMapScreen creates an unmounted map screen.
func NewMapScreen(addr AddressSource, src PositionSource, interval time.Duration, policy model.FailurePolicy) *MapScreen {
	return &MapScreen{
		addr:     addr,
		src:      src,
		interval: interval,
		policy:   policy,
		view:     MapView{Connectivity: model.ConnUnknown, Policy: policy},
	}
}

// Mount starts polling the configured address. Mounting again restarts the loop;
// data fetched from a different address is discarded first.
func (s *MapScreen) Mount(ctx context.Context) error {
	base, err := resolve(s.addr)
	if err != nil {
		return err
	}
	s.Unmount()

	s.mu.Lock()
	if base != s.base {
		s.view.Position = nil
		s.view.LastFetch = time.Time{}
		s.view.LastError = ""
		s.base = base
	}
	s.view.Connectivity = model.ConnUnknown
	s.hub.Publish(s.view.clone())
	s.mu.Unlock()

	h, err := StartPoller(ctx, "gps", s.interval,
		func(ctx context.Context) (model.Position, error) { return s.src.Position(ctx, base) },
		s.apply,
	)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.handle = h
	s.mu.Unlock()
	return nil
}

// Unmount stops polling. No update is applied after it returns.
func (s *MapScreen) Unmount() {
	s.mu.Lock()
	h := s.handle
	s.handle = nil
	s.mu.Unlock()
	h.Stop()
}

// View returns a copy of the current view.
func (s *MapScreen) View() MapView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.clone()
}

// Subscribe streams views after every applied poll.
func (s *MapScreen) Subscribe() (<-chan MapView, func()) {
	return s.hub.Subscribe()
}

func (s *MapScreen) apply(r Result[model.Position]) {
	s.mu.Lock()
	if r.Err != nil {
		if s.view.Connectivity != model.ConnOffline {
			util.Warn("map: robot unreachable: %v", r.Err)
		}
		s.view.Connectivity = model.ConnOffline
		s.view.LastError = r.Err.Error()
		if s.policy == model.ClearOnFailure {
			s.view.Position = nil
		}
	} else {
		pos := r.Value
		s.view.Position = &pos
		s.view.Connectivity = model.ConnOnline
		s.view.LastFetch = r.At
		s.view.LastError = ""
	}
	s.hub.Publish(s.view.clone())
	s.mu.Unlock()
}

func (v MapView) clone() MapView {
	if v.Position != nil {
		p := *v.Position
		v.Position = &p
	}
	return v
}

func resolve(src AddressSource) (string, error) {
	addr, ok, err := src.Get()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", model.ErrNotConfigured
	}
	return addr, nil
}
