package core

import (
	"context"
	"sync"
	"time"

	"NpkBot/internal/model"
	"NpkBot/internal/recommend"
	"NpkBot/internal/util"
)

// SoilSource fetches the robot's latest NPK reading.
type SoilSource interface {
	Soil(ctx context.Context, base string) (model.SoilReading, error)
}

// SoilView is what the soil dashboard displays, newest record first.
type SoilView struct {
	Records      []model.SoilRecord  `json:"records"`
	Connectivity model.Connectivity  `json:"connectivity"`
	LastFetch    time.Time           `json:"last_fetch,omitempty"`
	LastError    string              `json:"last_error,omitempty"`
	Policy       model.FailurePolicy `json:"policy"`
}

// SoilScreen polls /soil and keeps a session history of readings.
type SoilScreen struct {
	addr     AddressSource
	src      SoilSource
	interval time.Duration
	policy   model.FailurePolicy
	limit    int // 0 = unbounded

	mu     sync.Mutex
	view   SoilView
	handle *PollHandle
	base   string // address the view's data came from

	hub Hub[SoilView]
}

// NewSoilScreen creates an unmounted soil dashboard.
func NewSoilScreen(addr AddressSource, src SoilSource, interval time.Duration, policy model.FailurePolicy, limit int) *SoilScreen {
	return &SoilScreen{
		addr:     addr,
		src:      src,
		interval: interval,
		policy:   policy,
		limit:    limit,
		view:     SoilView{Connectivity: model.ConnUnknown, Policy: policy},
	}
}

// Mount starts polling the configured address. Mounting again restarts the loop;
// data fetched from a different address is discarded first.
func (s *SoilScreen) Mount(ctx context.Context) error {
	base, err := resolve(s.addr)
	if err != nil {
		return err
	}
	s.Unmount()

	s.mu.Lock()
	if base != s.base {
		s.view.Records = nil
		s.view.LastFetch = time.Time{}
		s.view.LastError = ""
		s.base = base
	}
	s.view.Connectivity = model.ConnUnknown
	s.hub.Publish(s.view.clone())
	s.mu.Unlock()

	h, err := StartPoller(ctx, "soil", s.interval,
		func(ctx context.Context) (model.SoilReading, error) { return s.src.Soil(ctx, base) },
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
func (s *SoilScreen) Unmount() {
	s.mu.Lock()
	h := s.handle
	s.handle = nil
	s.mu.Unlock()
	h.Stop()
}

// View returns a copy of the current view.
func (s *SoilScreen) View() SoilView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.clone()
}

// Subscribe streams views after every applied poll.
func (s *SoilScreen) Subscribe() (<-chan SoilView, func()) {
	return s.hub.Subscribe()
}

func (s *SoilScreen) apply(r Result[model.SoilReading]) {
	s.mu.Lock()
	if r.Err != nil {
		if s.view.Connectivity != model.ConnOffline {
			util.Warn("soil: robot unreachable: %v", r.Err)
		}
		s.view.Connectivity = model.ConnOffline
		s.view.LastError = r.Err.Error()
		if s.policy == model.ClearOnFailure {
			s.view.Records = nil
		}
	} else {
		rd := r.Value
		rec := model.SoilRecord{
			SoilReading:    rd,
			Recommendation: recommend.Recommend(rd.Nitrogen, rd.Phosphorus, rd.Potassium),
		}
		records := make([]model.SoilRecord, 0, len(s.view.Records)+1)
		records = append(records, rec)
		records = append(records, s.view.Records...)
		if s.limit > 0 && len(records) > s.limit {
			records = records[:s.limit]
		}
		s.view.Records = records
		s.view.Connectivity = model.ConnOnline
		s.view.LastFetch = r.At
		s.view.LastError = ""
	}
	s.hub.Publish(s.view.clone())
	s.mu.Unlock()
}

func (v SoilView) clone() SoilView {
	if v.Records != nil {
		v.Records = append([]model.SoilRecord(nil), v.Records...)
	}
	return v
}
