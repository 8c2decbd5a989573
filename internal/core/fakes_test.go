package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"NpkBot/internal/model"
)

type fakeAddr struct {
	mu   sync.Mutex
	addr string
	ok   bool
}

func configured(addr string) *fakeAddr { return &fakeAddr{addr: addr, ok: true} }

func (f *fakeAddr) Get() (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addr, f.ok, nil
}

func (f *fakeAddr) Set(addr string) error {
	if err := model.ValidateAddress(addr); err != nil {
		return err
	}
	f.mu.Lock()
	f.addr, f.ok = addr, true
	f.mu.Unlock()
	return nil
}

func (f *fakeAddr) Clear() error {
	f.mu.Lock()
	f.addr, f.ok = "", false
	f.mu.Unlock()
	return nil
}

// fakeRobot records directives and serves canned telemetry.
type fakeRobot struct {
	mu      sync.Mutex
	calls   []model.Command
	bases   []string
	failOn  map[model.Command]error
	gate    chan struct{} // if set, Control blocks until closed
	entered chan model.Command

	pos     model.Position
	posErr  error
	soil    model.SoilReading
	soilErr error
}

func newFakeRobot() *fakeRobot {
	return &fakeRobot{failOn: map[model.Command]error{}, entered: make(chan model.Command, 16)}
}

func (f *fakeRobot) Control(ctx context.Context, base string, cmd model.Command) error {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.bases = append(f.bases, base)
	gate := f.gate
	err := f.failOn[cmd]
	f.mu.Unlock()

	select {
	case f.entered <- cmd:
	default:
	}
	if gate != nil {
		<-gate
	}
	return err
}

func (f *fakeRobot) Calls() []model.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Command(nil), f.calls...)
}

func (f *fakeRobot) Position(ctx context.Context, base string) (model.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos, f.posErr
}

func (f *fakeRobot) Soil(ctx context.Context, base string) (model.SoilReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.soil, f.soilErr
}

func (f *fakeRobot) VideoFeedURL(base string) string { return base + "/video_feed" }

func (f *fakeRobot) setTelemetry(pos model.Position, soil model.SoilReading, err error) {
	f.mu.Lock()
	f.pos, f.soil = pos, soil
	f.posErr, f.soilErr = err, err
	f.mu.Unlock()
}

var errUnreachable = errors.New("dial tcp: connection refused")

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
