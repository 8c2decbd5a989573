package sim

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"NpkBot/internal/model"
	"NpkBot/internal/robot"
)

func newServer(t *testing.T, r *Robot) (*httptest.Server, *robot.Client) {
	t.Helper()
	srv := httptest.NewServer(r.Handler())
	t.Cleanup(srv.Close)
	return srv, robot.NewClient(time.Second)
}

func TestRobot_ServesTelemetry(t *testing.T) {
	r := NewRobot(model.Position{Latitude: 1.0, Longitude: 2.0}, 1)
	srv, c := newServer(t, r)

	pos, err := c.Position(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Position err=%v", err)
	}
	if pos.Latitude != 1.0 || pos.Longitude != 2.0 {
		t.Fatalf("unexpected position %+v", pos)
	}

	soil, err := c.Soil(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Soil err=%v", err)
	}
	if soil.Nitrogen < 5 || soil.Phosphorus < 5 || soil.Potassium < 10 {
		t.Fatalf("unexpected soil %+v", soil)
	}
}

func TestRobot_MotionNudgesPosition(t *testing.T) {
	r := NewRobot(model.Position{Latitude: 10, Longitude: 20}, 1)
	srv, c := newServer(t, r)

	for _, cmd := range []model.Command{model.CmdForward, model.CmdForward, model.CmdRight} {
		if err := c.Control(context.Background(), srv.URL, cmd); err != nil {
			t.Fatalf("Control(%s) err=%v", cmd, err)
		}
	}
	pos := r.Position()
	if pos.Latitude <= 10 || pos.Longitude <= 20 {
		t.Fatalf("expected position to move north-east, got %+v", pos)
	}
	if r.Moving() != model.CmdRight {
		t.Fatalf("expected moving right, got %q", r.Moving())
	}

	if err := c.Control(context.Background(), srv.URL, model.CmdStop); err != nil {
		t.Fatalf("stop err=%v", err)
	}
	if r.Moving() != "" {
		t.Fatalf("expected stopped")
	}
}

func TestRobot_ReplayScan(t *testing.T) {
	r := NewRobot(model.Position{}, 1)
	if err := r.loadReplay(strings.NewReader("# n,p,k\n10,20,30\n\n40,50,60\n")); err != nil {
		t.Fatalf("loadReplay err=%v", err)
	}
	srv, c := newServer(t, r)

	want := [][3]int{{10, 20, 30}, {40, 50, 60}, {10, 20, 30}}
	for i, w := range want {
		if err := c.Control(context.Background(), srv.URL, model.CmdScanSoil); err != nil {
			t.Fatalf("scan err=%v", err)
		}
		s, err := c.Soil(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("Soil err=%v", err)
		}
		if s.Nitrogen != w[0] || s.Phosphorus != w[1] || s.Potassium != w[2] {
			t.Fatalf("scan %d: got %+v want %v", i, s, w)
		}
	}
}

func TestRobot_ReplayRejectsBadRows(t *testing.T) {
	r := NewRobot(model.Position{}, 1)
	if err := r.loadReplay(strings.NewReader("10,x,30\n")); err == nil {
		t.Fatalf("expected error for bad row")
	}
	if err := r.loadReplay(strings.NewReader("\n# only comments\n")); err == nil {
		t.Fatalf("expected error for empty replay")
	}
}

func TestRobot_RejectsUnknownCommand(t *testing.T) {
	r := NewRobot(model.Position{}, 1)
	srv, _ := newServer(t, r)

	resp, err := http.Post(srv.URL+"/control", "application/json", strings.NewReader(`{"command":"jump"}`))
	if err != nil {
		t.Fatalf("POST err=%v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

type failingMotor struct{ calls int }

func (f *failingMotor) Drive(model.Command) error {
	f.calls++
	return errors.New("motor stalled")
}

func TestRobot_ActuatorFailureIsBadGateway(t *testing.T) {
	r := NewRobot(model.Position{Latitude: 1}, 1)
	m := &failingMotor{}
	r.SetActuator(m)
	srv, c := newServer(t, r)

	err := c.Control(context.Background(), srv.URL, model.CmdForward)
	var se *robot.HTTPStatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %v", err)
	}
	if m.calls != 1 || r.Position().Latitude != 1 {
		t.Fatalf("position must not move when the motor fails")
	}
}

func TestRobot_VideoUnavailable(t *testing.T) {
	r := NewRobot(model.Position{}, 1)
	srv, c := newServer(t, r)

	resp, err := http.Get(c.VideoFeedURL(srv.URL))
	if err != nil {
		t.Fatalf("GET err=%v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestRobot_StopBeforeStart(t *testing.T) {
	r := NewRobot(model.Position{}, 1)
	r.Stop()

	done := make(chan error, 1)
	go func() { done <- r.Start("127.0.0.1:0") }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start after Stop err=%v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Start kept serving after Stop")
	}
}
