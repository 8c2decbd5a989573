package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"NpkBot/internal/model"
)

func TestCommander_DropsWhileInFlight(t *testing.T) {
	robot := newFakeRobot()
	robot.gate = make(chan struct{})
	c := NewCommander(configured("http://10.0.0.5:5000"), robot, 0)

	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), model.CmdForward) }()
	<-robot.entered

	if !c.Busy() {
		t.Fatalf("expected commander to be busy")
	}
	if err := c.Send(context.Background(), model.CmdLeft); !errors.Is(err, ErrCommandDropped) {
		t.Fatalf("expected ErrCommandDropped, got %v", err)
	}

	close(robot.gate)
	if err := <-done; err != nil {
		t.Fatalf("forward err=%v", err)
	}
	calls := robot.Calls()
	if len(calls) != 1 || calls[0] != model.CmdForward {
		t.Fatalf("expected only forward on the wire, got %v", calls)
	}
}

func TestCommander_Cooldown(t *testing.T) {
	robot := newFakeRobot()
	clk := &fakeClock{t: time.Unix(1000, 0)}
	c := NewCommander(configured("http://10.0.0.5:5000"), robot, 300*time.Millisecond)
	c.now = clk.Now

	if err := c.Send(context.Background(), model.CmdForward); err != nil {
		t.Fatalf("first send err=%v", err)
	}
	clk.Advance(100 * time.Millisecond)
	if err := c.Send(context.Background(), model.CmdRight); !errors.Is(err, ErrCommandDropped) {
		t.Fatalf("expected drop during cooldown, got %v", err)
	}
	clk.Advance(250 * time.Millisecond)
	if err := c.Send(context.Background(), model.CmdRight); err != nil {
		t.Fatalf("send after cooldown err=%v", err)
	}

	calls := robot.Calls()
	if len(calls) != 2 || calls[1] != model.CmdRight {
		t.Fatalf("unexpected calls %v", calls)
	}
}

func TestCommander_NotConfigured(t *testing.T) {
	robot := newFakeRobot()
	c := NewCommander(&fakeAddr{}, robot, 0)

	if err := c.Send(context.Background(), model.CmdForward); !errors.Is(err, model.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if err := c.Release(context.Background()); !errors.Is(err, model.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured on release, got %v", err)
	}
	if n := len(robot.Calls()); n != 0 {
		t.Fatalf("expected no network calls, got %d", n)
	}
}

func TestCommander_ReleaseAfterFailedPress(t *testing.T) {
	robot := newFakeRobot()
	robot.failOn[model.CmdForward] = errUnreachable
	c := NewCommander(configured("http://10.0.0.5:5000"), robot, 0)

	err := c.Press(context.Background(), model.CmdForward)
	if !errors.Is(err, errUnreachable) {
		t.Fatalf("expected press to surface robot error, got %v", err)
	}
	if err := c.Release(context.Background()); err != nil {
		t.Fatalf("release err=%v", err)
	}

	calls := robot.Calls()
	if len(calls) != 2 || calls[1] != model.CmdStop {
		t.Fatalf("expected forward then stop, got %v", calls)
	}
}

func TestCommander_ReleaseWaitsForInFlight(t *testing.T) {
	robot := newFakeRobot()
	robot.gate = make(chan struct{})
	c := NewCommander(configured("http://10.0.0.5:5000"), robot, 20*time.Millisecond)

	pressDone := make(chan error, 1)
	go func() { pressDone <- c.Press(context.Background(), model.CmdBackward) }()
	<-robot.entered

	releaseDone := make(chan error, 1)
	go func() { releaseDone <- c.Release(context.Background()) }()

	select {
	case err := <-releaseDone:
		t.Fatalf("release returned early err=%v", err)
	case <-time.After(30 * time.Millisecond):
	}

	close(robot.gate)
	if err := <-pressDone; err != nil {
		t.Fatalf("press err=%v", err)
	}
	select {
	case err := <-releaseDone:
		if err != nil {
			t.Fatalf("release err=%v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("release never completed")
	}

	calls := robot.Calls()
	if len(calls) != 2 || calls[0] != model.CmdBackward || calls[1] != model.CmdStop {
		t.Fatalf("expected backward then stop, got %v", calls)
	}
}

func TestCommander_ReleaseHonoursContext(t *testing.T) {
	robot := newFakeRobot()
	robot.gate = make(chan struct{})
	defer close(robot.gate)
	c := NewCommander(configured("http://10.0.0.5:5000"), robot, 0)

	go func() { _ = c.Send(context.Background(), model.CmdLeft) }()
	<-robot.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.Release(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestCommander_PressRejectsNonMotion(t *testing.T) {
	robot := newFakeRobot()
	c := NewCommander(configured("http://10.0.0.5:5000"), robot, 0)

	if err := c.Press(context.Background(), model.CmdScanSoil); !errors.Is(err, model.ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	if len(robot.Calls()) != 0 {
		t.Fatalf("expected no calls")
	}
}
