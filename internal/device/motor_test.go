package device

import (
	"errors"
	"testing"
	"time"

	"NpkBot/internal/model"
)

type fakeDevice struct {
	written []string
	replies []string
	readErr error
	closed  bool
}

func (f *fakeDevice) ReadLine(timeout time.Duration) (string, error) {
	if f.readErr != nil {
		return "", f.readErr
	}
	if len(f.replies) == 0 {
		return "", ErrReadTimeout
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func (f *fakeDevice) WriteLine(s string) error {
	f.written = append(f.written, s)
	return nil
}

func (f *fakeDevice) Close() error {
	f.closed = true
	return nil
}

func TestMotorLink_WritesUppercaseDirective(t *testing.T) {
	dev := &fakeDevice{replies: []string{"OK\r\n"}}
	m := NewMotorLink(dev, 10*time.Millisecond)

	if err := m.Drive(model.CmdForward); err != nil {
		t.Fatalf("Drive err=%v", err)
	}
	if len(dev.written) != 1 || dev.written[0] != "FORWARD" {
		t.Fatalf("unexpected writes %v", dev.written)
	}
}

func TestMotorLink_RejectedReply(t *testing.T) {
	dev := &fakeDevice{replies: []string{"ERR overcurrent"}}
	m := NewMotorLink(dev, 10*time.Millisecond)

	if err := m.Drive(model.CmdLeft); err == nil {
		t.Fatalf("expected error for rejected directive")
	}
}

func TestMotorLink_MissingAckIsTolerated(t *testing.T) {
	dev := &fakeDevice{readErr: ErrReadTimeout}
	m := NewMotorLink(dev, 10*time.Millisecond)

	if err := m.Drive(model.CmdStop); err != nil {
		t.Fatalf("expected missing ack to be tolerated, got %v", err)
	}
	if err := m.Close(); err != nil || !dev.closed {
		t.Fatalf("expected device closed, err=%v", err)
	}
}

func TestMotorLink_NoAckWait(t *testing.T) {
	dev := &fakeDevice{readErr: errors.New("must not read")}
	m := NewMotorLink(dev, 0)
	if err := m.Drive(model.CmdRight); err != nil {
		t.Fatalf("Drive err=%v", err)
	}
}
