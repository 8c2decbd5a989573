package device

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"NpkBot/internal/model"
)

// MotorLink forwards drive directives to a serial motor controller, one
// directive per line, and waits briefly for an acknowledgement.
type MotorLink struct {
	mu     sync.Mutex
	dev    Device
	ackFor time.Duration
}

// NewMotorLink wraps dev. ackFor of 0 disables waiting for acknowledgements.
func NewMotorLink(dev Device, ackFor time.Duration) *MotorLink {
	return &MotorLink{dev: dev, ackFor: ackFor}
}

// Drive writes cmd to the controller. Replies other than "OK" are errors;
// a missing reply is only logged since many controllers never answer.
func (m *MotorLink) Drive(cmd model.Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.dev.WriteLine(strings.ToUpper(string(cmd))); err != nil {
		return fmt.Errorf("motor write %s: %w", cmd, err)
	}
	if m.ackFor <= 0 {
		return nil
	}
	reply, err := m.dev.ReadLine(m.ackFor)
	if err != nil {
		log.Printf("[motor] no ack for %s: %v", cmd, err)
		return nil
	}
	reply = strings.TrimSpace(reply)
	if !strings.EqualFold(reply, "OK") {
		return fmt.Errorf("motor rejected %s: %q", cmd, reply)
	}
	return nil
}

// Close releases the underlying device.
func (m *MotorLink) Close() error {
	return m.dev.Close()
}
