package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"NpkBot/internal/model"
	"NpkBot/internal/util"
)

// ErrCommandDropped is returned when a directive arrives while another is in
// flight or during the cooldown that follows it. Dropped directives are not queued.
var ErrCommandDropped = errors.New("command dropped: robot busy")

// AddressSource reads the configured robot base address.
type AddressSource interface {
	Get() (string, bool, error)
}

// ControlSender posts one directive to the robot.
type ControlSender interface {
	Control(ctx context.Context, base string, cmd model.Command) error
}

// Commander sends directives with at most one in flight.
// Failures are returned to the caller and never retried: replaying a movement
// after an unknown delay could move the robot unexpectedly.
type Commander struct {
	addr     AddressSource
	robot    ControlSender
	cooldown time.Duration

	slot chan struct{} // single in-flight slot

	mu      sync.Mutex
	readyAt time.Time
	now     func() time.Time
}

// NewCommander creates a Commander that waits cooldown after each directive.
func NewCommander(addr AddressSource, robot ControlSender, cooldown time.Duration) *Commander {
	return &Commander{
		addr:     addr,
		robot:    robot,
		cooldown: cooldown,
		slot:     make(chan struct{}, 1),
		now:      time.Now,
	}
}

// Send issues cmd unless another directive is in flight or cooling down.
func (c *Commander) Send(ctx context.Context, cmd model.Command) error {
	base, err := c.base()
	if err != nil {
		return err
	}

	select {
	case c.slot <- struct{}{}:
	default:
		return ErrCommandDropped
	}

	c.mu.Lock()
	ready := c.readyAt
	c.mu.Unlock()
	if c.now().Before(ready) {
		<-c.slot
		return ErrCommandDropped
	}

	return c.do(ctx, base, cmd)
}

// Press starts a motion directive.
func (c *Commander) Press(ctx context.Context, cmd model.Command) error {
	if !cmd.IsMotion() {
		return fmt.Errorf("%w: %q is not a motion command", model.ErrUnknownCommand, cmd)
	}
	return c.Send(ctx, cmd)
}

// Release sends stop regardless of how the preceding press went. Instead of
// being dropped it waits for the slot and the cooldown, bounded by ctx.
func (c *Commander) Release(ctx context.Context) error {
	base, err := c.base()
	if err != nil {
		return err
	}

	select {
	case c.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.Lock()
	wait := c.readyAt.Sub(c.now())
	c.mu.Unlock()
	if wait > 0 {
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			<-c.slot
			return ctx.Err()
		}
	}

	return c.do(ctx, base, model.CmdStop)
}

// Busy reports whether a directive is currently in flight.
func (c *Commander) Busy() bool {
	return len(c.slot) > 0
}

// do sends cmd while holding the slot and starts the cooldown when done.
func (c *Commander) do(ctx context.Context, base string, cmd model.Command) error {
	defer func() {
		c.mu.Lock()
		c.readyAt = c.now().Add(c.cooldown)
		c.mu.Unlock()
		<-c.slot
	}()

	if err := c.robot.Control(ctx, base, cmd); err != nil {
		util.Error("command %s failed: %v", cmd, err)
		return fmt.Errorf("send %s: %w", cmd, err)
	}
	log.Printf("[commander] sent %s", cmd)
	return nil
}

func (c *Commander) base() (string, error) {
	return resolve(c.addr)
}
