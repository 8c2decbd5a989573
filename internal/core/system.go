// Package core contains the runtime logic and orchestration layer for NpkBot.
// It defines the Commander, the telemetry poller, the map, soil and drive
// screens, and the System that manages their lifecycle.
package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"NpkBot/internal/config"
	"NpkBot/internal/model"
)

// AddressStore is the durable server address as the System needs it.
type AddressStore interface {
	AddressSource
	Set(addr string) error
	Clear() error
}

// RobotAPI is every robot endpoint the screens talk to.
type RobotAPI interface {
	PositionSource
	SoilSource
	ControlSender
	VideoSource
}

// System manages lifecycle of the screens (Map, Soil, Drive).
// It is built from the loaded configuration and the address store.
type System struct {
	cfg   *model.Config
	store AddressStore

	Commander *Commander
	Map       *MapScreen
	Soil      *SoilScreen
	Drive     *DriveScreen

	ctx       context.Context
	cancel    context.CancelFunc
	started   bool
	startLock sync.Mutex
}

// NewSystem constructs all screens from cfg. If the store is empty and the
// config names a default address, that address is saved first.
func NewSystem(cfg *model.Config, st AddressStore, robot RobotAPI) (*System, error) {
	if cfg.Robot.DefaultAddress != "" {
		if _, ok, err := st.Get(); err != nil {
			return nil, err
		} else if !ok {
			if err := st.Set(cfg.Robot.DefaultAddress); err != nil {
				return nil, fmt.Errorf("seed default address: %w", err)
			}
			log.Printf("[system] seeded server address %s", cfg.Robot.DefaultAddress)
		}
	}

	cmd := NewCommander(st, robot, config.Ms(cfg.Control.CooldownMs))
	t := cfg.Telemetry
	s := &System{
		cfg:       cfg,
		store:     st,
		Commander: cmd,
		Map:       NewMapScreen(st, robot, config.Ms(t.GPSIntervalMs), t.MapOnFailure),
		Soil:      NewSoilScreen(st, robot, config.Ms(t.SoilIntervalMs), t.SoilOnFailure, t.SoilHistoryLimit),
		Drive:     NewDriveScreen(st, cmd, robot, config.Ms(cfg.Control.ScanIndicatorMs)),
	}
	return s, nil
}

// StartAll mounts every screen. An unconfigured address is not an error:
// the screens stay idle until Reconfigure is called.
func (s *System) StartAll(ctx context.Context) error {
	s.startLock.Lock()
	defer s.startLock.Unlock()
	if s.started {
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	return s.mountAll()
}

// Reconfigure saves a new server address and remounts the screens against it.
// An invalid address leaves both the store and the running screens untouched.
func (s *System) Reconfigure(addr string) error {
	if err := s.store.Set(addr); err != nil {
		return err
	}

	s.startLock.Lock()
	defer s.startLock.Unlock()
	if !s.started {
		return nil
	}
	s.unmountAll()
	return s.mountAll()
}

// Forget clears the saved address and idles the screens.
func (s *System) Forget() error {
	s.startLock.Lock()
	defer s.startLock.Unlock()
	if s.started {
		s.unmountAll()
	}
	return s.store.Clear()
}

// Configured returns the current server address, if any.
func (s *System) Configured() (string, bool) {
	addr, ok, err := s.store.Get()
	if err != nil {
		log.Printf("[system] read address: %v", err)
		return "", false
	}
	return addr, ok
}

// StopAll unmounts every screen and cancels outstanding requests.
func (s *System) StopAll() {
	s.startLock.Lock()
	defer s.startLock.Unlock()
	if !s.started {
		return
	}
	s.unmountAll()
	s.cancel()
	s.started = false
}

func (s *System) mountAll() error {
	mounts := []struct {
		name  string
		mount func(context.Context) error
	}{
		{"map", s.Map.Mount},
		{"soil", s.Soil.Mount},
		{"drive", s.Drive.Mount},
	}
	var errs []error
	for _, m := range mounts {
		err := m.mount(s.ctx)
		switch {
		case err == nil:
			log.Printf("[system] %s screen mounted", m.name)
		case errors.Is(err, model.ErrNotConfigured):
			log.Printf("[system] %s screen idle: %v", m.name, err)
		default:
			errs = append(errs, fmt.Errorf("mount %s: %w", m.name, err))
		}
	}
	return errors.Join(errs...)
}

func (s *System) unmountAll() {
	s.Drive.Unmount()
	s.Soil.Unmount()
	s.Map.Unmount()
}
