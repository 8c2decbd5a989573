// Package model defines shared message structures for NpkBot.
package model

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrNotConfigured means no robot address has been saved yet.
	ErrNotConfigured = errors.New("server address not configured")
	// ErrInvalidAddress means an address failed the http(s):// check.
	ErrInvalidAddress = errors.New("invalid server address")
	// ErrUnknownCommand means a directive name is not one the robot accepts.
	ErrUnknownCommand = errors.New("unknown command")
)

// Position is one GPS fix reported by the robot.
type Position struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	CapturedAt time.Time `json:"captured_at"`
}

// SoilReading is one NPK measurement reported by the robot.
type SoilReading struct {
	Nitrogen   int       `json:"nitrogen"`
	Phosphorus int       `json:"phosphorus"`
	Potassium  int       `json:"potassium"`
	CapturedAt time.Time `json:"captured_at"`
}

// SoilRecord is a soil history entry with its fertilizer recommendation.
type SoilRecord struct {
	SoilReading
	Recommendation string `json:"recommendation"`
}

// Command is a single robot directive.
type Command string

const (
	CmdForward  Command = "forward"
	CmdBackward Command = "backward"
	CmdLeft     Command = "left"
	CmdRight    Command = "right"
	CmdStop     Command = "stop"
	CmdScanSoil Command = "scan_soil"
)

// ParseCommand validates a directive name.
func ParseCommand(s string) (Command, error) {
	c := Command(strings.TrimSpace(strings.ToLower(s)))
	switch c {
	case CmdForward, CmdBackward, CmdLeft, CmdRight, CmdStop, CmdScanSoil:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

// IsMotion reports whether c moves the robot.
func (c Command) IsMotion() bool {
	switch c {
	case CmdForward, CmdBackward, CmdLeft, CmdRight:
		return true
	}
	return false
}

// CommandRequest is the body of POST /control.
type CommandRequest struct {
	Command Command `json:"command"`
}

// Connectivity is derived from the most recent poll outcome.
type Connectivity string

const (
	ConnUnknown Connectivity = "unknown"
	ConnOnline  Connectivity = "online"
	ConnOffline Connectivity = "offline"
)

// FailurePolicy decides what a screen does with its data when a poll fails.
type FailurePolicy string

const (
	RetainOnFailure FailurePolicy = "retain"
	ClearOnFailure  FailurePolicy = "clear"
)

// Valid reports whether p is a known policy.
func (p FailurePolicy) Valid() bool {
	return p == RetainOnFailure || p == ClearOnFailure
}

// ValidateAddress checks that addr is an http:// or https:// URL with a host
// and nothing after the path, since endpoints are appended to it.
func ValidateAddress(addr string) error {
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		return fmt.Errorf("%w: %q must start with http:// or https://", ErrInvalidAddress, addr)
	}
	u, err := url.Parse(addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q has no host", ErrInvalidAddress, addr)
	}
	if u.RawQuery != "" || u.ForceQuery || u.Fragment != "" {
		return fmt.Errorf("%w: %q must not carry a query or fragment", ErrInvalidAddress, addr)
	}
	if u.User != nil {
		return fmt.Errorf("%w: %q must not carry credentials", ErrInvalidAddress, addr)
	}
	return nil
}
