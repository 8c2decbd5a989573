package model

import (
	"errors"
	"testing"
)

func TestValidateAddress(t *testing.T) {
	good := []string{"http://192.168.1.10:5000", "https://a.b", "http://bot:5000/api/"}
	for _, a := range good {
		if err := ValidateAddress(a); err != nil {
			t.Fatalf("ValidateAddress(%q) err=%v", a, err)
		}
	}

	bad := []string{"ftp://x", "192.168.1.10", "http://", "httpx://a.b", "",
		"http://bot:5000/?x=1", "http://bot:5000/#top", "http://bot:5000?", "http://u:p@bot:5000"}
	for _, a := range bad {
		err := ValidateAddress(a)
		if !errors.Is(err, ErrInvalidAddress) {
			t.Fatalf("ValidateAddress(%q) expected ErrInvalidAddress, got %v", a, err)
		}
	}
}

func TestParseCommand(t *testing.T) {
	c, err := ParseCommand(" Forward ")
	if err != nil || c != CmdForward {
		t.Fatalf("ParseCommand forward: got %q err=%v", c, err)
	}
	if !c.IsMotion() {
		t.Fatalf("forward should be a motion command")
	}
	if CmdScanSoil.IsMotion() || CmdStop.IsMotion() {
		t.Fatalf("scan_soil/stop are not motion commands")
	}
	if _, err := ParseCommand("jump"); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
}
