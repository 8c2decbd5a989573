package store

import (
	"errors"
	"path/filepath"
	"testing"

	"NpkBot/internal/model"
)

func openTemp(t *testing.T) (*AddressStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open err=%v", err)
	}
	return s, path
}

func TestGetUnconfigured(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()

	if _, ok, err := s.Get(); err != nil || ok {
		t.Fatalf("expected empty store, ok=%v err=%v", ok, err)
	}
}

func TestSetThenGet(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()

	if err := s.Set("https://a.b"); err != nil {
		t.Fatalf("Set err=%v", err)
	}
	addr, ok, err := s.Get()
	if err != nil || !ok || addr != "https://a.b" {
		t.Fatalf("Get = %q ok=%v err=%v", addr, ok, err)
	}
}

func TestSetInvalidKeepsPrevious(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()

	if err := s.Set("http://192.168.1.10:5000"); err != nil {
		t.Fatalf("Set err=%v", err)
	}
	if err := s.Set("ftp://x"); !errors.Is(err, model.ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
	addr, ok, _ := s.Get()
	if !ok || addr != "http://192.168.1.10:5000" {
		t.Fatalf("previous address lost: %q ok=%v", addr, ok)
	}
}

func TestSurvivesReopen(t *testing.T) {
	s, path := openTemp(t)
	if err := s.Set("http://robot.local"); err != nil {
		t.Fatalf("Set err=%v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close err=%v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen err=%v", err)
	}
	defer s2.Close()

	addr, ok, _ := s2.Get()
	if !ok || addr != "http://robot.local" {
		t.Fatalf("address not persisted: %q ok=%v", addr, ok)
	}
}

func TestClear(t *testing.T) {
	s, path := openTemp(t)
	_ = s.Set("http://robot.local")
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear err=%v", err)
	}
	if _, ok, _ := s.Get(); ok {
		t.Fatalf("expected cleared store")
	}
	_ = s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen err=%v", err)
	}
	defer s2.Close()
	if _, ok, _ := s2.Get(); ok {
		t.Fatalf("clear was not persisted")
	}
}
