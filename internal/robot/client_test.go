package robot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"NpkBot/internal/model"
	"NpkBot/internal/parser"
)

func TestPosition_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gps" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"latitude": 1.0, "longitude": 2.0}`))
	}))
	defer srv.Close()

	c := NewClient(time.Second)
	pos, err := c.Position(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatalf("Position err=%v", err)
	}
	if pos.Latitude != 1.0 || pos.Longitude != 2.0 {
		t.Fatalf("unexpected position %+v", pos)
	}
	if pos.CapturedAt.IsZero() {
		t.Fatalf("CapturedAt should be stamped")
	}
}

func TestSoil_Malformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"nitrogen": 10}`))
	}))
	defer srv.Close()

	_, err := NewClient(time.Second).Soil(context.Background(), srv.URL)
	var me *MalformedResponseError
	if !errors.As(err, &me) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
}

func TestSoil_OutOfRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"nitrogen": 1e20, "phosphorus": -5, "potassium": 3.4e19}`))
	}))
	defer srv.Close()

	_, err := NewClient(time.Second).Soil(context.Background(), srv.URL)
	var me *MalformedResponseError
	if !errors.As(err, &me) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
	if !errors.Is(err, parser.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestSoil_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "sensor offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(time.Second).Soil(context.Background(), srv.URL)
	var se *HTTPStatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected HTTPStatusError 503, got %v", err)
	}
}

func TestControl_PostsCommand(t *testing.T) {
	var got model.CommandRequest
	var reqID, ctype string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/control" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		reqID = r.Header.Get("X-Request-ID")
		ctype = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	if err := NewClient(time.Second).Control(context.Background(), srv.URL, model.CmdForward); err != nil {
		t.Fatalf("Control err=%v", err)
	}
	if got.Command != model.CmdForward {
		t.Fatalf("expected forward, got %q", got.Command)
	}
	if reqID == "" {
		t.Fatalf("X-Request-ID header missing")
	}
	if ctype != "application/json" {
		t.Fatalf("unexpected content type %q", ctype)
	}
}

func TestControl_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewClient(time.Second).Control(context.Background(), url, model.CmdStop)
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestVideoFeedURL(t *testing.T) {
	c := NewClient(time.Second)
	if got := c.VideoFeedURL("http://bot:5000/"); got != "http://bot:5000/video_feed" {
		t.Fatalf("unexpected url %q", got)
	}
	if got := c.VideoFeedURL("http://bot:5000/api"); got != "http://bot:5000/api/video_feed" {
		t.Fatalf("unexpected url with prefix %q", got)
	}
}

func TestPosition_PathPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robot/gps" || r.URL.RawQuery != "" {
			t.Errorf("unexpected request %s?%s", r.URL.Path, r.URL.RawQuery)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"latitude": 1.0, "longitude": 2.0}`))
	}))
	defer srv.Close()

	if _, err := NewClient(time.Second).Position(context.Background(), srv.URL+"/robot/"); err != nil {
		t.Fatalf("Position err=%v", err)
	}
}
