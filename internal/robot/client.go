// Package robot is the HTTP client for the robot's REST endpoints.
//
//	GET  /gps        -> {"latitude", "longitude"}
//	GET  /soil       -> {"nitrogen", "phosphorus", "potassium"}
//	POST /control    <- {"command"}
//	GET  /video_feed    streamed, never parsed here
package robot

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"NpkBot/internal/model"
	"NpkBot/internal/parser"
)

// maxBody caps how much of a telemetry response is read.
const maxBody = 1 << 20

// Client issues single, unretried requests against a base address.
// The base address is passed per call because it can change at runtime.
type Client struct {
	HTTP   *http.Client
	parser *parser.JSONParser
	now    func() time.Time
}

// NewClient creates a client whose requests time out after timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		HTTP:   &http.Client{Timeout: timeout},
		parser: parser.NewJSONParser(),
		now:    time.Now,
	}
}

// Position fetches the current GPS fix.
func (c *Client) Position(ctx context.Context, base string) (model.Position, error) {
	body, err := c.get(ctx, "gps", base, "gps")
	if err != nil {
		return model.Position{}, err
	}
	pos, err := c.parser.DecodePosition(string(body))
	if err != nil {
		return model.Position{}, &MalformedResponseError{Op: "gps", Err: err}
	}
	if pos.CapturedAt.IsZero() {
		pos.CapturedAt = c.now()
	}
	return pos, nil
}

// Soil fetches the current NPK reading.
func (c *Client) Soil(ctx context.Context, base string) (model.SoilReading, error) {
	body, err := c.get(ctx, "soil", base, "soil")
	if err != nil {
		return model.SoilReading{}, err
	}
	rec, err := c.parser.DecodeSoil(string(body))
	if err != nil {
		return model.SoilReading{}, &MalformedResponseError{Op: "soil", Err: err}
	}
	if rec.CapturedAt.IsZero() {
		rec.CapturedAt = c.now()
	}
	return rec.SoilReading, nil
}

// Control posts one directive. The acknowledgement body is drained and ignored.
func (c *Client) Control(ctx context.Context, base string, cmd model.Command) error {
	b, err := json.Marshal(model.CommandRequest{Command: cmd})
	if err != nil {
		return err
	}
	endpoint, err := url.JoinPath(base, "control")
	if err != nil {
		return &NetworkError{Op: "control", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return &NetworkError{Op: "control", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &NetworkError{Op: "control", Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Printf("[robot] warning: close control response: %v", cerr)
		}
	}()
	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody)); err != nil {
		log.Printf("[robot] warning: discard control response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPStatusError{Op: "control", StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return nil
}

// VideoFeedURL returns the camera stream location for base, or "" if base is not a URL.
func (c *Client) VideoFeedURL(base string) string {
	endpoint, err := url.JoinPath(base, "video_feed")
	if err != nil {
		return ""
	}
	return endpoint
}

func (c *Client) get(ctx context.Context, op, base, path string) ([]byte, error) {
	endpoint, err := url.JoinPath(base, path)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Printf("[robot] warning: close %s response: %v", op, cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{Op: op, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	return body, nil
}
