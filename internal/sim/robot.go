// Package sim implements a stand-in for the robot's HTTP server so the
// controller can be exercised without hardware.
package sim

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"NpkBot/internal/model"
	"NpkBot/internal/parser"
	"NpkBot/internal/util"
)

// Step is how far one motion directive moves the simulated robot, in degrees.
const Step = 0.00001

// Actuator receives accepted directives, e.g. a serial motor controller.
type Actuator interface {
	Drive(cmd model.Command) error
}

// Robot holds simulated position, soil and motion state.
type Robot struct {
	mu     sync.Mutex
	pos    model.Position
	soil   model.SoilReading
	moving model.Command
	replay []model.SoilRecord
	next   int
	rng    *rand.Rand
	motor  Actuator
	json   *parser.JSONParser

	server *http.Server
}

// NewRobot creates a robot parked at start with a random first soil reading.
func NewRobot(start model.Position, seed int64) *Robot {
	r := &Robot{
		pos:  start,
		rng:  rand.New(rand.NewSource(seed)),
		json: parser.NewJSONParser(),
	}
	r.pos.CapturedAt = time.Now().UTC()
	r.soil = r.randomSoil()
	r.server = &http.Server{Handler: r.Handler(), ReadHeaderTimeout: 5 * time.Second}
	return r
}

// SetActuator forwards every accepted directive to a.
func (r *Robot) SetActuator(a Actuator) {
	r.mu.Lock()
	r.motor = a
	r.mu.Unlock()
}

// SetPosition replaces the simulated position, e.g. with a live GPS fix.
func (r *Robot) SetPosition(p model.Position) {
	r.mu.Lock()
	r.pos = p
	r.mu.Unlock()
}

// Position returns the current simulated position.
func (r *Robot) Position() model.Position {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos
}

// Soil returns the latest soil reading.
func (r *Robot) Soil() model.SoilReading {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.soil
}

// Moving returns the motion directive currently in effect, or "" when stopped.
func (r *Robot) Moving() model.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.moving
}

// LoadReplay reads soil readings from a CSV file (N,P,K[,CAPTURED_AT]).
// Each scan_soil then returns the next row, wrapping at the end.
// Blank lines and lines starting with '#' are skipped.
func (r *Robot) LoadReplay(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open replay: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			log.Printf("[sim] warning: close replay file: %v", cerr)
		}
	}()
	return r.loadReplay(f)
}

func (r *Robot) loadReplay(src io.Reader) error {
	csvp := parser.NewCSVParser()
	var rows []model.SoilRecord
	sc := bufio.NewScanner(src)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rec, err := csvp.DecodeSoil(line)
		if err != nil {
			return fmt.Errorf("replay line %d: %w", lineNo, err)
		}
		rows = append(rows, rec)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.New("replay file has no readings")
	}

	r.mu.Lock()
	r.replay = rows
	r.next = 0
	r.mu.Unlock()
	log.Printf("[sim] loaded %d replay readings", len(rows))
	return nil
}

// Apply executes one directive against the simulated state.
func (r *Robot) Apply(cmd model.Command) error {
	r.mu.Lock()
	motor := r.motor
	r.mu.Unlock()

	if motor != nil {
		if err := motor.Drive(cmd); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	switch cmd {
	case model.CmdForward:
		r.pos.Latitude += Step
	case model.CmdBackward:
		r.pos.Latitude -= Step
	case model.CmdLeft:
		r.pos.Longitude -= Step
	case model.CmdRight:
		r.pos.Longitude += Step
	case model.CmdStop:
		r.moving = ""
		return nil
	case model.CmdScanSoil:
		r.soil = r.scanLocked()
		return nil
	}
	r.moving = cmd
	r.pos.CapturedAt = time.Now().UTC()
	return nil
}

func (r *Robot) scanLocked() model.SoilReading {
	if len(r.replay) == 0 {
		return r.randomSoil()
	}
	rd := r.replay[r.next].SoilReading
	r.next = (r.next + 1) % len(r.replay)
	rd.CapturedAt = time.Now().UTC()
	return rd
}

func (r *Robot) randomSoil() model.SoilReading {
	return model.SoilReading{
		Nitrogen:   5 + r.rng.Intn(40),
		Phosphorus: 5 + r.rng.Intn(30),
		Potassium:  10 + r.rng.Intn(40),
		CapturedAt: time.Now().UTC(),
	}
}

// Handler returns the robot's HTTP API.
func (r *Robot) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /gps", r.handleGPS)
	mux.HandleFunc("GET /soil", r.handleSoil)
	mux.HandleFunc("POST /control", r.handleControl)
	mux.HandleFunc("GET /video_feed", r.handleVideo)
	return mux
}

// Start serves the robot API on addr and blocks until Stop.
func (r *Robot) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("[sim] listen %s: %w", addr, err)
	}
	log.Printf("[sim] robot listening on %s", ln.Addr())
	if err := r.server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("[sim] HTTP server error: %w", err)
	}
	return nil
}

// Stop shuts down the HTTP server. A later Start returns at once.
func (r *Robot) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.server.Shutdown(ctx); err != nil {
		log.Printf("[sim] shutdown error: %v", err)
	}
}

func (r *Robot) handleGPS(w http.ResponseWriter, req *http.Request) {
	body, err := r.json.EncodePosition(r.Position())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (r *Robot) handleSoil(w http.ResponseWriter, req *http.Request) {
	body, err := r.json.EncodeSoil(model.SoilRecord{SoilReading: r.Soil()})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (r *Robot) handleControl(w http.ResponseWriter, req *http.Request) {
	defer func() {
		if cerr := req.Body.Close(); cerr != nil {
			log.Printf("[sim] warning: failed to close control body: %v", cerr)
		}
	}()

	var cr model.CommandRequest
	if err := json.NewDecoder(io.LimitReader(req.Body, 4096)).Decode(&cr); err != nil {
		http.Error(w, "invalid control body", http.StatusBadRequest)
		return
	}
	cmd, err := model.ParseCommand(string(cr.Command))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := r.Apply(cmd); err != nil {
		util.Error("sim: %s failed: %v", cmd, err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	log.Printf("[sim] %s (request %s)", cmd, req.Header.Get("X-Request-ID"))
	b, _ := json.Marshal(map[string]string{"status": "ok", "command": string(cmd)})
	writeJSON(w, http.StatusOK, string(b))
}

func (r *Robot) handleVideo(w http.ResponseWriter, req *http.Request) {
	http.Error(w, "no camera attached", http.StatusServiceUnavailable)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := io.WriteString(w, body); err != nil {
		log.Printf("[sim] warning: failed to write response: %v", err)
	}
}
