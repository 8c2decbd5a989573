package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"NpkBot/internal/core"
	"NpkBot/internal/model"
	"NpkBot/internal/parser"
	"NpkBot/internal/recommend"
	"NpkBot/internal/robot"
	"NpkBot/internal/util"
)

const (
	maxRequestBody  = 4096
	dispatchTimeout = 10 * time.Second
)

type configBody struct {
	ServerIP   string `json:"server_ip"`
	Configured bool   `json:"configured"`
}

type commandAck struct {
	Status  string        `json:"status"`
	Command model.Command `json:"command"`
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	addr, ok := a.Sys.Configured()
	writeJSON(w, http.StatusOK, configBody{ServerIP: addr, Configured: ok})
}

// handlePutConfig saves a new robot address. Invalid addresses are rejected
// and the previous one stays in effect.
func (a *App) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var body configBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	addr := strings.TrimSpace(body.ServerIP)
	if err := a.Sys.Reconfigure(addr); err != nil {
		writeErr(w, err)
		return
	}
	log.Printf("[app] server address set to %s", addr)
	writeJSON(w, http.StatusOK, configBody{ServerIP: addr, Configured: true})
}

func (a *App) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	if err := a.Sys.Forget(); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handlePosition(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Sys.Map.View())
}

// handleSoil returns the soil history, as JSON or as CSV with ?format=csv.
func (a *App) handleSoil(w http.ResponseWriter, r *http.Request) {
	view := a.Sys.Soil.View()
	if r.URL.Query().Get("format") != "csv" {
		writeJSON(w, http.StatusOK, view)
		return
	}

	csvp := parser.NewCSVParser()
	var sb strings.Builder
	sb.WriteString("nitrogen,phosphorus,potassium,captured_at,recommendation\n")
	for _, rec := range view.Records {
		line, err := csvp.EncodeSoil(rec)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	if _, err := io.WriteString(w, sb.String()); err != nil {
		log.Printf("[app] warning: failed to write soil csv: %v", err)
	}
}

// handleControl accepts any directive and dispatches it through the drive screen.
func (a *App) handleControl(w http.ResponseWriter, r *http.Request) {
	cmd, err := readCommand(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	a.dispatch(w, cmd, func(ctx context.Context) error { return a.Sys.Drive.Send(ctx, cmd) })
}

func (a *App) handlePress(w http.ResponseWriter, r *http.Request) {
	cmd, err := readCommand(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	a.dispatch(w, cmd, func(ctx context.Context) error { return a.Sys.Drive.Press(ctx, cmd) })
}

func (a *App) handleRelease(w http.ResponseWriter, r *http.Request) {
	a.dispatch(w, model.CmdStop, a.Sys.Drive.Release)
}

func (a *App) handleScan(w http.ResponseWriter, r *http.Request) {
	a.dispatch(w, model.CmdScanSoil, a.Sys.Drive.ScanSoil)
}

func (a *App) handleDrive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Sys.Drive.View())
}

// handleVideo redirects to the robot's MJPEG feed.
func (a *App) handleVideo(w http.ResponseWriter, r *http.Request) {
	addr, ok := a.Sys.Configured()
	if !ok {
		writeErr(w, model.ErrNotConfigured)
		return
	}
	http.Redirect(w, r, a.Video.VideoFeedURL(addr), http.StatusFound)
}

func (a *App) handleRecommend(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	vals := make([]int, 3)
	for i, key := range []string{"n", "p", "k"} {
		v, err := strconv.Atoi(q.Get(key))
		if err != nil {
			writeError(w, http.StatusBadRequest, "query parameter "+key+" must be an integer")
			return
		}
		vals[i] = v
	}
	rec := model.SoilRecord{
		SoilReading:    model.SoilReading{Nitrogen: vals[0], Phosphorus: vals[1], Potassium: vals[2]},
		Recommendation: recommend.Recommend(vals[0], vals[1], vals[2]),
	}
	writeJSON(w, http.StatusOK, rec)
}

// dispatch runs a directive detached from the request so that a client
// disconnecting mid-send does not abort a stop on its way to the robot.
func (a *App) dispatch(w http.ResponseWriter, cmd model.Command, send func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()
	if err := send(ctx); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, commandAck{Status: "accepted", Command: cmd})
}

func readCommand(r *http.Request) (model.Command, error) {
	var req model.CommandRequest
	if err := decodeBody(r, &req); err != nil {
		return "", &badRequest{err}
	}
	return model.ParseCommand(string(req.Command))
}

func decodeBody(r *http.Request, v any) error {
	defer func() {
		if cerr := r.Body.Close(); cerr != nil {
			log.Printf("[app] warning: failed to close request body: %v", cerr)
		}
	}()
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

type badRequest struct{ err error }

func (b *badRequest) Error() string { return b.err.Error() }
func (b *badRequest) Unwrap() error { return b.err }

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var br *badRequest
	var ne *robot.NetworkError
	var se *robot.HTTPStatusError
	var me *robot.MalformedResponseError
	switch {
	case errors.As(err, &br),
		errors.Is(err, model.ErrInvalidAddress),
		errors.Is(err, model.ErrUnknownCommand):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrCommandDropped):
		return http.StatusConflict
	case errors.Is(err, model.ErrNotConfigured):
		return http.StatusPreconditionFailed
	case errors.As(err, &ne), errors.As(err, &se), errors.As(err, &me):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		util.Error("dashboard request failed: %v", err)
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[app] warning: failed to write response: %v", err)
	}
}
