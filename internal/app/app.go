// Package app implements the dashboard HTTP and websocket API for NpkBot.
// It exposes the map, soil and drive screens of a core.System to operators.
package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"NpkBot/internal/core"
	"NpkBot/internal/model"
)

// App is the dashboard server.
type App struct {
	Sys    *core.System
	Video  core.VideoSource
	Token  string
	Mux    *http.ServeMux
	Server *http.Server

	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
}

// NewApp wires the dashboard routes for sys.
func NewApp(sys *core.System, video core.VideoSource, cfg model.DashboardConfig) *App {
	a := &App{
		Sys:      sys,
		Video:    video,
		Token:    cfg.Token,
		Mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  map[*websocket.Conn]struct{}{},
	}
	a.registerRoutes()
	a.Server = &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return a
}

// Handler returns the mux wrapped in the request-id and auth middleware.
func (a *App) Handler() http.Handler {
	return RequestIDMiddleware(AuthMiddleware(a.Token, a.Mux))
}

// Start launches the web server and blocks until stopped.
func (a *App) Start(addr string) error {
	if addr == "" {
		log.Println("[app] dashboard not started (empty address)")
		return nil
	}
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("[app] listen %s: %w", addr, err)
	}
	log.Printf("[app] dashboard listening at http://%s", ln.Addr())
	// Serve returns ErrServerClosed at once if Stop already ran.
	if err := a.Server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("[app] HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the web server and disconnects websocket clients.
func (a *App) Stop() {
	if a == nil {
		return
	}

	a.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(a.clients))
	for c := range a.clients {
		conns = append(conns, c)
	}
	a.mu.Unlock()

	for _, c := range conns {
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		if err := c.Close(); err != nil {
			log.Printf("[app] warning: failed to close websocket: %v", err)
		}
	}

	log.Println("[app] Shutting down dashboard...")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Server.Shutdown(ctx); err != nil {
		log.Printf("[app] HTTP server shutdown error: %v", err)
	} else {
		log.Println("[app] Dashboard stopped cleanly")
	}
}
