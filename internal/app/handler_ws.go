package app

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteWait = 5 * time.Second

// wsMessage is one screen update pushed to dashboard clients.
type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// handleWS upgrades to websocket and streams map, soil and drive views.
// Each client gets the current views first, then every change.
func (a *App) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[app] websocket upgrade failed: %v", err)
		return
	}
	a.mu.Lock()
	a.clients[conn] = struct{}{}
	n := len(a.clients)
	a.mu.Unlock()
	log.Printf("[app] websocket client connected (%d total)", n)

	mapCh, unsubMap := a.Sys.Map.Subscribe()
	soilCh, unsubSoil := a.Sys.Soil.Subscribe()
	driveCh, unsubDrive := a.Sys.Drive.Subscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		unsubMap()
		unsubSoil()
		unsubDrive()
		a.mu.Lock()
		delete(a.clients, conn)
		a.mu.Unlock()
		if err := conn.Close(); err != nil {
			log.Printf("[app] warning: failed to close websocket: %v", err)
		}
	}()

	send := func(m wsMessage) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(m); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[app] websocket write: %v", err)
			}
			return false
		}
		return true
	}

	if !send(wsMessage{"map", a.Sys.Map.View()}) ||
		!send(wsMessage{"soil", a.Sys.Soil.View()}) ||
		!send(wsMessage{"drive", a.Sys.Drive.View()}) {
		return
	}

	for {
		var m wsMessage
		select {
		case <-closed:
			return
		case v, ok := <-mapCh:
			if !ok {
				return
			}
			m = wsMessage{"map", v}
		case v, ok := <-soilCh:
			if !ok {
				return
			}
			m = wsMessage{"soil", v}
		case v, ok := <-driveCh:
			if !ok {
				return
			}
			m = wsMessage{"drive", v}
		}
		if !send(m) {
			return
		}
	}
}
