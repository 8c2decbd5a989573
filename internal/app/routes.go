package app

// registerRoutes sets up all HTTP handlers for the dashboard.
func (a *App) registerRoutes() {
	a.Mux.HandleFunc("GET /healthz", a.handleHealth)

	// configuration
	a.Mux.HandleFunc("GET /api/config", a.handleGetConfig)
	a.Mux.HandleFunc("PUT /api/config", a.handlePutConfig)
	a.Mux.HandleFunc("DELETE /api/config", a.handleDeleteConfig)

	// telemetry screens
	a.Mux.HandleFunc("GET /api/position", a.handlePosition)
	a.Mux.HandleFunc("GET /api/soil", a.handleSoil)

	// drive screen
	a.Mux.HandleFunc("POST /api/control", a.handleControl)
	a.Mux.HandleFunc("POST /api/drive/press", a.handlePress)
	a.Mux.HandleFunc("POST /api/drive/release", a.handleRelease)
	a.Mux.HandleFunc("POST /api/scan", a.handleScan)
	a.Mux.HandleFunc("GET /api/drive", a.handleDrive)
	a.Mux.HandleFunc("GET /api/video", a.handleVideo)

	a.Mux.HandleFunc("GET /api/recommend", a.handleRecommend)

	a.Mux.HandleFunc("GET /ws", a.handleWS)
}
