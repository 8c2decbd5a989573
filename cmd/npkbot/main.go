// Package main is the entry point of the NpkBot controller daemon.
// It loads the configuration, opens the address store, starts the map, soil
// and drive screens and serves the dashboard API until interrupted.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"NpkBot/internal/app"
	"NpkBot/internal/config"
	"NpkBot/internal/core"
	"NpkBot/internal/robot"
	"NpkBot/internal/store"
	"NpkBot/internal/util"
)

func main() {
	cfgPath := flag.String("c", "configs/config.yml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	closeLog, err := util.SetupLogger(cfg.Log.File)
	if err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}
	defer func() {
		if err := closeLog(); err != nil {
			log.Printf("warning: close log file: %v", err)
		}
	}()
	log.Printf("[Main] Using config: %s", *cfgPath)

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("[Main] error closing store: %v", err)
		}
	}()

	client := robot.NewClient(config.Ms(cfg.Robot.RequestTimeoutMs))
	sys, err := core.NewSystem(cfg, st, client)
	if err != nil {
		log.Fatalf("failed to create system: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := sys.StartAll(ctx); err != nil {
		util.Warn("some screens failed to start: %v", err)
	}
	if addr, ok := sys.Configured(); ok {
		util.Info("robot at %s", addr)
	} else {
		util.Info("no robot address yet; PUT /api/config to set one")
	}

	dash := app.NewApp(sys, client, cfg.Dashboard)
	go func() {
		if err := dash.Start(cfg.Dashboard.Addr); err != nil {
			util.Error("dashboard: %v", err)
		}
	}()

	// wait for Ctrl+C or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("[Main] Shutting down...")
	dash.Stop()
	sys.StopAll()
	log.Println("[Main] Stopped cleanly.")
}
