// Robot simulator: serves the robot HTTP API (/gps, /soil, /control,
// /video_feed) for local testing without hardware. Position can follow a
// real NMEA receiver and directives can be forwarded to a motor controller.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"NpkBot/internal/device"
	"NpkBot/internal/gps"
	"NpkBot/internal/model"
	"NpkBot/internal/sim"
	"NpkBot/internal/util"
)

func main() {
	addr := flag.String("addr", ":5000", "listen address")
	lat := flag.Float64("lat", 21.0285, "starting latitude")
	lon := flag.Float64("lon", 105.8048, "starting longitude")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed for soil readings")
	soilCSV := flag.String("soil-csv", "", "replay soil readings from CSV (N,P,K per line)")
	gpsDev := flag.String("gps", "", "NMEA gps serial device (empty = simulated position)")
	gpsBaud := flag.Int("gpsbaud", 9600, "gps baudrate")
	nmeaOut := flag.String("nmea-out", "", "serial device to emit simulated GGA sentences on")
	motorDev := flag.String("motor", "", "motor controller serial device")
	motorBaud := flag.Int("motorbaud", 9600, "motor controller baudrate")
	flag.Parse()

	if _, err := util.SetupLogger(""); err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}

	bot := sim.NewRobot(model.Position{Latitude: *lat, Longitude: *lon}, *seed)

	if *soilCSV != "" {
		if err := bot.LoadReplay(*soilCSV); err != nil {
			log.Fatalf("load soil replay: %v", err)
		}
	}

	if *motorDev != "" {
		dev, err := device.OpenSerial(*motorDev, *motorBaud)
		if err != nil {
			log.Fatalf("open motor: %v", err)
		}
		link := device.NewMotorLink(dev, 500*time.Millisecond)
		defer func() {
			if cerr := link.Close(); cerr != nil {
				log.Printf("warning: close motor err: %v", cerr)
			}
		}()
		bot.SetActuator(link)
		log.Printf("[robotsim] forwarding directives to %s", *motorDev)
	}

	if *gpsDev != "" {
		p, err := gps.OpenSerialProvider(*gpsDev, *gpsBaud)
		if err != nil {
			log.Fatalf("open gps: %v", err)
		}
		fixes := make(chan model.Position, 5)
		stopGPS, err := p.Start(fixes)
		if err != nil {
			log.Fatalf("start gps: %v", err)
		}
		defer stopGPS()
		go func() {
			for f := range fixes {
				bot.SetPosition(f)
			}
		}()
		log.Printf("[robotsim] following gps on %s", *gpsDev)
	}

	if *nmeaOut != "" {
		dev, err := device.OpenSerial(*nmeaOut, *gpsBaud)
		if err != nil {
			log.Fatalf("open nmea out: %v", err)
		}
		stopEmit := make(chan struct{})
		defer close(stopEmit)
		go func() {
			defer func() {
				if cerr := dev.Close(); cerr != nil {
					log.Printf("warning: close nmea out err: %v", cerr)
				}
			}()
			if err := gps.Emit(dev, bot.Position, 2*time.Second, stopEmit); err != nil {
				util.Error("nmea emit: %v", err)
			}
		}()
	}

	go func() {
		if err := bot.Start(*addr); err != nil {
			log.Fatalf("%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("[robotsim] shutting down")
	bot.Stop()
}
