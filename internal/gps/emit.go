package gps

import (
	"log"
	"time"

	"NpkBot/internal/device"
	"NpkBot/internal/model"
)

// Emit writes the current position as a GGA sentence every interval until
// stop is closed. It stands in for a real receiver on a serial loopback.
func Emit(dev device.Device, current func() model.Position, every time.Duration, stop <-chan struct{}) error {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		line := FormatGGA(current(), time.Now())
		if err := dev.WriteLine(line); err != nil {
			log.Printf("[gps] emit write error: %v", err)
		}
		select {
		case <-stop:
			return nil
		case <-t.C:
		}
	}
}
