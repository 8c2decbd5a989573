package gps

import (
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"NpkBot/internal/device"
	"NpkBot/internal/model"
)

// Provider continuously reads NMEA sentences from a device and sends parsed
// fixes to a channel.
type Provider struct {
	dev  device.Device
	wait time.Duration
}

// NewProvider creates a Provider reading from dev.
func NewProvider(dev device.Device) *Provider {
	return &Provider{dev: dev, wait: 500 * time.Millisecond}
}

// OpenSerialProvider opens a GPS receiver on a serial port.
func OpenSerialProvider(path string, baud int) (*Provider, error) {
	dev, err := device.OpenSerial(path, baud)
	if err != nil {
		return nil, err
	}
	return NewProvider(dev), nil
}

// Start begins reading and sends every valid fix to out. out is closed when
// the loop ends, either through the returned stop func or end of input.
func (p *Provider) Start(out chan<- model.Position) (func(), error) {
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer func() {
			if err := p.dev.Close(); err != nil {
				log.Printf("[gps] warning: close device: %v", err)
			}
			close(out)
		}()

		for {
			select {
			case <-stop:
				return
			default:
			}

			line, err := p.dev.ReadLine(p.wait)
			switch {
			case err == nil:
			case errors.Is(err, device.ErrReadTimeout):
				continue
			case errors.Is(err, io.EOF):
				log.Printf("[gps] input closed")
				return
			default:
				log.Printf("[gps] read err: %v", err)
				time.Sleep(200 * time.Millisecond)
				continue
			}

			pos, err := ParseSentence(line)
			if err != nil {
				continue
			}
			select {
			case out <- pos:
			case <-stop:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
		})
	}, nil
}
