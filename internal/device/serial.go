package device

import (
	"bufio"
	"errors"
	"fmt"
	"sync"
	"time"

	serial "go.bug.st/serial"
)

// ErrReadTimeout is returned by ReadLine when no full line arrived in time.
var ErrReadTimeout = errors.New("read timeout")

// SerialDevice implements Device using go.bug.st/serial.
type SerialDevice struct {
	port serial.Port
	r    *bufio.Reader

	mu      sync.Mutex
	pending chan lineResult // read still running after a timeout
}

type lineResult struct {
	line string
	err  error
}

// OpenSerial opens dev at the given baud rate.
func OpenSerial(dev string, baud int) (*SerialDevice, error) {
	p, err := serial.Open(dev, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", dev, err)
	}
	return &SerialDevice{port: p, r: bufio.NewReader(p)}, nil
}

// ReadLine reads a single line. A read that times out keeps running and its
// line is returned by the next call, so no input is lost.
func (s *SerialDevice) ReadLine(timeout time.Duration) (string, error) {
	s.mu.Lock()
	ch := s.pending
	if ch == nil {
		ch = make(chan lineResult, 1)
		go func() {
			line, err := s.r.ReadString('\n')
			ch <- lineResult{line, err}
		}()
	}
	s.pending = nil
	s.mu.Unlock()

	if timeout <= 0 {
		res := <-ch
		return res.line, res.err
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case res := <-ch:
		return res.line, res.err
	case <-t.C:
		s.mu.Lock()
		s.pending = ch
		s.mu.Unlock()
		return "", ErrReadTimeout
	}
}

// WriteLine writes a line followed by newline.
func (s *SerialDevice) WriteLine(line string) error {
	_, err := s.port.Write(append([]byte(line), '\n'))
	return err
}

// Close closes the underlying serial port.
func (s *SerialDevice) Close() error {
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}
