// Package device defines line-oriented serial devices used by the robot
// simulator: the GPS receiver it reads from and the motor controller it drives.
package device

import "time"

// Device reads and writes newline-terminated lines.
type Device interface {
	// ReadLine reads a single line terminated by '\n'.
	// If timeout > 0, it returns after timeout even if no data is available.
	ReadLine(timeout time.Duration) (string, error)

	// WriteLine writes s followed by '\n' to the device.
	WriteLine(s string) error

	// Close closes the device and releases underlying resources.
	Close() error
}
