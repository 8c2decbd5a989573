// Package util provides helper functions for logging events
package util

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// SetupLogger configures the standard logger. If file is non-empty, output is
// written to both stderr and the file. The returned closer releases the file.
func SetupLogger(file string) (func() error, error) {
	log.SetFlags(log.Lmsgprefix)
	log.SetOutput(os.Stderr)
	if file == "" {
		return func() error { return nil }, nil
	}
	f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return f.Close, nil
}

// Info prints general system information messages with timestamp.
func Info(msg string, args ...any) {
	log.Printf("[INFO] %s | %s", time.Now().Format(time.RFC3339), fmt.Sprintf(msg, args...))
}

// Warn prints recoverable problems with timestamp.
func Warn(msg string, args ...any) {
	log.Printf("[WARN] %s | %s", time.Now().Format(time.RFC3339), fmt.Sprintf(msg, args...))
}

// Error prints error messages with timestamp.
func Error(msg string, args ...any) {
	log.Printf("[ERROR] %s | %s", time.Now().Format(time.RFC3339), fmt.Sprintf(msg, args...))
}
