package robot

import "fmt"

// NetworkError wraps a transport failure (dial, timeout, reset).
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("robot %s: network: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPStatusError is returned for any non-2xx response.
type HTTPStatusError struct {
	Op         string
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("robot %s: unexpected status %s", e.Op, e.Status)
}

// MalformedResponseError is returned when a body is not valid JSON or lacks fields.
type MalformedResponseError struct {
	Op  string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("robot %s: malformed response: %v", e.Op, e.Err)
}
func (e *MalformedResponseError) Unwrap() error { return e.Err }
