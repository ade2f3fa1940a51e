package bench

import "fmt"

// HeaderError is raised when a user header has a separator but its name or
// value is not acceptable on the wire.
type HeaderError struct {
	Raw    string
	Reason string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("invalid header %q: %s", e.Raw, e.Reason)
}

// TransportError wraps a connect, write or read failure with the stage it happened in.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
