package toolweb

import (
	"errors"
	"fmt"
)

var (
	ErrConnection = errors.New("connection error")
	ErrTimeout    = errors.New("timeout")
	ErrProtocol   = errors.New("protocol error")
)

// ProtocolError is returned when the device answers with a failure status or an empty body.
type ProtocolError struct {
	Address    string
	StatusCode int
	Empty      bool
}

func (e *ProtocolError) Error() string {
	reason := fmt.Sprintf("status %d", e.StatusCode)
	if e.Empty {
		reason = "empty response"
	}
	return fmt.Sprintf("could not communicate with eBaratron at %q: %s", e.Address, reason)
}

func (e *ProtocolError) Unwrap() error {
	return ErrProtocol
}
