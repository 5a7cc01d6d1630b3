package swing

import (
	"errors"
	"fmt"
)

var (
	// ErrSensorFault is terminal for the session: the platform needs a
	// physical reset before phases can progress again.
	ErrSensorFault = errors.New("sensor fault")

	// ErrChannelDisconnected is returned by a NotifyChannel with no
	// companion attached.
	ErrChannelDisconnected = errors.New("notify channel disconnected")

	ErrMissingDelimiter = errors.New("missing '/' delimiter")
)

// CommandParseError describes a tempo command that could not be applied.
type CommandParseError struct {
	Raw string
	Err error
}

func (e *CommandParseError) Error() string {
	return fmt.Sprintf("invalid tempo command %q: %v", e.Raw, e.Err)
}

func (e *CommandParseError) Unwrap() error {
	return e.Err
}
