package serialmux

import (
	"io"
	"time"
)

// SerialPorter is the minimal interface needed for a serial port. The
// abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutSerialPorter extends SerialPorter with a read timeout. Real ports
// from go.bug.st/serial implement it; mocks may not.
type TimeoutSerialPorter interface {
	SerialPorter
	SetReadTimeout(timeout time.Duration) error
}
