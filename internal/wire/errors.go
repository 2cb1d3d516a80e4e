package wire

import (
	"errors"
	"fmt"
)

var (
	ErrCommandTooLong = errors.New("wire: command exceeds 65535 bytes")
	ErrInvalidString  = errors.New("wire: invalid string received from daemon")
	ErrInvalidHex     = errors.New("wire: invalid hexadecimal length received from daemon")
)

// TransportError reports a failed or short read/write on the daemon stream.
// The stream is desynchronized afterwards and the connection should be dropped.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("wire: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
