package adb

import (
	"errors"
	"fmt"

	"github.com/pradb/pradb/internal/wire"
)

var (
	// ErrSessionClosed is returned when closing a Session twice.
	ErrSessionClosed = errors.New("adb: session already closed")
	// ErrUnknownStatus is wrapped by ResponseError when the daemon answered
	// with neither OKAY nor FAIL.
	ErrUnknownStatus = errors.New("adb: unknown status token")
	// ErrFileNotFound is returned by Install before any network I/O when the
	// local package file does not exist.
	ErrFileNotFound = errors.New("adb: package file not found")
)

// ConnectError reports that the daemon could not be reached.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("adb: connect to daemon at %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// ResponseError carries a non-OKAY reply and the daemon's explanation.
type ResponseError struct {
	Command string
	Status  wire.Status
	Token   string
	Body    string
}

func (e *ResponseError) Error() string {
	if e.Status == wire.StatusFail {
		return fmt.Sprintf("adb: %s: daemon returned FAIL: %s", e.Command, e.Body)
	}
	return fmt.Sprintf("adb: %s: daemon returned unknown status %q: %s", e.Command, e.Token, e.Body)
}

func (e *ResponseError) Unwrap() error {
	if e.Status == wire.StatusUnknown {
		return ErrUnknownStatus
	}
	return nil
}

// PackageNotInstalledError carries the raw `pm install` output that reported
// a failure.
type PackageNotInstalledError struct {
	Path   string
	Output string
}

func (e *PackageNotInstalledError) Error() string {
	return fmt.Sprintf("adb: install %s: %s", e.Path, e.Output)
}

// DeviceNotFoundError is returned when no attached device has the serial.
type DeviceNotFoundError struct {
	Serial string
}

func (e *DeviceNotFoundError) Error() string {
	return fmt.Sprintf("adb: device %q not found among attached devices", e.Serial)
}

// UnknownPropertyError is returned when the device has no value for a property.
type UnknownPropertyError struct {
	Name string
}

func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("adb: unknown property %q", e.Name)
}

func responseError(command string, out wire.Outcome) error {
	return &ResponseError{
		Command: command,
		Status:  out.Status,
		Token:   out.Token,
		Body:    out.Body,
	}
}
