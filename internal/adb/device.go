package adb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pradb/pradb/internal/wire"
)

const (
	propertiesCommand = "getprop"
	packagesCommand   = "pm list packages 2> /dev/null"
	// installFailureMarker is searched for in `pm install` output. It is a
	// heuristic: pm reports failure only in free text.
	installFailureMarker = "Error:"
)

// Device is one attached device bound to its own daemon connection.
type Device struct {
	conn   Executor
	serial string
	model  string
	inUse  bool
	logger *log.Logger
}

// NewDevice binds a device record to an executor. The device owns conn.
func NewDevice(conn Executor, record DeviceRecord, logger *log.Logger) *Device {
	return newDevice(conn, record, logger)
}

func newDevice(conn Executor, record DeviceRecord, logger *log.Logger) *Device {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Device{
		conn:   conn,
		serial: record.Serial,
		model:  record.Model,
		logger: logger.With("serial", record.Serial),
	}
}

func (d *Device) Serial() string { return d.serial }

func (d *Device) Model() string { return d.model }

// InUse reports whether UseDevice has bound the connection to this device.
func (d *Device) InUse() bool { return d.inUse }

// Close releases the device's private connection.
func (d *Device) Close() error {
	return d.conn.Close()
}

// UseDevice selects this device as the transport for the connection. It must
// succeed before Shell, Properties, Packages or Install.
func (d *Device) UseDevice(ctx context.Context) error {
	command := "host:transport:" + d.serial
	out, err := d.conn.Execute(ctx, command, wire.Switch)
	if err != nil {
		return err
	}
	if !out.OK() {
		return responseError(command, out)
	}
	d.inUse = true
	d.logger.Debug("transport selected")
	return nil
}

// Shell runs cmd on the device and returns its output verbatim. The daemon
// ends the stream when the command exits, so the connection cannot be reused.
func (d *Device) Shell(ctx context.Context, cmd string) (string, error) {
	command := "shell:" + cmd
	out, err := d.conn.Execute(ctx, command, wire.Stream)
	if err != nil {
		return "", err
	}
	if !out.OK() {
		return "", responseError(command, out)
	}
	return out.Body, nil
}

// Properties returns the device's full property table.
func (d *Device) Properties(ctx context.Context) (map[string]string, error) {
	output, err := d.Shell(ctx, propertiesCommand)
	if err != nil {
		return nil, err
	}
	return ParseProperties(output), nil
}

// Property returns one property value.
func (d *Device) Property(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("adb: property name must not be empty")
	}
	output, err := d.Shell(ctx, propertiesCommand+" "+name)
	if err != nil {
		return "", err
	}
	value := strings.TrimRight(output, "\r\n")
	if value == "" {
		return "", &UnknownPropertyError{Name: name}
	}
	return value, nil
}

// Packages lists installed package identifiers in the order the device reports them.
func (d *Device) Packages(ctx context.Context) ([]string, error) {
	output, err := d.Shell(ctx, packagesCommand)
	if err != nil {
		return nil, err
	}
	return ParsePackages(output), nil
}

// Install runs `pm install` for path. The local file is checked first and
// ErrFileNotFound is returned without touching the connection.
func (d *Device) Install(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("stat package %q: %w", path, err)
	}

	output, err := d.Shell(ctx, "pm install "+path)
	if err != nil {
		return fmt.Errorf("install %s: %w", path, err)
	}
	if strings.Contains(output, installFailureMarker) {
		return &PackageNotInstalledError{Path: path, Output: output}
	}
	d.logger.Info("package installed", "path", path)
	return nil
}
