package adb

import (
	"context"
	"errors"
	"fmt"

	"github.com/pradb/pradb/internal/wire"
)

const listDevicesCommand = "host:devices"

// ListDevices returns the attached device records without opening device sessions.
func (s *Session) ListDevices(ctx context.Context) ([]DeviceRecord, error) {
	out, err := s.Execute(ctx, listDevicesCommand, wire.HostQuery)
	if err != nil {
		return nil, err
	}
	if !out.OK() {
		return nil, responseError(listDevicesCommand, out)
	}
	return ParseDeviceList(out.Body)
}

// Devices lists attached devices and binds each to a freshly dialed Session.
// The caller owns the returned devices and must Close them.
func (s *Session) Devices(ctx context.Context) ([]*Device, error) {
	records, err := s.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	devices := make([]*Device, 0, len(records))
	for _, record := range records {
		device, err := s.openDevice(ctx, record)
		if err != nil {
			closeDevices(devices)
			return nil, err
		}
		devices = append(devices, device)
	}
	s.logger.Debug("devices listed", "count", len(devices))
	return devices, nil
}

// Device returns the attached device with the given serial.
func (s *Session) Device(ctx context.Context, serial string) (*Device, error) {
	records, err := s.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if record.Serial == serial {
			return s.openDevice(ctx, record)
		}
	}
	return nil, &DeviceNotFoundError{Serial: serial}
}

func (s *Session) openDevice(ctx context.Context, record DeviceRecord) (*Device, error) {
	conn, err := Dial(ctx, s.opts)
	if err != nil {
		return nil, fmt.Errorf("open session for device %s: %w", record.Serial, err)
	}
	return newDevice(conn, record, s.opts.Logger), nil
}

func closeDevices(devices []*Device) {
	for _, device := range devices {
		if err := device.Close(); err != nil && !errors.Is(err, ErrSessionClosed) {
			device.logger.Debug("close device session", "err", err)
		}
	}
}
