package browse

import (
	"context"
	"errors"

	"github.com/pradb/pradb/internal/adb"
)

// SessionSource dials a fresh daemon session for every request.
type SessionSource struct {
	Options adb.Options
}

func (s SessionSource) ListDevices(ctx context.Context) (records []adb.DeviceRecord, err error) {
	session, err := adb.Dial(ctx, s.Options)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, closeIgnoringRepeat(session))
	}()
	return session.ListDevices(ctx)
}

func (s SessionSource) Properties(ctx context.Context, serial string) (props map[string]string, err error) {
	session, err := adb.Dial(ctx, s.Options)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, closeIgnoringRepeat(session))
	}()

	device, err := session.Device(ctx, serial)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, closeIgnoringRepeat(device))
	}()

	if err := device.UseDevice(ctx); err != nil {
		return nil, err
	}
	return device.Properties(ctx)
}

type closer interface {
	Close() error
}

func closeIgnoringRepeat(c closer) error {
	if err := c.Close(); err != nil && !errors.Is(err, adb.ErrSessionClosed) {
		return err
	}
	return nil
}
