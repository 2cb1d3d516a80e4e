// Package watch polls the daemon's device listing and publishes the
// differences between consecutive polls as events.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pradb/pradb/internal/adb"
	"github.com/pradb/pradb/internal/events"
)

const defaultInterval = 2 * time.Second

// Lister fetches the current device listing.
type Lister interface {
	ListDevices(ctx context.Context) ([]adb.DeviceRecord, error)
}

// Publisher receives the events derived from each poll.
type Publisher interface {
	Publish(event events.Event)
}

// Config controls the poll cadence.
type Config struct {
	Interval time.Duration
	Logger   *log.Logger
}

// Report summarizes one poll.
type Report struct {
	Devices  int
	Attached int
	Detached int
	Changed  int
	PolledAt time.Time
}

// Watcher tracks the attached set across polls. It is not safe for
// concurrent RunOnce calls.
type Watcher struct {
	lister    Lister
	bus       Publisher
	interval  time.Duration
	logger    *log.Logger
	now       func() time.Time
	newTicker func(time.Duration) *time.Ticker
	known     map[string]string
}

// New builds a Watcher; a zero interval polls every two seconds.
func New(lister Lister, bus Publisher, cfg Config) (*Watcher, error) {
	if lister == nil {
		return nil, errors.New("device lister is required")
	}
	if bus == nil {
		return nil, errors.New("event publisher is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Watcher{
		lister:    lister,
		bus:       bus,
		interval:  cfg.Interval,
		logger:    logger,
		now:       time.Now,
		newTicker: time.NewTicker,
		known:     map[string]string{},
	}, nil
}

// Start polls immediately and then on every tick until ctx is done. Poll
// failures are published and do not stop the loop.
func (w *Watcher) Start(ctx context.Context) {
	if w == nil {
		return
	}
	ticker := w.newTicker(w.interval)
	defer ticker.Stop()

	w.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	if _, err := w.RunOnce(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Warn("device poll failed", "err", err)
		w.bus.Publish(events.Event{
			Type:      events.TypePollFailed,
			Timestamp: w.now().UTC(),
			Err:       err,
			Severity:  events.SeverityError,
		})
	}
}

// RunOnce fetches the listing, publishes what changed since the previous
// successful poll, and remembers the new set.
func (w *Watcher) RunOnce(ctx context.Context) (Report, error) {
	if w == nil {
		return Report{}, errors.New("watcher is nil")
	}

	records, err := w.lister.ListDevices(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list devices: %w", err)
	}

	now := w.now().UTC()
	report := Report{Devices: len(records), PolledAt: now}
	current := make(map[string]string, len(records))

	for _, record := range records {
		current[record.Serial] = record.Model
		previous, seen := w.known[record.Serial]
		switch {
		case !seen:
			report.Attached++
			w.publish(events.TypeDeviceAttached, record.Serial, record.Model, now, events.SeverityInfo)
		case previous != record.Model:
			report.Changed++
			w.publish(events.TypeDeviceChanged, record.Serial, record.Model, now, events.SeverityInfo)
		}
	}

	for _, serial := range sortedKeys(w.known) {
		if _, still := current[serial]; still {
			continue
		}
		report.Detached++
		w.publish(events.TypeDeviceDetached, serial, w.known[serial], now, events.SeverityWarn)
	}

	w.known = current
	w.logger.Debug("device poll", "devices", report.Devices, "attached", report.Attached, "detached", report.Detached)
	return report, nil
}

func (w *Watcher) publish(eventType, serial, model string, at time.Time, severity string) {
	w.bus.Publish(events.Event{
		Type:      eventType,
		Timestamp: at,
		Serial:    serial,
		Model:     model,
		Severity:  severity,
	})
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
