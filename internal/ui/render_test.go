package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pradb/pradb/internal/adb"
	"github.com/pradb/pradb/internal/events"
	"github.com/pradb/pradb/internal/wire"
	"github.com/stretchr/testify/assert"
)

func TestStatusBadgeVariants(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		status wire.Status
		want   string
	}{
		{status: wire.StatusOK, want: "✓ OKAY"},
		{status: wire.StatusFail, want: "✗ FAIL"},
		{status: wire.StatusUnknown, want: "⚠ UNKNOWN"},
	}

	for _, testCase := range testCases {
		assert.Contains(t, StatusBadge(testCase.status), testCase.want)
	}
}

func TestOutcomeIncludesTrimmedBody(t *testing.T) {
	t.Parallel()

	rendered := Outcome(wire.Classify(wire.TokenFail, "device offline\n"))
	assert.Contains(t, rendered, "FAIL")
	assert.True(t, strings.HasSuffix(rendered, "device offline"), "rendered %q", rendered)

	assert.NotContains(t, Outcome(wire.Classify(wire.TokenOkay, "")), "  ")
}

func TestDeviceTable(t *testing.T) {
	t.Parallel()

	rendered := DeviceTable([]adb.DeviceRecord{
		{Serial: "emulator-5554", Model: "sdk_gphone64"},
		{Serial: "R58M123ABC", Model: "SM-G973F"},
	})
	for _, want := range []string{"SERIAL", "MODEL", "emulator-5554", "sdk_gphone64", "R58M123ABC", "SM-G973F"} {
		assert.Contains(t, rendered, want)
	}
	assert.Less(t, strings.Index(rendered, "emulator-5554"), strings.Index(rendered, "R58M123ABC"))

	assert.Contains(t, DeviceTable(nil), "no devices attached")
}

func TestPropertyTableSortsNames(t *testing.T) {
	t.Parallel()

	rendered := PropertyTable(map[string]string{
		"ro.product.model": "Pixel 8",
		"ro.build.version": "14",
	})
	assert.Contains(t, rendered, "PROPERTY")
	assert.Contains(t, rendered, "Pixel 8")
	assert.Less(t, strings.Index(rendered, "ro.build.version"), strings.Index(rendered, "ro.product.model"))

	assert.Contains(t, PropertyTable(map[string]string{}), "no properties reported")
}

func TestErrorRendering(t *testing.T) {
	t.Parallel()

	assert.Contains(t, Error(errors.New("boom")), "✗ boom")
}

func TestDeviceEventLines(t *testing.T) {
	t.Parallel()

	stamp := time.Date(2026, 2, 11, 8, 30, 0, 0, time.UTC)
	testCases := []struct {
		event events.Event
		want  []string
	}{
		{
			event: events.Event{Type: events.TypeDeviceAttached, Timestamp: stamp, Serial: "emulator-5554", Model: "device"},
			want:  []string{"+ attached", "emulator-5554", "device"},
		},
		{
			event: events.Event{Type: events.TypeDeviceDetached, Timestamp: stamp, Serial: "emulator-5554"},
			want:  []string{"- detached", "emulator-5554"},
		},
		{
			event: events.Event{Type: events.TypeDeviceChanged, Timestamp: stamp, Serial: "R58M123ABC", Model: "unauthorized"},
			want:  []string{"~ changed", "R58M123ABC", "unauthorized"},
		},
		{
			event: events.Event{Type: events.TypePollFailed, Timestamp: stamp, Err: errors.New("connection refused")},
			want:  []string{"poll failed", "connection refused"},
		},
	}

	for _, testCase := range testCases {
		line := DeviceEvent(testCase.event)
		assert.Contains(t, line, stamp.Local().Format("15:04:05"))
		for _, fragment := range testCase.want {
			assert.Contains(t, line, fragment)
		}
	}
}
