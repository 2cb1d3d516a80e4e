package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/pradb/pradb/internal/adb"
	"github.com/pradb/pradb/internal/events"
	"github.com/pradb/pradb/internal/wire"
)

// StatusBadge renders a classified status as an icon and label.
func StatusBadge(status wire.Status) string {
	switch status {
	case wire.StatusOK:
		return SuccessStyle.Render(IconOK + " OKAY")
	case wire.StatusFail:
		return ErrorStyle.Render(IconFailed + " FAIL")
	default:
		return WarningStyle.Render(IconUnknown + " UNKNOWN")
	}
}

// Outcome renders a badge followed by the body, if any.
func Outcome(out wire.Outcome) string {
	badge := StatusBadge(out.Status)
	body := strings.TrimRight(out.Body, "\r\n")
	if body == "" {
		return badge
	}
	return badge + " " + body
}

// DeviceTable renders attached devices, or a muted notice when none are attached.
func DeviceTable(records []adb.DeviceRecord) string {
	if len(records) == 0 {
		return MutedStyle.Render("no devices attached")
	}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{record.Serial, record.Model})
	}
	return newTable("SERIAL", "MODEL").Rows(rows...).String()
}

// PropertyTable renders properties sorted by name.
func PropertyTable(props map[string]string) string {
	if len(props) == 0 {
		return MutedStyle.Render("no properties reported")
	}
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, props[name]})
	}
	return newTable("PROPERTY", "VALUE").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle
			}
			if col == 0 {
				return KeyStyle
			}
			return CellStyle
		}).
		Rows(rows...).
		String()
}

// Error renders an error line for stderr.
func Error(err error) string {
	return ErrorStyle.Render(fmt.Sprintf("%s %v", IconFailed, err))
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(BorderStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle
			}
			return CellStyle
		})
}

// DeviceEvent renders one watch event as a timestamped line.
func DeviceEvent(event events.Event) string {
	stamp := MutedStyle.Render(event.Timestamp.Local().Format("15:04:05"))
	switch event.Type {
	case events.TypeDeviceAttached:
		return fmt.Sprintf("%s %s %s %s", stamp, SuccessStyle.Render("+ attached"), event.Serial, event.Model)
	case events.TypeDeviceDetached:
		return fmt.Sprintf("%s %s %s", stamp, WarningStyle.Render("- detached"), event.Serial)
	case events.TypeDeviceChanged:
		return fmt.Sprintf("%s %s %s %s", stamp, FocusStyle.Render("~ changed"), event.Serial, event.Model)
	case events.TypePollFailed:
		return fmt.Sprintf("%s %s %v", stamp, ErrorStyle.Render(IconFailed+" poll failed"), event.Err)
	default:
		return fmt.Sprintf("%s %s %s", stamp, event.Type, event.Serial)
	}
}
