// Package browse is an interactive terminal browser over attached devices.
package browse

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pradb/pradb/internal/adb"
	"github.com/pradb/pradb/internal/ui"
)

const (
	defaultWidth  = 100
	defaultHeight = 24
	chromeHeight  = 6
)

// Source fetches what the browser displays. Every call runs on its own
// daemon connections.
type Source interface {
	ListDevices(ctx context.Context) ([]adb.DeviceRecord, error)
	Properties(ctx context.Context, serial string) (map[string]string, error)
}

type screen int

const (
	screenDevices screen = iota
	screenProperties
)

type devicesLoadedMsg struct {
	records []adb.DeviceRecord
	err     error
}

type propertiesLoadedMsg struct {
	serial string
	props  map[string]string
	err    error
}

type keyMap struct {
	Open    key.Binding
	Back    key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "properties")),
	Back:    key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Model is the bubbletea model for the device browser.
type Model struct {
	ctx     context.Context
	source  Source
	screen  screen
	devices table.Model
	props   viewport.Model
	records []adb.DeviceRecord
	serial  string
	loading bool
	err     error
	width   int
	height  int
}

// New builds a browser reading from source.
func New(ctx context.Context, source Source) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	devices := table.New(
		table.WithColumns(deviceColumns(defaultWidth)),
		table.WithFocused(true),
		table.WithHeight(defaultHeight-chromeHeight),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Foreground(ui.ButterscotchColor).Bold(true)
	styles.Selected = styles.Selected.Foreground(ui.MoonlitVioletColor).Bold(true)
	devices.SetStyles(styles)

	return Model{
		ctx:     ctx,
		source:  source,
		devices: devices,
		props:   viewport.New(defaultWidth, defaultHeight-chromeHeight),
		loading: true,
		width:   defaultWidth,
		height:  defaultHeight,
	}
}

func (m Model) Init() tea.Cmd {
	return m.loadDevices()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case devicesLoadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.records = msg.records
			m.devices.SetRows(deviceRows(msg.records))
		}
		return m, nil
	case propertiesLoadedMsg:
		if msg.serial != m.serial {
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.props.SetContent(ui.PropertyTable(msg.props))
			m.props.GotoTop()
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Refresh) && m.screen == screenDevices:
		m.loading = true
		m.err = nil
		return m, m.loadDevices()
	case key.Matches(msg, keys.Back) && m.screen == screenProperties:
		m.screen = screenDevices
		m.serial = ""
		m.err = nil
		m.loading = false
		return m, nil
	case key.Matches(msg, keys.Open) && m.screen == screenDevices:
		row := m.devices.SelectedRow()
		if len(row) == 0 {
			return m, nil
		}
		m.screen = screenProperties
		m.serial = row[0]
		m.loading = true
		m.err = nil
		m.props.SetContent("")
		return m, m.loadProperties(m.serial)
	}

	var cmd tea.Cmd
	if m.screen == screenDevices {
		m.devices, cmd = m.devices.Update(msg)
	} else {
		m.props, cmd = m.props.Update(msg)
	}
	return m, cmd
}

func (m Model) View() string {
	var body string
	title := "Attached devices"
	switch m.screen {
	case screenProperties:
		title = "Properties of " + m.serial
		body = ui.PanelBorderFocused.Render(m.props.View())
	default:
		body = ui.PanelBorderFocused.Render(m.devices.View())
		if !m.loading && m.err == nil && len(m.records) == 0 {
			body = ui.PanelBorder.Render(ui.MutedStyle.Render("no devices attached"))
		}
	}

	lines := []string{ui.HeaderStyle.Render(title), body}
	switch {
	case m.err != nil:
		lines = append(lines, ui.Error(m.err))
	case m.loading:
		lines = append(lines, ui.MutedStyle.Render("loading..."))
	}
	lines = append(lines, m.helpLine())
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) helpLine() string {
	bindings := []key.Binding{keys.Open, keys.Refresh, keys.Quit}
	if m.screen == screenProperties {
		bindings = []key.Binding{keys.Back, keys.Quit}
	}
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		help := binding.Help()
		parts = append(parts, fmt.Sprintf("%s %s", help.Key, help.Desc))
	}
	return ui.MutedStyle.Render(strings.Join(parts, " • "))
}

func (m *Model) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width = width
	m.height = height
	bodyHeight := max(3, height-chromeHeight)
	m.devices.SetColumns(deviceColumns(width))
	m.devices.SetHeight(bodyHeight)
	m.props.Width = max(20, width-2)
	m.props.Height = bodyHeight
}

func (m Model) loadDevices() tea.Cmd {
	ctx, source := m.ctx, m.source
	return func() tea.Msg {
		records, err := source.ListDevices(ctx)
		return devicesLoadedMsg{records: records, err: err}
	}
}

func (m Model) loadProperties(serial string) tea.Cmd {
	ctx, source := m.ctx, m.source
	return func() tea.Msg {
		props, err := source.Properties(ctx, serial)
		return propertiesLoadedMsg{serial: serial, props: props, err: err}
	}
}

func deviceColumns(width int) []table.Column {
	serialWidth := max(16, width/3)
	return []table.Column{
		{Title: "SERIAL", Width: serialWidth},
		{Title: "MODEL", Width: max(16, width-serialWidth-6)},
	}
}

func deviceRows(records []adb.DeviceRecord) []table.Row {
	rows := make([]table.Row, 0, len(records))
	for _, record := range records {
		rows = append(rows, table.Row{record.Serial, record.Model})
	}
	return rows
}
