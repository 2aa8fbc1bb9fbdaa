// Package ui implements the optional terminal view using BubbleTea: a tree
// of hardware nodes and their sensors sampled from the snapshot store, with
// alert flashes pushed in from the notification dispatcher.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"codeberg.org/mutker/hwmond/internal/alert"
	"codeberg.org/mutker/hwmond/internal/sensor"
	"codeberg.org/mutker/hwmond/internal/store"
)

const (
	// The view samples the store on its own clock, decoupled from however
	// fast the feed publishes.
	sampleInterval = 2 * time.Second

	// How long an alerted sensor stays highlighted and the footer keeps
	// the alert message up.
	highlightWindow = 30 * time.Second
	flashWindow     = 10 * time.Second
)

// FeedStatus reports whether the sensor feed is currently attached.
type FeedStatus interface {
	Available() bool
}

// ── Messages ─────────────────────────────────────────────────────────

type tickMsg time.Time

type alertMsg struct {
	event alert.Event
}

// ── Model ────────────────────────────────────────────────────────────

type model struct {
	store *store.Store
	feed  FeedStatus

	snapshot  sensor.Snapshot
	sampledAt time.Time

	// recent maps sensor name to the last alert time; rows stay
	// highlighted for highlightWindow.
	recent  map[string]time.Time
	flash   alert.Event
	flashAt time.Time
	ring    bool

	width     int
	height    int
	scroll    int
	startTime time.Time
	paused    bool
}

func newModel(st *store.Store, feed FeedStatus) model {
	return model{
		store:     st,
		feed:      feed,
		recent:    make(map[string]time.Time),
		startTime: time.Now(),
	}
}

// UI owns the BubbleTea program. It doubles as a notification sink so
// triggered alerts reach the view without polling.
type UI struct {
	prog *tea.Program
}

func New(st *store.Store, feed FeedStatus) *UI {
	return &UI{prog: tea.NewProgram(newModel(st, feed), tea.WithAltScreen())}
}

// Run blocks until the user quits or the program is stopped.
func (u *UI) Run() error {
	_, err := u.prog.Run()

	return err
}

// Quit stops the program from outside, e.g. on daemon shutdown.
func (u *UI) Quit() {
	u.prog.Quit()
}

// Name implements the notification sink contract.
func (u *UI) Name() string {
	return "tui"
}

// Send pushes a triggered alert into the running view.
func (u *UI) Send(_ context.Context, event alert.Event) error {
	u.prog.Send(alertMsg{event: event})

	return nil
}

// ── Commands ─────────────────────────────────────────────────────────

func tickCmd() tea.Cmd {
	return tea.Tick(sampleInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// ── Init / Update ────────────────────────────────────────────────────

func (m model) Init() tea.Cmd {
	return tickCmd()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The bell rings in exactly one render, the one its alert triggered.
	m.ring = false

	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.scroll > 0 {
				m.scroll--
			}
		case "down", "j":
			m.scroll++
		case "home":
			m.scroll = 0
		case " ", "p":
			m.paused = !m.paused
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		if !m.paused {
			m.snapshot = m.store.Current()
			m.sampledAt = m.store.LastPublished()
		}
		return m, tickCmd()

	case alertMsg:
		m.flash = msg.event
		m.flashAt = time.Now()
		m.recent[msg.event.Sensor] = time.Now()
		if msg.event.Rule.Sound {
			m.ring = true
		}
	}

	return m, nil
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorBorder   = lipgloss.Color("62")
	colorNodeName = lipgloss.Color("147")
	colorKind     = lipgloss.Color("243")
	colorLabel    = lipgloss.Color("252")
	colorValue    = lipgloss.Color("250")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorOk       = lipgloss.Color("78")
	colorAlert    = lipgloss.Color("196")
	colorPaused   = lipgloss.Color("196")
)

// ── View ─────────────────────────────────────────────────────────────

func (m model) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	contentWidth := m.width - 2
	if contentWidth < 48 {
		contentWidth = 48
	}

	var sections []string

	sections = append(sections, m.renderTitleBar(contentWidth))

	if len(m.snapshot) == 0 {
		waiting := lipgloss.NewStyle().
			Foreground(colorDim).
			Width(contentWidth).
			Align(lipgloss.Center).
			Padding(2, 0).
			Render("Waiting for sensor data...")
		sections = append(sections, waiting)
	} else {
		sections = append(sections, m.renderNodePanels(contentWidth)...)
	}

	sections = append(sections, m.renderFooter(contentWidth))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	lines := strings.Split(content, "\n")
	visibleLines := m.height
	if visibleLines < 5 {
		visibleLines = 5
	}
	maxScroll := len(lines) - visibleLines
	if maxScroll < 0 {
		maxScroll = 0
	}
	if m.scroll > maxScroll {
		m.scroll = maxScroll
	}

	start := m.scroll
	end := start + visibleLines
	if end > len(lines) {
		end = len(lines)
	}

	out := strings.Join(lines[start:end], "\n")
	if m.ring {
		out = "\a" + out
	}

	return out
}

func (m model) renderTitleBar(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("HARDWARE MONITOR")

	var statusParts []string

	uptime := lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("up %s", fmtDuration(time.Since(m.startTime))))
	statusParts = append(statusParts, uptime)

	if !m.sampledAt.IsZero() {
		ts := lipgloss.NewStyle().
			Foreground(colorDim).
			Render(m.sampledAt.Format("15:04:05"))
		statusParts = append(statusParts, ts)
	}

	if m.feed != nil {
		if m.feed.Available() {
			statusParts = append(statusParts, lipgloss.NewStyle().Foreground(colorOk).Render("LIVE"))
		} else {
			statusParts = append(statusParts, lipgloss.NewStyle().Foreground(colorAlert).Render("NO FEED"))
		}
	}

	if m.paused {
		p := lipgloss.NewStyle().
			Foreground(colorPaused).
			Bold(true).
			Render("PAUSED")
		statusParts = append(statusParts, p)
	}

	sep := lipgloss.NewStyle().Foreground(colorDim).Render(" │ ")
	right := strings.Join(statusParts, sep)

	gap := width - lipgloss.Width(logo) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}
	filler := strings.Repeat(" ", gap)

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + filler + right)
}

// Display order for sensor type groups inside a panel. Types outside this
// list follow in first-seen order.
var typeOrder = []sensor.SensorType{
	sensor.Temperature,
	sensor.Load,
	sensor.Clock,
	sensor.Fan,
	sensor.Power,
	sensor.Voltage,
}

type typeGroup struct {
	kind    sensor.SensorType
	sensors []sensor.Sensor
}

func groupByType(sensors []sensor.Sensor) []typeGroup {
	byType := make(map[sensor.SensorType][]sensor.Sensor)
	var extras []sensor.SensorType
	known := make(map[sensor.SensorType]bool)
	for _, t := range typeOrder {
		known[t] = true
	}

	for _, s := range sensors {
		if _, seen := byType[s.Type]; !seen && !known[s.Type] {
			extras = append(extras, s.Type)
		}
		byType[s.Type] = append(byType[s.Type], s)
	}

	var groups []typeGroup
	for _, t := range append(append([]sensor.SensorType{}, typeOrder...), extras...) {
		if list, ok := byType[t]; ok {
			groups = append(groups, typeGroup{kind: t, sensors: list})
		}
	}

	return groups
}

const (
	labelW = 26
	valueW = 13
)

func (m model) renderNodePanels(totalWidth int) []string {
	labelS := lipgloss.NewStyle().Foreground(colorLabel).Width(labelW)
	valueS := lipgloss.NewStyle().Foreground(colorValue).Width(valueW).Align(lipgloss.Right)
	alertS := lipgloss.NewStyle().Foreground(colorAlert).Bold(true).Width(valueW).Align(lipgloss.Right)
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	headerS := lipgloss.NewStyle().Foreground(colorDim).Width(valueW).Align(lipgloss.Right)

	var panels []string

	for _, node := range m.snapshot {
		var rows []string

		kindText := lipgloss.NewStyle().
			Foreground(colorKind).
			Render(node.Kind.Label())
		nameText := lipgloss.NewStyle().
			Bold(true).
			Foreground(colorNodeName).
			Render(node.Name)
		rows = append(rows, nameText+"  "+kindText)

		header := lipgloss.NewStyle().Foreground(colorDim).Width(labelW).Render("Sensor") +
			" " + headerS.Render("Value") +
			" " + headerS.Render("Min") +
			" " + headerS.Render("Max")
		rows = append(rows, header)

		for _, group := range groupByType(node.Sensors) {
			rows = append(rows, dimS.Render(string(group.kind)))

			unit := group.kind.Unit()
			for _, s := range group.sensors {
				vs := valueS
				if at, ok := m.recent[s.Name]; ok && time.Since(at) < highlightWindow {
					vs = alertS
				}

				row := labelS.Render("  "+truncate(s.Name, labelW-2)) +
					" " + vs.Render(cell(s.Value, unit)) +
					" " + valueS.Render(cell(s.Min, unit)) +
					" " + valueS.Render(cell(s.Max, unit))
				rows = append(rows, row)
			}
		}

		panelContent := lipgloss.JoinVertical(lipgloss.Left, rows...)
		panel := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1).
			Width(totalWidth).
			Render(panelContent)

		panels = append(panels, panel)
	}

	return panels
}

func (m model) renderFooter(width int) string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)

	if time.Since(m.flashAt) < flashWindow && m.flash.Message != "" {
		flash := lipgloss.NewStyle().
			Foreground(colorAlert).
			Bold(true).
			Render("ALERT  " + m.flash.Message)

		return lipgloss.NewStyle().
			Background(colorFooterBg).
			Width(width).
			Padding(0, 1).
			Render(flash)
	}

	keys := dimS.Render("q") + lipgloss.NewStyle().Foreground(colorLabel).Render(":quit") +
		dimS.Render("  j/k") + lipgloss.NewStyle().Foreground(colorLabel).Render(":scroll") +
		dimS.Render("  p") + lipgloss.NewStyle().Foreground(colorLabel).Render(":pause")

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(keys)
}

// cell renders a sensor field with its unit, or N/A when absent.
func cell(v *float64, unit string) string {
	s := sensor.FormatValue(v)
	if v != nil && unit != "" {
		s += " " + unit
	}

	return s
}

func truncate(s string, w int) string {
	if len(s) <= w {
		return s
	}
	if w <= 3 {
		return s[:w]
	}

	return s[:w-1] + "…"
}

func fmtDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	min := d / time.Minute
	d -= min * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, min, s)
	}

	return fmt.Sprintf("%dm%02ds", min, s)
}
