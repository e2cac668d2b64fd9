package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tobyward/sitegen/internal/client"
	"github.com/tobyward/sitegen/internal/events"
)

func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	apiBase := fs.String("api", "http://127.0.0.1:3003", "base URL for sitegen API")
	pollInterval := fs.Duration("poll-interval", 5*time.Second, "sandbox list refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: sitegen watch [--api <url>] [--poll-interval <duration>] <session_id>")
	}
	if *pollInterval <= 0 {
		return fmt.Errorf("poll-interval must be positive")
	}

	cfg := watchConfig{
		APIBase:      strings.TrimRight(*apiBase, "/"),
		SessionID:    fs.Arg(0),
		PollInterval: *pollInterval,
	}

	p := tea.NewProgram(newWatchModel(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type watchConfig struct {
	APIBase      string
	SessionID    string
	PollInterval time.Duration
}

func (c watchConfig) wsURL() string {
	base := c.APIBase
	base = strings.Replace(base, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	return base + "/ws"
}

type progressEventMsg struct {
	Event events.Event
	Err   error
	EOF   bool
}

type sandboxSnapshotMsg struct {
	Active []client.SandboxSummary
	Err    string
}

type pollTickMsg struct{}

type watchModel struct {
	cfg          watchConfig
	listener     *client.Listener
	cancelListen context.CancelFunc
	width        int
	height       int
	connected    bool
	err          error
	sandboxID    string
	previewURL   string
	lastStatus   string
	events       []string
	active       []client.SandboxSummary
	activeErr    string
}

func newWatchModel(cfg watchConfig) *watchModel {
	return &watchModel{
		cfg:        cfg,
		lastStatus: "connecting",
	}
}

func (m *watchModel) Init() tea.Cmd {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m.listener = client.NewListener(m.cfg.wsURL(), m.cfg.SessionID, logger)

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelListen = cancel
	go m.listener.Run(ctx)

	return tea.Batch(
		waitForEventCmd(m.listener),
		fetchSandboxesCmd(m.cfg.APIBase),
	)
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancelListen != nil {
				m.cancelListen()
			}
			return m, tea.Quit
		}
		return m, nil
	case pollTickMsg:
		return m, fetchSandboxesCmd(m.cfg.APIBase)
	case sandboxSnapshotMsg:
		if msg.Err != "" {
			m.activeErr = msg.Err
		} else {
			m.active = msg.Active
			m.activeErr = ""
		}
		return m, pollAfterCmd(m.cfg.PollInterval)
	case progressEventMsg:
		if msg.Err != nil {
			m.err = msg.Err
			m.connected = false
			m.lastStatus = "disconnected"
			m.appendEvent("stream error: " + msg.Err.Error())
			return m, nil
		}
		if msg.EOF {
			m.connected = false
			m.lastStatus = "closed"
			m.appendEvent("event stream closed")
			return m, nil
		}
		m.connected = true
		m.handleEvent(msg.Event)
		return m, waitForEventCmd(m.listener)
	default:
		return m, nil
	}
}

func (m *watchModel) handleEvent(ev events.Event) {
	m.lastStatus = ev.Type
	if ev.SandboxID != "" {
		m.sandboxID = ev.SandboxID
	}
	if ev.PreviewURL != "" {
		m.previewURL = ev.PreviewURL
	}

	line := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), ev.Type)
	if ev.Tool != "" {
		line += " tool=" + ev.Tool
	}
	if ev.Message != "" {
		line += " " + trimForLog(ev.Message, 100)
	}
	if loc, ok := ev.Details["location"].(string); ok && loc != "" {
		line += " location=" + loc
	}
	m.appendEvent(line)
}

func (m *watchModel) View() string {
	accent := lipgloss.Color("#22C55E")
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#04170A")).
		Background(accent).
		Padding(0, 1).
		Render("Sitegen Watch")

	statusStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#04170A")).
		Background(accent).
		Padding(0, 1)
	switch {
	case m.err != nil:
		statusStyle = statusStyle.Background(lipgloss.Color("#EF4444")).Foreground(lipgloss.Color("#FEF2F2"))
	case !m.connected:
		statusStyle = statusStyle.Background(lipgloss.Color("#6B7280"))
	}

	meta := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#86EFAC")).
		Render(fmt.Sprintf("session=%s  api=%s  stream=%s", m.cfg.SessionID, m.cfg.APIBase, connectionLabel(m.connected, m.err)))

	status := statusStyle.Render(strings.ToUpper(m.lastStatus))
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#86EFAC")).
		Render("q: quit")
	if m.err != nil {
		footer = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Render("error: " + m.err.Error() + "  q: quit")
	}

	panelWidth := bodyWidth(m.width)
	eventsHeight, sandboxHeight := panelHeights(m.height)

	eventLines := m.events
	if len(eventLines) == 0 {
		eventLines = []string{"waiting for events..."}
	}
	if len(eventLines) > eventsHeight-1 {
		eventLines = eventLines[len(eventLines)-(eventsHeight-1):]
	}
	eventsPanel := renderPanel("Events", eventLines, panelWidth, eventsHeight, accent, false)
	sandboxPanel := renderPanel("Sandboxes", m.sandboxPanelLines(sandboxHeight-1), panelWidth, sandboxHeight, accent, true)

	return strings.Join([]string{title + " " + status, meta, eventsPanel, sandboxPanel, footer}, "\n")
}

func (m *watchModel) sandboxPanelLines(maxLines int) []string {
	var lines []string
	if m.sandboxID != "" {
		lines = append(lines, "current: "+m.sandboxID)
	}
	if m.previewURL != "" {
		lines = append(lines, "preview: "+m.previewURL)
	}
	if m.activeErr != "" {
		lines = append(lines, "list unavailable: "+m.activeErr)
		return trimPanelLines(lines, maxLines)
	}
	lines = append(lines, fmt.Sprintf("active: %d", len(m.active)))
	for _, sb := range m.active {
		lines = append(lines, fmt.Sprintf("  %s -> %s", sb.SandboxID, sb.PreviewURL))
	}
	return trimPanelLines(lines, maxLines)
}

func (m *watchModel) appendEvent(line string) {
	m.events = append(m.events, line)
	if len(m.events) > 800 {
		m.events = m.events[len(m.events)-800:]
	}
}

func waitForEventCmd(l *client.Listener) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-l.Events()
		if !ok {
			return progressEventMsg{EOF: true}
		}
		return progressEventMsg{Event: ev}
	}
}

func fetchSandboxesCmd(apiBase string) tea.Cmd {
	return func() tea.Msg {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		c := client.New(apiBase, logger)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		active, err := c.ListSandboxes(ctx)
		if err != nil {
			return sandboxSnapshotMsg{Err: err.Error()}
		}
		return sandboxSnapshotMsg{Active: active}
	}
}

func pollAfterCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}

func panelHeights(terminalHeight int) (events, sandboxes int) {
	available := terminalHeight - 5
	if available < 12 {
		available = 12
	}
	sandboxes = 7
	events = available - sandboxes
	if events < 6 {
		events = 6
	}
	return events, sandboxes
}

func renderPanel(title string, lines []string, width, height int, accent lipgloss.Color, keepHead bool) string {
	if height < 3 {
		height = 3
	}
	contentHeight := height - 1
	if contentHeight < 1 {
		contentHeight = 1
	}
	if len(lines) > contentHeight {
		if keepHead {
			lines = lines[:contentHeight]
		} else {
			lines = lines[len(lines)-contentHeight:]
		}
	}
	for len(lines) < contentHeight {
		lines = append(lines, "")
	}
	content := lipgloss.NewStyle().Bold(true).Foreground(accent).Render(title) + "\n" + strings.Join(lines, "\n")

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Foreground(lipgloss.Color("#F0FDF4")).
		Background(lipgloss.Color("#051F0D")).
		Width(width).
		Height(height).
		Padding(0, 1).
		Render(content)
}

func trimPanelLines(lines []string, maxLines int) []string {
	if maxLines <= 0 {
		return []string{}
	}
	if len(lines) <= maxLines {
		return lines
	}
	trimmed := append([]string{}, lines[:maxLines]...)
	trimmed[maxLines-1] = "..."
	return trimmed
}

func trimForLog(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func bodyWidth(terminalWidth int) int {
	if terminalWidth <= 0 {
		return 80
	}
	w := terminalWidth - 2
	if w < 40 {
		return 40
	}
	return w
}

func connectionLabel(connected bool, err error) string {
	if err != nil {
		return "error"
	}
	if connected {
		return "open"
	}
	return "connecting"
}
