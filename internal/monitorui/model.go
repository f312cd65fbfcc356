// Package monitorui is a terminal front end for watching a running
// driver's status channel: it performs the setStatusHandler upgrade
// over the TCP control channel and renders each statusClicked event
// as it arrives.
package monitorui

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#FFFF00")).
			Padding(0, 2).
			Bold(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#4B5563")).
			Padding(0, 2)

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#60A5FA"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF")).
			Italic(true)
)

// message is the wire shape shared with the control/status channel.
type message struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

// connectedMsg reports a successful handshake: the live connection to
// keep reading from, plus the device's reported status-bar canvas size.
type connectedMsg struct {
	conn          net.Conn
	scanner       *bufio.Scanner
	width, height uint32
}

// errMsg carries a fatal connection error; the model keeps running so
// the user can read it before quitting.
type errMsg struct{ err error }

// statusClickMsg is one statusClicked event read off the wire.
type statusClickMsg struct{ x uint32 }

// Model is the bubbletea model for the monitor TUI.
type Model struct {
	addr string

	conn    net.Conn
	scanner *bufio.Scanner

	connected     bool
	width, height uint32
	events        []string
	lastErr       string
}

// New builds a Model that will dial addr on Init.
func New(addr string) Model {
	return Model{addr: addr}
}

func (m Model) Init() tea.Cmd {
	return connect(m.addr)
}

// connect dials addr, performs the setStatusHandler handshake, and
// reports the live connection back to Update via connectedMsg.
func connect(addr string) tea.Cmd {
	return func() tea.Msg {
		conn, err := net.DialTimeout("tcp", addr, 3*time.Second)
		if err != nil {
			return errMsg{fmt.Errorf("dial %s: %w", addr, err)}
		}

		req := message{Type: "setStatusHandler"}
		data, err := json.Marshal(req)
		if err != nil {
			conn.Close()
			return errMsg{err}
		}
		if _, err := conn.Write(append(data, '\n')); err != nil {
			conn.Close()
			return errMsg{fmt.Errorf("send setStatusHandler: %w", err)}
		}

		scanner := bufio.NewScanner(conn)
		if !scanner.Scan() {
			conn.Close()
			return errMsg{fmt.Errorf("no reply from %s", addr)}
		}
		var reply message
		if err := json.Unmarshal(scanner.Bytes(), &reply); err != nil {
			conn.Close()
			return errMsg{fmt.Errorf("decode handshake reply: %w", err)}
		}
		var size [2]uint32
		if err := json.Unmarshal(reply.Value, &size); err != nil {
			conn.Close()
			return errMsg{fmt.Errorf("decode canvas size: %w", err)}
		}

		return connectedMsg{conn: conn, scanner: scanner, width: size[0], height: size[1]}
	}
}

// readNext blocks on the next status-channel line, skipping anything
// that isn't a statusClicked event, and returns it as a statusClickMsg.
func readNext(conn net.Conn, scanner *bufio.Scanner) tea.Cmd {
	return func() tea.Msg {
		for scanner.Scan() {
			var msg message
			if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
				continue
			}
			if msg.Type != "statusClicked" {
				continue
			}
			var x uint32
			if err := json.Unmarshal(msg.Value, &x); err != nil {
				continue
			}
			return statusClickMsg{x: x}
		}
		return errMsg{fmt.Errorf("status channel closed")}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.conn != nil {
				m.conn.Close()
			}
			return m, tea.Quit
		}

	case connectedMsg:
		m.connected = true
		m.conn = msg.conn
		m.scanner = msg.scanner
		m.width, m.height = msg.width, msg.height
		m.events = append(m.events, eventStyle.Render("connected, watching for status clicks"))
		return m, readNext(msg.conn, msg.scanner)

	case statusClickMsg:
		m.events = append(m.events, eventStyle.Render(fmt.Sprintf("status click at x=%d", msg.x)))
		return m, readNext(m.conn, m.scanner)

	case errMsg:
		m.lastErr = msg.err.Error()
		m.connected = false
	}
	return m, nil
}

func (m Model) View() string {
	header := headerStyle.Render("macro deck status monitor")
	body := ""
	if m.lastErr != "" {
		body += errorStyle.Render("error: "+m.lastErr) + "\n"
	}
	if m.connected {
		body += fmt.Sprintf("canvas %dx%d\n\n", m.width, m.height)
	}
	start := 0
	if len(m.events) > 20 {
		start = len(m.events) - 20
	}
	for _, e := range m.events[start:] {
		body += e + "\n"
	}
	footer := footerStyle.Render("q to quit") + "\n" +
		helpStyle.Render("dials the TCP control channel and upgrades to the status feed")
	return header + "\n\n" + body + "\n" + footer
}
