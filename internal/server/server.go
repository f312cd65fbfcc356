// Package server implements the TCP control channel: a line-delimited
// JSON command loop per connection, plus the upgradeable bidirectional
// status channel used to forward status-bar clicks and accept
// externally-rendered status images.
package server

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/config"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/dispatch"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/flash"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/imaging"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/logging"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/session"
)

// DefaultPort is the control channel's default TCP port.
const DefaultPort = 8964

// message is the wire shape of every control-channel line.
type message struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

// maxStatusRetries bounds retries of a single setStatus push before
// the server gives up and moves on to the next command.
const maxStatusRetries = 5

// Server owns the TCP listener and the single status-channel write
// handle shared between the accept loop and the dispatcher's
// status-click action.
type Server struct {
	sess       *session.Session
	dispatcher *dispatch.Dispatcher
	configPath string

	ln net.Listener

	mu         sync.Mutex
	statusConn net.Conn
}

// New wires a Server around an already-open session and dispatcher.
// configPath is the config file reloaded by a bare `flash` command. The
// dispatcher's configured status action stays in effect until a
// connection actually upgrades to the status channel.
func New(sess *session.Session, d *dispatch.Dispatcher, configPath string) *Server {
	return &Server{sess: sess, dispatcher: d, configPath: configPath}
}

// ListenAndServe binds addr and runs the accept loop until a `stop`
// command is received or the listener is closed.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	s.ln = ln
	logging.TCP.Printf("listening on %s", addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			return nil // listener closed: graceful shutdown
		}
		go s.handleConn(conn)
	}
}

// Close stops the accept loop.
func (s *Server) Close() error {
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}

func (s *Server) handleConn(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var msg message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			logging.TCP.Printf("malformed command: %v", err)
			continue
		}

		switch msg.Type {
		case "stop":
			logging.TCP.Printf("stop received, shutting down")
			conn.Close()
			s.Close()
			return
		case "flash":
			s.handleFlash(msg.Value)
			conn.Close()
			return
		case "setStatusHandler":
			s.upgradeStatusChannel(conn)
			return
		default:
			logging.TCP.Printf("unrecognized command %q", msg.Type)
		}
	}
	conn.Close()
}

func (s *Server) handleFlash(raw json.RawMessage) {
	cfg, err := s.loadFlashConfig(raw)
	if err != nil {
		logging.TCP.Printf("flash: %v", err)
		return
	}
	if err := flash.Run(s.sess, cfg); err != nil {
		logging.TCP.Printf("flash: %v", err)
	}
}

func (s *Server) loadFlashConfig(raw json.RawMessage) (*config.Config, error) {
	path := s.configPath
	if len(raw) > 0 {
		var override string
		if err := json.Unmarshal(raw, &override); err == nil && override != "" {
			path = override
		}
	}
	return config.Load(path)
}

// upgradeStatusChannel replies with the canvas size, stores conn as
// the status-click write handle, takes over status-click dispatch from
// whatever action the config registered, and spawns a reader loop for
// setStatus frames.
func (s *Server) upgradeStatusChannel(conn net.Conn) {
	info, err := s.sess.GetInfo()
	if err != nil {
		logging.TCP.Printf("setStatusHandler: get_info: %v", err)
		conn.Close()
		return
	}

	size, err := json.Marshal([]uint32{info.Width, info.StatusBarHeight})
	if err != nil {
		conn.Close()
		return
	}
	if err := writeMessage(conn, "setStatusHandler", size); err != nil {
		logging.TCP.Printf("setStatusHandler: reply: %v", err)
		conn.Close()
		return
	}

	s.mu.Lock()
	s.statusConn = conn
	s.mu.Unlock()

	s.dispatcher.RegisterStatus(s.sendStatusClicked)

	go s.statusReadLoop(conn)
}

func (s *Server) statusReadLoop(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var msg message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			logging.TCP.Printf("status channel: malformed command: %v", err)
			continue
		}
		if msg.Type != "setStatus" {
			logging.TCP.Printf("status channel: unrecognized command %q", msg.Type)
			continue
		}
		s.handleSetStatus(msg.Value)
	}
}

func (s *Server) handleSetStatus(raw json.RawMessage) {
	var b64 string
	if err := json.Unmarshal(raw, &b64); err != nil {
		logging.TCP.Printf("setStatus: bad payload: %v", err)
		return
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		logging.TCP.Printf("setStatus: base64 decode: %v", err)
		return
	}
	img, err := imaging.Decode(data)
	if err != nil {
		logging.TCP.Printf("setStatus: image decode: %v", err)
		return
	}

	var lastErr error
	for attempt := 0; attempt < maxStatusRetries; attempt++ {
		if lastErr = s.sess.SetStatus(img); lastErr == nil {
			return
		}
	}
	logging.TCP.Printf("setStatus: giving up after %d attempts: %v", maxStatusRetries, lastErr)
}

func (s *Server) sendStatusClicked(x uint32) {
	s.mu.Lock()
	conn := s.statusConn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	value, err := json.Marshal(x)
	if err != nil {
		return
	}
	if err := writeMessage(conn, "statusClicked", value); err != nil {
		logging.TCP.Printf("statusClicked: write: %v", err)
	}
}

func writeMessage(conn net.Conn, typ string, value json.RawMessage) error {
	msg := message{Type: typ, Value: value}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = conn.Write(data)
	return err
}
