package server

import (
	"bufio"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/dispatch"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/session"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/transport"
)

// fakePort mirrors the scripted Port used across package tests.
type fakePort struct {
	mu      sync.Mutex
	toWrite []byte
	written []byte
}

func (p *fakePort) queue(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toWrite = append(p.toWrite, b...)
}

func (p *fakePort) Read(buf []byte) (int, error) {
	for {
		p.mu.Lock()
		if len(p.toWrite) > 0 {
			n := copy(buf[:1], p.toWrite[:1])
			p.toWrite = p.toWrite[n:]
			p.mu.Unlock()
			return n, nil
		}
		p.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
}

func (p *fakePort) Write(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, buf...)
	return len(buf), nil
}

func (p *fakePort) Close() error { return nil }

func (p *fakePort) SetReadTimeout(time.Duration) {}

func newTestServer(t *testing.T, port *fakePort) (*Server, string) {
	t.Helper()
	tr := transport.New(port)
	sess := session.New(tr)
	d := dispatch.New()
	srv := New(sess, d, "")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv.ln = ln
	go srv.serveOn(ln)

	return srv, ln.Addr().String()
}

// serveOn runs the accept loop against an already-bound listener, for
// tests that need the ephemeral port before calling ListenAndServe.
func (s *Server) serveOn(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func TestStopClosesListener(t *testing.T) {
	p := &fakePort{}
	srv, addr := newTestServer(t, p)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(`{"type":"stop"}` + "\n"))
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	_, err = net.Listen("tcp", addr)
	assert.NoError(t, err, "listener should have been released after stop")
	_ = srv
}

func TestStatusHandlerUpgradeAndClickForward(t *testing.T) {
	p := &fakePort{}
	p.queue([]byte("2li320 240 4 2 4\n"))
	srv, addr := newTestServer(t, p)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(`{"type":"setStatusHandler"}` + "\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)

	var reply message
	require.NoError(t, json.Unmarshal([]byte(line), &reply))
	assert.Equal(t, "setStatusHandler", reply.Type)
	var dims []uint32
	require.NoError(t, json.Unmarshal(reply.Value, &dims))
	assert.Equal(t, []uint32{320, 78}, dims)

	// Give the upgrade goroutine time to store the write handle, then
	// simulate a device status-click event routed through the dispatcher.
	time.Sleep(20 * time.Millisecond)
	srv.sendStatusClicked(42)

	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	var clicked message
	require.NoError(t, json.Unmarshal([]byte(line), &clicked))
	assert.Equal(t, "statusClicked", clicked.Type)
	var x uint32
	require.NoError(t, json.Unmarshal(clicked.Value, &x))
	assert.Equal(t, uint32(42), x)
}

func TestUpgradeRegistersStatusHandlerOnlyOnUpgrade(t *testing.T) {
	p := &fakePort{}
	p.queue([]byte("2li320 240 4 2 4\n"))
	tr := transport.New(p)
	sess := session.New(tr)
	d := dispatch.New()

	var configuredCalls []uint32
	d.RegisterStatus(func(x uint32) { configuredCalls = append(configuredCalls, x) })

	srv := New(sess, d, "")
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv.ln = ln
	go srv.serveOn(ln)

	// Before any connection upgrades, the configured action still runs.
	d.DispatchStatus(1)
	assert.Equal(t, []uint32{1}, configuredCalls)

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte(`{"type":"setStatusHandler"}` + "\n"))
	require.NoError(t, err)
	reader := bufio.NewReader(conn)
	_, err = reader.ReadString('\n')
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	// After upgrade, the server's forwarder takes over and the
	// configured action is no longer invoked.
	d.DispatchStatus(2)
	assert.Equal(t, []uint32{1}, configuredCalls)

	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	var clicked message
	require.NoError(t, json.Unmarshal([]byte(line), &clicked))
	assert.Equal(t, "statusClicked", clicked.Type)
}

func TestUnknownCommandLogsAndContinues(t *testing.T) {
	p := &fakePort{}
	_, addr := newTestServer(t, p)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(`{"type":"bogus"}` + "\n"))
	require.NoError(t, err)
	// Connection should remain open for a subsequent valid command.
	_, err = conn.Write([]byte(`{"type":"stop"}` + "\n"))
	require.NoError(t, err)
}
