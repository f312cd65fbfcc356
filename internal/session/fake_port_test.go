package session

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// fakePort is a minimal in-memory transport.Port driven by a scripted
// sequence of writes-in / bytes-out, for exercising session ops without
// real serial hardware.
type fakePort struct {
	mu      sync.Mutex
	toWrite []byte // bytes queued for the next Read calls
	written bytes.Buffer
	closed  bool
}

func (p *fakePort) queue(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toWrite = append(p.toWrite, b...)
}

// Read returns at most one byte per call, the way bytes actually
// trickle in off a real serial line — this keeps bufio's internal
// read-ahead from swallowing bytes that belong to a later, still-
// unqueued frame.
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
	return p.written.Write(buf)
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) SetReadTimeout(time.Duration) {}

var _ io.ReadWriteCloser = (*fakePort)(nil)
