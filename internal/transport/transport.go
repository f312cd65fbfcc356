package transport

import (
	"bufio"
	"sync"
	"sync/atomic"

	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/logging"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/wire"
)

// EventHandler is invoked on the reader goroutine whenever an
// unsolicited frame (`bc`, `sc`) arrives. Implementations must not
// block on serial I/O — offload any device call to another goroutine.
type EventHandler func(f wire.Frame)

// Transport owns the serial handle and arbitrates it between the
// background reader and synchronous command callers.
//
// Do works regardless of whether the reader loop has been started:
// the reader is an optional consumer of the port, not a precondition
// for using it. Only Close renders the transport unusable.
type Transport struct {
	port Port
	br   *bufio.Reader

	portMu  sync.Mutex
	handoff atomic.Bool
	// resume wakes a reader parked waiting for a handoff. It is
	// buffered so a Do call that finishes (or Stop) before the reader
	// reaches its receive still leaves the wakeup queued instead of
	// losing it the way a sync.Cond.Signal would with no waiter yet.
	resume chan struct{}

	readerActive atomic.Bool
	closed       atomic.Bool
	done         chan struct{}

	onEvent EventHandler
}

// New wraps an already-open Port. Do is usable immediately; call Start
// separately to begin the reader loop for unsolicited events.
func New(port Port) *Transport {
	return &Transport{
		port:   port,
		br:     bufio.NewReader(port),
		resume: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Start launches the background reader goroutine, which, whenever no
// caller holds the port via Do, dispatches decoded `bc`/`sc` event
// frames to onEvent and logs and drops any other frame.
func (t *Transport) Start(onEvent EventHandler) {
	t.onEvent = onEvent
	t.readerActive.Store(true)
	go t.readLoop()
}

// Stop signals a running reader to exit and waits for it to do so. A
// no-op if the reader was never started. Nudges resume in case the
// reader is currently parked waiting out a handoff.
func (t *Transport) Stop() {
	if !t.readerActive.CompareAndSwap(true, false) {
		return
	}
	select {
	case t.resume <- struct{}{}:
	default:
	}
	<-t.done
}

// Close stops the reader (if running) and closes the underlying port.
func (t *Transport) Close() error {
	t.Stop()
	t.closed.Store(true)
	return t.port.Close()
}

// Do hands the port exclusively to fn for its duration: it asks the
// reader to yield the port (if one is running), waits for the
// handoff, runs fn, then returns the port to the reader. This is the
// request/response (and bulk-transfer) primitive every session op is
// built on.
func (t *Transport) Do(fn func(*Channel) error) error {
	if t.closed.Load() {
		return ErrClosed
	}

	t.handoff.Store(true)

	t.portMu.Lock()
	defer func() {
		t.portMu.Unlock()
		select {
		case t.resume <- struct{}{}:
		default:
		}
	}()

	return fn(&Channel{port: t.port, br: t.br})
}

func (t *Transport) readLoop() {
	defer close(t.done)

	t.portMu.Lock()
	for {
		if !t.readerActive.Load() {
			t.portMu.Unlock()
			return
		}

		if t.handoff.Load() {
			t.handoff.Store(false)
			t.portMu.Unlock()
			// resume is buffered, so a Do that has already unlocked
			// portMu and signaled by the time we get here still finds
			// its wakeup waiting instead of losing it.
			<-t.resume
			t.portMu.Lock()
			continue
		}

		ch := Channel{port: t.port, br: t.br}
		f, err := ch.ReadFrame()
		if err != nil {
			// Read timeouts are expected idle behavior; they and any
			// decode failure are dropped silently and the loop keeps going.
			continue
		}

		switch f.Type {
		case "bc", "sc":
			if t.onEvent != nil {
				t.onEvent(f)
			}
		default:
			// An unsolicited frame that isn't an event and has no
			// pending caller (callers only ever read their own
			// response while holding the port themselves) — this can
			// only happen if the device emits a stray frame. Log and
			// drop it.
			logging.Transport.Printf("reader: dropping unexpected frame %q", f.Type)
		}
	}
}
