// Package dispatch maps button-click and status-click events to
// user-defined actions, invoked from the transport reader goroutine.
package dispatch

import (
	"os/exec"
	"strconv"
	"sync"

	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/logging"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/transport"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/wire"
)

// Action is a nullary button handler.
type Action func()

// StatusAction handles a status-bar click, receiving the click's x
// coordinate.
type StatusAction func(x uint32)

// Dispatcher holds the button-path -> Action table and the single
// status-click handler. Registration replaces an existing entry
// rather than aliasing it; invocation happens inline on whatever
// goroutine calls Dispatch/DispatchStatus — callers (the transport
// reader) must not block here on serial I/O.
type Dispatcher struct {
	mu       sync.RWMutex
	buttons  map[string]Action
	onStatus StatusAction
}

// New returns an empty Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{buttons: make(map[string]Action)}
}

// RegisterButton binds path to action, replacing any existing binding.
func (d *Dispatcher) RegisterButton(path string, action Action) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buttons[path] = action
}

// RegisterStatus binds the single status-click handler, replacing any
// existing one.
func (d *Dispatcher) RegisterStatus(action StatusAction) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onStatus = action
}

// Dispatch invokes the action bound to path, if any.
func (d *Dispatcher) Dispatch(path string) {
	d.mu.RLock()
	action := d.buttons[path]
	d.mu.RUnlock()
	if action == nil {
		logging.Dispatch.Printf("no action registered for button %q", path)
		return
	}
	action()
}

// DispatchStatus invokes the status-click handler, if any.
func (d *Dispatcher) DispatchStatus(x uint32) {
	d.mu.RLock()
	action := d.onStatus
	d.mu.RUnlock()
	if action == nil {
		return
	}
	action(x)
}

// EventHandler adapts d into a transport.EventHandler: `bc` frames
// dispatch the button at their path argument, `sc` frames parse their
// x argument and dispatch the status handler. Malformed arguments are
// logged and dropped.
func EventHandler(d *Dispatcher) transport.EventHandler {
	return func(f wire.Frame) {
		switch f.Type {
		case "bc":
			if len(f.Args) != 1 {
				logging.Dispatch.Printf("bc: want 1 arg, got %d", len(f.Args))
				return
			}
			d.Dispatch(f.Args[0])
		case "sc":
			if len(f.Args) != 1 {
				logging.Dispatch.Printf("sc: want 1 arg, got %d", len(f.Args))
				return
			}
			x, err := strconv.ParseUint(f.Args[0], 10, 32)
			if err != nil {
				logging.Dispatch.Printf("sc: bad x %q: %v", f.Args[0], err)
				return
			}
			d.DispatchStatus(uint32(x))
		}
	}
}

// SpawnCommand returns an Action that starts name with args as an
// external process and reaps it on a separate goroutine without
// waiting for it to exit. Launch failure is logged and never
// propagated — the reader goroutine must keep running regardless.
func SpawnCommand(name string, args []string) Action {
	return func() {
		cmd := exec.Command(name, args...)
		if err := cmd.Start(); err != nil {
			logging.Dispatch.Printf("spawn %q: %v", name, err)
			return
		}
		go func() {
			if err := cmd.Wait(); err != nil {
				logging.Dispatch.Printf("%q exited: %v", name, err)
			}
		}()
	}
}
