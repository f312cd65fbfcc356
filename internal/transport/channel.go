package transport

import (
	"bufio"
	"fmt"
	"io"

	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/wire"
)

// Channel is the exclusive view of the port handed to a caller (or to
// the reader) for the duration of one arbitration window. It is never
// retained past that window, but the buffered reader it wraps is
// shared across every window for the life of the Transport, so bytes
// read ahead of a line (e.g. two frames arriving in one OS read)
// survive into the next call instead of being discarded.
type Channel struct {
	port Port
	br   *bufio.Reader
}

// WriteFrame writes f, newline-terminated.
func (c *Channel) WriteFrame(f wire.Frame) error {
	encoded, err := f.Encode()
	if err != nil {
		return err
	}
	encoded = append(encoded, '\n')
	n, err := c.port.Write(encoded)
	if err != nil {
		return fmt.Errorf("transport: write failed: %w", err)
	}
	if n != len(encoded) {
		return fmt.Errorf("transport: short write: %d of %d bytes", n, len(encoded))
	}
	return nil
}

// WriteRaw writes data as-is, with no frame or newline. Used for bulk
// binary payloads sent after the device's `rd` and before its `ok`.
func (c *Channel) WriteRaw(data []byte) error {
	n, err := c.port.Write(data)
	if err != nil {
		return fmt.Errorf("transport: write failed: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("transport: short write: %d of %d bytes", n, len(data))
	}
	return nil
}

// ReadFrame reads a single newline-terminated line and decodes it as a
// frame. It draws from the Transport's one persistent buffered reader,
// so any bytes read ahead of the line (a second frame the device
// emitted in the same write) stay buffered for the next ReadFrame or
// ReadExact instead of being dropped when this call returns.
func (c *Channel) ReadFrame() (wire.Frame, error) {
	line, err := c.br.ReadString('\n')
	if err != nil {
		return wire.Frame{}, fmt.Errorf("transport: %w: %v", ErrReadTimeout, err)
	}
	f, err := wire.Decode([]byte(line[:len(line)-1]))
	if err != nil {
		return wire.Frame{}, err
	}
	return f, nil
}

// ReadExact reads exactly len(buf) raw bytes (a bulk payload announced
// by a preceding `rd?`/`rd` exchange), from the same buffered reader
// ReadFrame uses.
func (c *Channel) ReadExact(buf []byte) error {
	_, err := io.ReadFull(c.br, buf)
	if err != nil {
		return fmt.Errorf("transport: short read of payload: %w", err)
	}
	return nil
}
