// Package transport owns the serial handle to the macro deck and
// arbitrates access to it between a background event reader and
// synchronous command callers.
package transport

import (
	"time"

	serial "github.com/daedaluz/goserial"
)

// Port is the minimal surface transport needs from a serial handle.
// It is satisfied by *goserial.Port; tests substitute a fake.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(timeout time.Duration)
}

// ReadTimeout is the per-read deadline on the serial port.
const ReadTimeout = 3 * time.Second

// BaudRate is the fixed serial speed the device is driven at.
const BaudRate = 115200

// OpenSerial opens name as a raw 115200-baud serial port with the
// protocol's fixed 3s read timeout, via the daedaluz/goserial driver.
func OpenSerial(name string) (Port, error) {
	opts := serial.NewOptions().SetReadTimeout(ReadTimeout)
	p, err := serial.Open(name, opts)
	if err != nil {
		return nil, err
	}
	attrs, err := p.GetAttr2()
	if err != nil {
		p.Close()
		return nil, err
	}
	attrs.MakeRaw()
	attrs.SetSpeed(serial.B115200)
	if err := p.SetAttr2(serial.TCSANOW, attrs); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}
