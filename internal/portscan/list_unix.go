//go:build linux || darwin

package portscan

import "path/filepath"

// availablePorts globs the conventional POSIX serial device nodes.
// Raw enumeration is an external collaborator here; only the
// filter/selection policy built on top of it (List, AutoDetect) is in
// scope, so this stays deliberately simple.
func availablePorts() ([]string, error) {
	var names []string
	for _, pattern := range []string{"/dev/ttyUSB*", "/dev/ttyACM*", "/dev/cu.*", "/dev/tty.*"} {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		names = append(names, matches...)
	}
	return names, nil
}
