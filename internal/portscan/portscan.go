// Package portscan implements serial-port enumeration and the
// auto-detect selection policy: list available ports, strip them to
// their short device-specific name, exclude known non-candidates, and
// reconstruct a full device path from a short name on start.
package portscan

import (
	"fmt"
	"regexp"
	"runtime"
)

// excluded names are never valid macro-deck candidates even if they
// show up as serial ports.
var excluded = map[string]bool{
	"debug-console":           true,
	"Bluetooth-Incoming-Port": true,
}

var devNameRE = regexp.MustCompile(`^/dev/(cu|tty)\.?(.*)$`)

// List returns the short, deduplicated names of every available
// serial port (POSIX `/dev/tty*`/`/dev/cu.*` stripped of their
// prefix; anything else passed through unchanged).
func List() ([]string, error) {
	paths, err := availablePorts()
	if err != nil {
		return nil, fmt.Errorf("portscan: %w", err)
	}
	return FormatNames(paths), nil
}

// FormatNames strips each POSIX device path to its driver-assigned
// short name, deduplicating repeats (a port can appear under more than
// one `/dev` entry on some systems).
func FormatNames(paths []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range paths {
		name := p
		if m := devNameRE.FindStringSubmatch(p); m != nil {
			name = m[2]
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// AutoDetect returns the sole non-excluded candidate, if exactly one
// remains after filtering; otherwise ok is false.
func AutoDetect() (port string, ok bool) {
	names, err := List()
	if err != nil {
		return "", false
	}
	var candidates []string
	for _, n := range names {
		if !excluded[n] {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) != 1 {
		return "", false
	}
	return candidates[0], true
}

// ResolveDeviceName expands a short port name into the full device
// path the transport should open. If name already looks like a full
// `/dev/(cu|tty)...` path it is returned unchanged.
//
// The original driver this is ported from reconstructs the Linux form
// as "/dev/TTY<name>" (uppercase) — almost certainly a bug, since the
// kernel's actual tty device nodes are lowercase. This implements the
// corrected lowercase form.
func ResolveDeviceName(name string) string {
	if devNameRE.MatchString(name) {
		return name
	}
	switch runtime.GOOS {
	case "darwin":
		return "/dev/cu." + name
	case "linux":
		return "/dev/tty" + name
	default:
		return name
	}
}
