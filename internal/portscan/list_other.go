//go:build !linux && !darwin

package portscan

// availablePorts has no implementation outside POSIX: Windows
// enumeration is a named-but-unspecified external collaborator.
func availablePorts() ([]string, error) {
	return nil, nil
}
