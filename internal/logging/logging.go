// Package logging provides the per-subsystem loggers used throughout
// the daemon: plain stdlib `log`, no structured fields, short informal
// prefixes, log.Printf call sites.
package logging

import (
	"log"
	"os"
)

func newLogger(prefix string) *log.Logger {
	return log.New(os.Stderr, prefix+" ", log.LstdFlags)
}

var (
	Transport  = newLogger("[transport]")
	Session    = newLogger("[session]")
	Flash      = newLogger("[flash]")
	Dispatch   = newLogger("[dispatch]")
	TCP        = newLogger("[tcp]")
	Supervisor = newLogger("[supervisor]")
)
