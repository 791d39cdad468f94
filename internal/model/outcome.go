package model

import (
	"time"
)

// ScanStatus tells how a single nmap invocation ended.
type ScanStatus string

const (
	StatusOK      ScanStatus = "ok"
	StatusTimeout ScanStatus = "timeout"
	StatusError   ScanStatus = "error"
)

// ScanOutcome is the raw result of a nmap run against one target.
type ScanOutcome struct {
	Target   Target
	Path     string
	Args     []string
	Raw      string // stdout followed by stderr
	Stderr   string
	ExitCode int // -1 when the process did not start or was killed
	TimedOut bool
	Status   ScanStatus
	Err      error
	Started  time.Time
	Stopped  time.Time
}

func (o ScanOutcome) Elapsed() time.Duration {
	if o.Started.IsZero() || o.Stopped.IsZero() {
		return 0
	}
	return o.Stopped.Sub(o.Started)
}
