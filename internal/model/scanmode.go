package model

import (
	"fmt"
	"strings"
)

const (
	ScanModeQuick      = "quick"
	ScanModeAggressive = "aggressive"
	ScanModeCustom     = "custom"

	// DefaultCustomArgs is offered when the operator picks the custom preset.
	DefaultCustomArgs = "-O"
)

// ScanMode is a named bundle of nmap arguments.
type ScanMode struct {
	ID          string
	Description string
	Args        string
}

// Argv splits Args on white space. The result is passed to the child
// process directly, no shell is involved.
func (m ScanMode) Argv() []string {
	return strings.Fields(m.Args)
}

func (m ScanMode) String() string {
	return m.ID
}

var scanModes = []ScanMode{
	{
		ID:          ScanModeQuick,
		Description: "Fast scan (less accurate, stealthier)",
		Args:        "-O --osscan-guess --max-retries 1 --host-timeout 30s",
	},
	{
		ID:          ScanModeAggressive,
		Description: "Thorough scan (more accurate, slower, noisy)",
		Args:        "-O -T4 --osscan-guess --version-all --max-retries 3",
	},
	{
		ID:          ScanModeCustom,
		Description: "Custom Nmap arguments",
	},
}

// ScanModes returns the fixed presets in menu order.
func ScanModes() []ScanMode {
	return append([]ScanMode(nil), scanModes...)
}

// LookupScanMode returns a preset by its identifier.
func LookupScanMode(id string) (ScanMode, error) {
	for _, m := range scanModes {
		if m.ID == id {
			return m, nil
		}
	}
	return ScanMode{}, fmt.Errorf("%w: %q", ErrUnknownScanMode, id)
}

// CustomScanMode returns the custom preset carrying operator supplied args.
// The text is not validated.
func CustomScanMode(args string) ScanMode {
	m, _ := LookupScanMode(ScanModeCustom)
	m.Args = args
	return m
}
