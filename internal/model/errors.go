package model

import (
	"errors"
)

var (
	ErrNoTargets       = errors.New("no targets provided")
	ErrUnknownScanMode = errors.New("unknown scan mode")
)
