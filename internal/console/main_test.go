package console_test

import (
	"testing"

	"github.com/pterm/pterm"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	pterm.DisableColor()
	goleak.VerifyTestMain(m)
}
