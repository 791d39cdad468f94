package nmap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"os/exec"
	"slices"
	"time"

	"github.com/CZERTAINLY/osfp/internal/log"
	"github.com/CZERTAINLY/osfp/internal/model"

	"github.com/Ullaakut/nmap/v3"
)

const (
	// DefaultTimeout is the upper bound of a single nmap run
	DefaultTimeout = 120 * time.Second
	// waitDelay bounds the wait for output pipes after the process is killed
	waitDelay = 2 * time.Second
)

var (
	ErrNmapNotInstalled = nmap.ErrNmapNotInstalled
	ErrTimeout          = errors.New("scan timed out")
)

// Hooks are called around each nmap run. Both are optional.
type Hooks struct {
	OnStart func(ctx context.Context, target model.Target, argv []string)
	OnDone  func(ctx context.Context, outcome model.ScanOutcome)
}

// Scanner executes the nmap binary, one target at a time.
type Scanner struct {
	nmap    string
	timeout time.Duration
	hooks   Hooks
}

func New() Scanner {
	return Scanner{
		nmap:    model.DefaultNmapPath,
		timeout: DefaultTimeout,
	}
}

func (s Scanner) WithNmapBinary(nmap string) Scanner {
	if nmap != "" {
		s.nmap = nmap
	}
	return s
}

func (s Scanner) WithTimeout(timeout time.Duration) Scanner {
	s.timeout = timeout
	return s
}

func (s Scanner) WithHooks(hooks Hooks) Scanner {
	s.hooks = hooks
	return s
}

// presets are the typed nmap options of the fixed scan modes
var presets = map[string][]nmap.Option{
	model.ScanModeQuick: {
		nmap.WithOSDetection(),
		nmap.WithOSScanGuess(),
		nmap.WithMaxRetries(1),
		nmap.WithHostTimeout(30 * time.Second),
	},
	model.ScanModeAggressive: {
		nmap.WithOSDetection(),
		nmap.WithTimingTemplate(nmap.TimingAggressive),
		nmap.WithOSScanGuess(),
		nmap.WithVersionAll(),
		nmap.WithMaxRetries(3),
	},
}

// Argv returns the argument list for a scan of target: mode arguments,
// -6 for IPv6 targets and the target itself. Binary is not included.
func (s Scanner) Argv(ctx context.Context, mode model.ScanMode, target model.Target) ([]string, error) {
	options := []nmap.Option{
		nmap.WithBinaryPath(s.nmap),
	}
	args := mode.Argv()
	if preset, ok := presets[mode.ID]; ok {
		options = append(options, preset...)
	} else {
		options = append(options, nmap.WithCustomArguments(args...))
	}

	if addr, err := netip.ParseAddr(target.String()); err == nil && addr.Is6() && !slices.Contains(args, "-6") {
		options = append(options, nmap.WithIPv6Scanning())
	}
	options = append(options, nmap.WithTargets(target.String()))

	scanner, err := nmap.NewScanner(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("nmap arguments: %w", err)
	}
	return append([]string(nil), scanner.Args()...), nil
}

// Scan runs nmap against every target sequentially and returns the
// outcomes in target order. A timeout or a failure of one run does not
// stop the batch; only a cancellation of ctx does, in which case the
// outcomes gathered so far are returned with ctx.Err().
func (s Scanner) Scan(ctx context.Context, targets []model.Target, mode model.ScanMode) ([]model.ScanOutcome, error) {
	ctx = log.ContextAttrs(
		ctx,
		slog.String("scanner", "nmap"),
		slog.String("mode", mode.ID),
	)

	outcomes := make([]model.ScanOutcome, 0, len(targets))
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		argv, err := s.Argv(ctx, mode, target)
		if err != nil {
			return outcomes, err
		}
		if s.hooks.OnStart != nil {
			s.hooks.OnStart(ctx, target, argv)
		}
		outcome := s.Run(ctx, target, argv)
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		if s.hooks.OnDone != nil {
			s.hooks.OnDone(ctx, outcome)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// Run executes nmap once with given arguments. It never returns an
// error, the way the run ended is recorded in the outcome Status.
func (s Scanner) Run(ctx context.Context, target model.Target, args []string) model.ScanOutcome {
	outcome := model.ScanOutcome{
		Target:   target,
		Path:     s.nmap,
		Args:     append([]string(nil), args...),
		ExitCode: -1,
	}

	ctx = log.ContextAttrs(
		ctx,
		slog.String("target", target.String()),
		slog.GroupAttrs(
			"options",
			slog.String("nmap", s.nmap),
			slog.Any("args", args),
		),
	)

	runCtx := ctx
	if s.timeout == 0 {
		slog.WarnContext(ctx, "command has no timeout", "path", s.nmap)
	} else {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, s.nmap, args...)
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.DebugContext(ctx, "scan started")
	outcome.Started = time.Now().UTC()
	err := cmd.Run()
	outcome.Stopped = time.Now().UTC()
	if cmd.ProcessState != nil {
		outcome.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case err != nil && ctx.Err() != nil:
		outcome.Status = model.StatusError
		outcome.Err = ctx.Err()
		slog.DebugContext(ctx, "scan interrupted", "error", ctx.Err())
	case err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded):
		outcome.Status = model.StatusTimeout
		outcome.TimedOut = true
		outcome.Err = fmt.Errorf("%w after %s", ErrTimeout, s.timeout)
		slog.WarnContext(ctx, "scan timed out", "timeout", s.timeout.String())
	case err != nil:
		outcome.Status = model.StatusError
		outcome.Err = err
		outcome.Raw = stdout.String() + stderr.String()
		outcome.Stderr = stderr.String()
		slog.WarnContext(ctx, "scan failed", "error", err, "exit_code", outcome.ExitCode)
	default:
		outcome.Status = model.StatusOK
		outcome.Raw = stdout.String() + stderr.String()
		outcome.Stderr = stderr.String()
		slog.DebugContext(ctx, "scan finished", "elapsed", outcome.Elapsed().String())
	}

	return outcome
}

// Check verifies nmap can be executed. The default binary name is located
// in PATH, anything else must point to an executable.
func Check(ctx context.Context, path string) error {
	if path == "" || path == model.DefaultNmapPath {
		if _, err := nmap.NewScanner(ctx); err != nil {
			return fmt.Errorf("locating %s: %w", model.DefaultNmapPath, err)
		}
		return nil
	}
	if _, err := exec.LookPath(path); err != nil {
		return fmt.Errorf("locating %s: %w: %w", path, ErrNmapNotInstalled, err)
	}
	return nil
}
