package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/CZERTAINLY/osfp/internal/bom"
	"github.com/CZERTAINLY/osfp/internal/console"
	"github.com/CZERTAINLY/osfp/internal/fingerprint"
	"github.com/CZERTAINLY/osfp/internal/model"
)

type Resolver interface {
	Resolve(ctx context.Context, raw string) (model.Target, error)
}

type Scanner interface {
	Scan(ctx context.Context, targets []model.Target, mode model.ScanMode) ([]model.ScanOutcome, error)
}

type Config struct {
	// DefaultScanMode is preselected in the scan mode prompt
	DefaultScanMode string
	// Topology is true when the network map can be rendered
	Topology bool
	// BOMPath, if set, is where a CycloneDX document with results is written
	BOMPath string
}

type Session struct {
	console  *console.Console
	resolver Resolver
	scanner  Scanner
	cfg      Config
}

// Report is what a finished session produced.
type Report struct {
	Mode         model.ScanMode
	Targets      []model.Target
	Fingerprints []model.Fingerprint
}

func New(c *console.Console, resolver Resolver, scanner Scanner, cfg Config) *Session {
	return &Session{
		console:  c,
		resolver: resolver,
		scanner:  scanner,
		cfg:      cfg,
	}
}

// Run executes the whole session. It returns model.ErrNoTargets when the
// operator entered no valid target and ctx.Err() on interrupt.
func (s *Session) Run(ctx context.Context) (Report, error) {
	var report Report

	s.console.Banner()
	s.console.Disclaimer()
	s.console.Info("Welcome, penetration tester!")

	targets, err := s.CollectTargets(ctx)
	if err != nil {
		return report, err
	}
	if len(targets) == 0 {
		s.console.Error("No targets provided. Exiting.")
		return report, model.ErrNoTargets
	}
	report.Targets = targets

	mode, err := s.SelectMode(ctx)
	if err != nil {
		return report, err
	}
	report.Mode = mode
	s.console.Info("Selected scan mode: %s", mode.ID)
	s.console.Info("Nmap args: %s", mode.Args)
	slog.InfoContext(ctx, "session scan", "targets", len(targets), "mode", mode.ID)

	outcomes, err := s.scanner.Scan(ctx, targets, mode)
	if err != nil {
		return report, fmt.Errorf("scanning: %w", err)
	}

	report.Fingerprints = make([]model.Fingerprint, 0, len(outcomes))
	for _, outcome := range outcomes {
		fp := fingerprint.Classify(outcome)
		slog.DebugContext(ctx, "fingerprint",
			"target", fp.Target.String(),
			"kind", fp.Kind.String(),
			"detail", fp.Detail,
			"status", string(outcome.Status),
		)
		report.Fingerprints = append(report.Fingerprints, fp)
		s.console.Fingerprint(fp)
	}

	if s.cfg.Topology {
		show, err := s.console.Confirm(ctx, "Show network map? (y/n)", false)
		if err != nil {
			return report, err
		}
		if show {
			if err := s.console.Topology(report.Fingerprints); err != nil {
				return report, err
			}
		}
	}

	if s.cfg.BOMPath != "" {
		if err := writeBOM(s.cfg.BOMPath, report); err != nil {
			return report, err
		}
		s.console.Success("BOM written to %s", s.cfg.BOMPath)
	}

	s.console.Success("Scan complete. Stay ethical!")
	return report, nil
}

// CollectTargets prompts for targets until an empty answer. Input which
// can't be resolved is reported and skipped, as are repeated addresses.
func (s *Session) CollectTargets(ctx context.Context) ([]model.Target, error) {
	var targets []model.Target
	seen := make(map[model.Target]struct{})
	for {
		raw, err := s.console.Text(ctx, "Enter target IP/hostname (leave blank to finish)", "")
		if errors.Is(err, io.EOF) {
			return targets, nil
		}
		if err != nil {
			return targets, err
		}
		if raw == "" {
			return targets, nil
		}

		target, err := s.resolver.Resolve(ctx, raw)
		if err != nil {
			if ctx.Err() != nil {
				return targets, ctx.Err()
			}
			slog.DebugContext(ctx, "target rejected", "input", raw, "error", err)
			s.console.Error("Invalid target: %s", raw)
			continue
		}
		if _, ok := seen[target]; ok {
			s.console.Warning("Already added: %s", target)
			continue
		}
		seen[target] = struct{}{}
		targets = append(targets, target)
		s.console.Success("Added: %s", target)
	}
}

// SelectMode shows the presets and asks for one of them. The custom
// preset asks for nmap arguments as well.
func (s *Session) SelectMode(ctx context.Context) (model.ScanMode, error) {
	modes := model.ScanModes()
	if err := s.console.ScanModes(modes); err != nil {
		return model.ScanMode{}, err
	}

	choices := make([]string, len(modes))
	def := "1"
	for i, m := range modes {
		choices[i] = strconv.Itoa(i + 1)
		if m.ID == s.cfg.DefaultScanMode {
			def = choices[i]
		}
	}

	choice, err := s.console.Choice(ctx, "Select scan mode", choices, def)
	if err != nil {
		return model.ScanMode{}, fmt.Errorf("reading scan mode: %w", err)
	}
	idx, _ := strconv.Atoi(choice)
	mode := modes[idx-1]

	if mode.ID == model.ScanModeCustom {
		args, err := s.console.Text(ctx, "Enter your custom Nmap arguments (excluding target IP)", model.DefaultCustomArgs)
		if err != nil {
			return model.ScanMode{}, fmt.Errorf("reading custom arguments: %w", err)
		}
		mode = model.CustomScanMode(args)
	}
	return mode, nil
}

func writeBOM(path string, report Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating BOM file %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	b := bom.NewBuilder().AppendFingerprints(report.Mode, report.Fingerprints...)
	if err := b.AsJSON(f); err != nil {
		return fmt.Errorf("formatting BOM as JSON: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing BOM file %s: %w", path, err)
	}
	return nil
}
