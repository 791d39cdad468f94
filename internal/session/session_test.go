package session_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/CZERTAINLY/osfp/internal/console"
	"github.com/CZERTAINLY/osfp/internal/model"
	"github.com/CZERTAINLY/osfp/internal/nmap"
	"github.com/CZERTAINLY/osfp/internal/resolve"
	"github.com/CZERTAINLY/osfp/internal/session"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	pterm.DisableColor()
	os.Exit(m.Run())
}

type fakeResolver map[string]model.Target

func (f fakeResolver) Resolve(_ context.Context, raw string) (model.Target, error) {
	t, ok := f[raw]
	if !ok {
		return "", &resolve.ResolutionError{Input: raw, Err: errors.New("no such host")}
	}
	return t, nil
}

// fakeScanner returns a canned output per target
type fakeScanner struct {
	raw     map[model.Target]string
	called  bool
	targets []model.Target
	mode    model.ScanMode
}

func (f *fakeScanner) Scan(_ context.Context, targets []model.Target, mode model.ScanMode) ([]model.ScanOutcome, error) {
	f.called = true
	f.targets = targets
	f.mode = mode
	ret := make([]model.ScanOutcome, 0, len(targets))
	for _, t := range targets {
		raw := f.raw[t]
		status := model.StatusOK
		if raw == "" {
			status = model.StatusTimeout
		}
		ret = append(ret, model.ScanOutcome{Target: t, Raw: raw, Status: status, TimedOut: raw == ""})
	}
	return ret, nil
}

var resolver = fakeResolver{
	"127.0.0.1":      "127.0.0.1",
	"scanme.example": "192.0.2.10",
	"db.example":     "192.0.2.20",
	"slow.example":   "192.0.2.30",
}

func TestRun_NoTargets(t *testing.T) {
	t.Parallel()
	var testCases = []struct {
		scenario string
		input    string
	}{
		{scenario: "blank line", input: "\n"},
		{scenario: "closed input", input: ""},
		{scenario: "only invalid targets", input: "nowhere.invalid\n-oN/tmp/x\n\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			scanner := &fakeScanner{}
			s := session.New(console.New(strings.NewReader(tc.input), &out), resolver, scanner, session.Config{})

			_, err := s.Run(t.Context())
			require.ErrorIs(t, err, model.ErrNoTargets)
			require.False(t, scanner.called)
			require.Contains(t, out.String(), "No targets provided. Exiting.")
		})
	}
}

func TestRun(t *testing.T) {
	t.Parallel()
	input := strings.Join([]string{
		"scanme.example",
		"nowhere.invalid",
		"db.example",
		"scanme.example", // duplicate
		"slow.example",
		"",
		"7", // invalid choice
		"2",
		"y",
	}, "\n") + "\n"

	scanner := &fakeScanner{raw: map[model.Target]string{
		"192.0.2.10": "Running: Linux 3.2 - 4.9",
		"192.0.2.20": "OS details: Linux 5.0 - 5.4\nRunning: Linux 3.2",
	}}
	var out bytes.Buffer
	bomPath := filepath.Join(t.TempDir(), "osfp.cdx.json")
	s := session.New(
		console.New(strings.NewReader(input), &out),
		resolver,
		scanner,
		session.Config{DefaultScanMode: model.ScanModeQuick, Topology: true, BOMPath: bomPath},
	)

	report, err := s.Run(t.Context())
	require.NoError(t, err)

	require.Equal(t, []model.Target{"192.0.2.10", "192.0.2.20", "192.0.2.30"}, scanner.targets)
	require.Equal(t, model.ScanModeAggressive, scanner.mode.ID)
	require.Equal(t, model.ScanModeAggressive, report.Mode.ID)

	require.Equal(t, []model.Fingerprint{
		{Target: "192.0.2.10", Kind: model.KindGuessedMatch, Detail: "Linux 3.2 - 4.9"},
		{Target: "192.0.2.20", Kind: model.KindExactMatch, Detail: "Linux 5.0 - 5.4"},
		{Target: "192.0.2.30", Kind: model.KindEmpty, Detail: "no output received"},
	}, report.Fingerprints)

	text := out.String()
	require.Contains(t, text, "Invalid target: nowhere.invalid")
	require.Contains(t, text, "Already added: 192.0.2.10")
	require.Contains(t, text, "Please select one of the available options")
	require.Contains(t, text, console.OperatorNode)
	require.Contains(t, text, "Scan complete. Stay ethical!")
	// panels are rendered in target order
	i10 := strings.Index(text, "Linux 3.2 - 4.9")
	i20 := strings.Index(text, "Linux 5.0 - 5.4")
	i30 := strings.Index(text, "No output received")
	require.True(t, i10 < i20 && i20 < i30, "panels must follow target order")

	f, err := os.Open(bomPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = f.Close()
	})
	var doc cdx.BOM
	require.NoError(t, cdx.NewBOMDecoder(f, cdx.BOMFileFormatJSON).Decode(&doc))
	require.Len(t, *doc.Components, 3)
}

func TestSelectMode(t *testing.T) {
	t.Parallel()
	var testCases = []struct {
		scenario string
		dflt     string
		input    string
		then     model.ScanMode
	}{
		{
			scenario: "default quick",
			dflt:     model.ScanModeQuick,
			input:    "\n",
			then:     model.ScanModes()[0],
		},
		{
			scenario: "default from config",
			dflt:     model.ScanModeAggressive,
			input:    "\n",
			then:     model.ScanModes()[1],
		},
		{
			scenario: "custom with args",
			dflt:     model.ScanModeQuick,
			input:    "3\n-O -Pn --top-ports 100\n",
			then:     model.CustomScanMode("-O -Pn --top-ports 100"),
		},
		{
			scenario: "custom default args",
			dflt:     model.ScanModeQuick,
			input:    "x\n3\n\n",
			then:     model.CustomScanMode("-O"),
		},
		{
			scenario: "custom preselected",
			dflt:     model.ScanModeCustom,
			input:    "\n-sV -O\n",
			then:     model.CustomScanMode("-sV -O"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			s := session.New(
				console.New(strings.NewReader(tc.input), io.Discard),
				resolver,
				&fakeScanner{},
				session.Config{DefaultScanMode: tc.dflt},
			)
			mode, err := s.SelectMode(t.Context())
			require.NoError(t, err)
			require.Equal(t, tc.then, mode)
		})
	}
}

func TestRun_Canceled(t *testing.T) {
	t.Parallel()
	r, w := io.Pipe()
	t.Cleanup(func() {
		_ = w.Close()
	})
	scanner := &fakeScanner{}
	s := session.New(console.New(r, io.Discard), resolver, scanner, session.Config{})

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	_, err := s.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, scanner.called)
}

// TestRun_Nmap runs the session with the real scanner and a fake nmap binary
func TestRun_Nmap(t *testing.T) {
	t.Parallel()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skipf("skipped, binary sh not available: %v", err)
	}
	path := filepath.Join(t.TempDir(), "nmap")
	script := "#!" + sh + `
for last; do :; done
case "$last" in
127.0.0.1) echo "Too many fingerprints match this host to give specific OS details" ;;
192.0.2.10) echo "Failed to open device" 1>&2; exit 1 ;;
*) echo "OS detection performed. Please report any incorrect results" ;;
esac
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))

	var out bytes.Buffer
	c := console.New(strings.NewReader("127.0.0.1\nscanme.example\ndb.example\n\n1\n"), &out)
	scanner := nmap.New().
		WithNmapBinary(path).
		WithTimeout(5 * time.Second).
		WithHooks(nmap.Hooks{
			OnStart: func(_ context.Context, target model.Target, argv []string) { c.ScanStarted(target, argv) },
			OnDone:  func(_ context.Context, outcome model.ScanOutcome) { c.ScanDone(outcome) },
		})
	s := session.New(c, resolver, scanner, session.Config{})

	report, err := s.Run(t.Context())
	require.NoError(t, err)
	require.Len(t, report.Fingerprints, 3)
	require.Equal(t, model.KindTooManyMatches, report.Fingerprints[0].Kind)
	require.Equal(t, model.KindUnparseable, report.Fingerprints[1].Kind)
	require.Equal(t, model.KindInconclusiveDetection, report.Fingerprints[2].Kind)
	require.Contains(t, out.String(), "Nmap returned error (1) for 192.0.2.10")
	require.Contains(t, out.String(), "Failed to open device")
	require.NotContains(t, out.String(), console.OperatorNode)
}
