package console

import (
	"fmt"
	"strings"

	"github.com/CZERTAINLY/osfp/internal/model"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
)

const OperatorNode = "You (Pentester)"

func (c *Console) Banner() {
	s, err := pterm.DefaultBigText.
		WithLetters(putils.LettersFromStringWithStyle("OSFP", pterm.NewStyle(pterm.FgGreen, pterm.Bold))).
		Srender()
	if err != nil {
		s = "OS FINGERPRINT\n"
	}
	c.print(s)
}

func (c *Console) Disclaimer() {
	c.print(pterm.DefaultBox.
		WithTitle(pterm.FgRed.Sprint("Ethical Disclaimer")).
		Sprintln(pterm.FgYellow.Sprint(
			"WARNING: For authorized penetration testing only!\n" +
				"Unauthorized use is illegal and unethical.",
		)))
}

// ScanModes renders the scan mode menu, options are numbered from 1.
func (c *Console) ScanModes(modes []model.ScanMode) error {
	data := pterm.TableData{{"Option", "Description"}}
	for i, m := range modes {
		data = append(data, []string{
			fmt.Sprintf("%d", i+1),
			pterm.FgCyan.Sprint(capitalize(m.ID)) + ": " + m.Description,
		})
	}
	s, err := pterm.DefaultTable.
		WithHasHeader(true).
		WithBoxed(true).
		WithData(data).
		Srender()
	if err != nil {
		return fmt.Errorf("rendering scan modes: %w", err)
	}
	c.print(pterm.DefaultSection.Sprintln("Scan Modes"))
	c.print(s + "\n")
	return nil
}

// Fingerprint renders a panel with the result for one target.
func (c *Console) Fingerprint(fp model.Fingerprint) {
	c.print(pterm.DefaultBox.
		WithTitle(pterm.Bold.Sprint(fp.Target.String())).
		Sprintln(fp.Target.String() + "\n" + styleDetail(fp)))
}

// Topology renders the operator as a root connected to every target.
func (c *Console) Topology(fps []model.Fingerprint) error {
	root := pterm.TreeNode{Text: OperatorNode}
	for _, fp := range fps {
		root.Children = append(root.Children, pterm.TreeNode{
			Text: fp.Target.String() + " " + pterm.FgDarkGray.Sprint("("+fp.Detail+")"),
		})
	}
	s, err := pterm.DefaultTree.WithRoot(root).Srender()
	if err != nil {
		return fmt.Errorf("rendering topology: %w", err)
	}
	c.print(pterm.DefaultSection.Sprintln("Network Map"))
	c.print(s + "\n")
	return nil
}

// ScanStarted shows a spinner on a terminal, a line otherwise.
func (c *Console) ScanStarted(target model.Target, argv []string) {
	text := fmt.Sprintf("Nmap: %s", target)
	if c.interactive {
		sp, err := pterm.DefaultSpinner.Start(text)
		if err == nil {
			c.spinner = sp
			return
		}
	}
	c.Info("Scanning %s... (%s)", target, strings.Join(argv, " "))
}

// ScanDone stops the spinner and reports failed or timed out runs.
func (c *Console) ScanDone(outcome model.ScanOutcome) {
	if c.spinner != nil {
		switch outcome.Status {
		case model.StatusOK:
			c.spinner.Success(fmt.Sprintf("Nmap: %s done", outcome.Target))
		default:
			c.spinner.Fail(fmt.Sprintf("Nmap: %s failed", outcome.Target))
		}
		c.spinner = nil
	}

	switch outcome.Status {
	case model.StatusTimeout:
		c.Error("Scan timed out for %s", outcome.Target)
	case model.StatusError:
		if outcome.ExitCode < 0 {
			c.Error("Nmap could not be run for %s: %v", outcome.Target, outcome.Err)
			return
		}
		c.Error("Nmap returned error (%d) for %s", outcome.ExitCode, outcome.Target)
		if stderr := strings.TrimSpace(outcome.Stderr); stderr != "" {
			c.Println(stderr)
		}
	}
}

// StopSpinner stops a spinner left running by an interrupted scan.
func (c *Console) StopSpinner() {
	if c.spinner != nil {
		_ = c.spinner.Stop()
		c.spinner = nil
	}
}

func styleDetail(fp model.Fingerprint) string {
	switch fp.Kind {
	case model.KindExactMatch, model.KindGuessedMatch:
		return pterm.NewStyle(pterm.FgBlue, pterm.Bold).Sprint(fp.Detail)
	case model.KindNoExactMatch, model.KindTooManyMatches, model.KindInconclusiveDetection:
		return pterm.FgYellow.Sprint(fp.Detail)
	default:
		return pterm.FgRed.Sprint(capitalize(fp.Detail))
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
