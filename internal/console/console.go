// Package console is the operator facing side of osfp. It renders
// prompts, scan progress and results with pterm and reads answers line by
// line from its input. A Console is created once in main and handed to
// the session, there is no package level state.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
)

type line struct {
	text string
	err  error
}

type Console struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
	pending     chan line
	spinner     *pterm.SpinnerPrinter
}

func New(in io.Reader, out io.Writer) *Console {
	return &Console{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// WithInteractive enables spinners, which need a terminal.
func (c *Console) WithInteractive(interactive bool) *Console {
	c.interactive = interactive
	return c
}

func (c *Console) Interactive() bool {
	return c.interactive
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (c *Console) print(s string) {
	_, _ = io.WriteString(c.out, s)
}

func (c *Console) Println(a ...any) {
	c.print(fmt.Sprintln(a...))
}

func (c *Console) Info(format string, a ...any) {
	c.print(pterm.Info.Sprintfln(format, a...))
}

func (c *Console) Success(format string, a ...any) {
	c.print(pterm.Success.Sprintfln(format, a...))
}

func (c *Console) Warning(format string, a ...any) {
	c.print(pterm.Warning.Sprintfln(format, a...))
}

func (c *Console) Error(format string, a ...any) {
	c.print(pterm.Error.Sprintfln(format, a...))
}

// readLine returns one line without the line terminator. A blocked read
// is abandoned when ctx is done and picked up by the next call.
func (c *Console) readLine(ctx context.Context) (string, error) {
	if c.pending == nil {
		ch := make(chan line, 1)
		go func() {
			s, err := c.in.ReadString('\n')
			if err != nil && s != "" && errors.Is(err, io.EOF) {
				err = nil
			}
			ch <- line{text: strings.TrimRight(s, "\r\n"), err: err}
		}()
		c.pending = ch
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l := <-c.pending:
		c.pending = nil
		return l.text, l.err
	}
}

// Text asks for a free form answer. Empty answer returns def. Returns
// io.EOF when the input is closed.
func (c *Console) Text(ctx context.Context, prompt, def string) (string, error) {
	c.print(promptText(prompt, nil, def))
	s, err := c.readLine(ctx)
	if err != nil {
		return "", err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	return s, nil
}

// Choice asks until the answer is one of choices. Empty answer returns def.
func (c *Console) Choice(ctx context.Context, prompt string, choices []string, def string) (string, error) {
	for {
		c.print(promptText(prompt, choices, def))
		s, err := c.readLine(ctx)
		if err != nil {
			return "", err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			s = def
		}
		if slices.Contains(choices, s) {
			return s, nil
		}
		c.Error("Please select one of the available options: %s", strings.Join(choices, ", "))
	}
}

// Confirm asks a y/n question. A closed input is taken as def.
func (c *Console) Confirm(ctx context.Context, prompt string, def bool) (bool, error) {
	d := "n"
	if def {
		d = "y"
	}
	s, err := c.Choice(ctx, prompt, []string{"y", "n"}, d)
	if errors.Is(err, io.EOF) {
		return def, nil
	}
	if err != nil {
		return false, err
	}
	return s == "y", nil
}

func promptText(prompt string, choices []string, def string) string {
	var b strings.Builder
	b.WriteString(pterm.FgCyan.Sprint(prompt))
	if len(choices) > 0 {
		b.WriteString(" " + pterm.FgMagenta.Sprint("["+strings.Join(choices, "/")+"]"))
	}
	if def != "" {
		b.WriteString(" " + pterm.FgDarkGray.Sprint("("+def+")"))
	}
	b.WriteString(": ")
	return b.String()
}
