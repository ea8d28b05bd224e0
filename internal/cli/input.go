// Package cli holds the interactive pieces of the management commands under
// cmd/. The mains only parse flags and wire dependencies; everything that
// talks to the operator lives here so it can be driven from tests.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter reads answers from an operator.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer

	// readPassword reads one secret without echo. It falls back to a plain
	// line read when in is not a terminal (piped input, tests).
	readPassword func() ([]byte, error)
}

// NewPrompter reads from in and writes prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{in: bufio.NewReader(in), out: out}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		p.readPassword = func() ([]byte, error) { return term.ReadPassword(fd) }
	} else {
		p.readPassword = func() ([]byte, error) {
			line, err := p.readLine()
			return []byte(line), err
		}
	}
	return p
}

// Text prints prompt and reads a single line. The trailing newline is
// trimmed. If EOF occurs after some input was read, the partial line is
// returned.
func (p *Prompter) Text(prompt string) (string, error) {
	if _, err := fmt.Fprint(p.out, prompt); err != nil {
		return "", err
	}
	return p.readLine()
}

// Password prints prompt and reads a secret without echo. A newline is
// printed after the read to keep the terminal tidy.
func (p *Prompter) Password(prompt string) (string, error) {
	if _, err := fmt.Fprint(p.out, prompt); err != nil {
		return "", err
	}
	pw, err := p.readPassword()
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// Confirm asks a yes/no question; anything but y/yes is no.
func (p *Prompter) Confirm(prompt string) (bool, error) {
	answer, err := p.Text(prompt + " [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Printf writes a message for the operator.
func (p *Prompter) Printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
