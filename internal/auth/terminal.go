package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// TerminalPrompter reads the password from a terminal without echo. When in
// is not a terminal it reads a plain line. End of input cancels.
type TerminalPrompter struct {
	in  *os.File
	out io.Writer
	// lines is used when in is not a terminal.
	lines *bufio.Reader
}

// NewTerminalPrompter prompts on out and reads from in.
func NewTerminalPrompter(in *os.File, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: in, out: out, lines: bufio.NewReader(in)}
}

// Prompt implements Prompter.
func (p *TerminalPrompter) Prompt(ctx context.Context, req PromptRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.Problem != "" {
		fmt.Fprintf(p.out, "%s\n", req.Problem)
	}
	fmt.Fprintf(p.out, "Password to %s: ", req.Action)

	fd := int(p.in.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(p.out)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", ErrCanceled
			}
			return "", fmt.Errorf("auth: read password: %w", err)
		}
		return string(b), nil
	}

	line, err := p.lines.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		if errors.Is(err, io.EOF) {
			return "", ErrCanceled
		}
		return "", fmt.Errorf("auth: read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
