package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// prompter reads answers line by line. One prompter must own the input for
// a whole run since the scanner buffers ahead.
type prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{scanner: bufio.NewScanner(in), out: out}
}

// ask prints prompt and returns the trimmed answer. ok is false at end of
// input.
func (p *prompter) ask(prompt string) (answer string, ok bool) {
	fmt.Fprint(p.out, prompt)
	if !p.scanner.Scan() {
		fmt.Fprintln(p.out)
		return "", false
	}
	return strings.TrimSpace(p.scanner.Text()), true
}

// confirm asks a yes/no question; anything but y or yes is no.
func (p *prompter) confirm(prompt string) bool {
	answer, ok := p.ask(prompt)
	if !ok {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
