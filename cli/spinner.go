package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

const spinnerDelay = 100 * time.Millisecond

// Spinner animates a progress message on one terminal line.
type Spinner struct {
	out     io.Writer
	msg     string
	enabled bool
	stop    chan struct{}
	done    chan struct{}
}

// NewSpinner creates a spinner. A disabled spinner does nothing.
func NewSpinner(out io.Writer, msg string, enabled bool) *Spinner {
	return &Spinner{out: out, msg: msg, enabled: enabled}
}

// Start begins animating. Calling Start on a running spinner is a no-op.
func (s *Spinner) Start() {
	if !s.enabled || s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.spin()
}

// Stop halts the animation and erases the line.
func (s *Spinner) Stop() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.stop = nil
}

func (s *Spinner) spin() {
	defer close(s.done)
	ticker := time.NewTicker(spinnerDelay)
	defer ticker.Stop()

	for i := 0; ; i++ {
		fmt.Fprintf(s.out, "\r%s %s", s.msg, spinnerFrames[i%len(spinnerFrames)])
		select {
		case <-s.stop:
			blank := strings.Repeat(" ", runewidth.StringWidth(s.msg)+2)
			fmt.Fprintf(s.out, "\r%s\r", blank)
			return
		case <-ticker.C:
		}
	}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
