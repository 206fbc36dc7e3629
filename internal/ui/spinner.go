package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Spinner animates a loading indicator while builder queries run.
// It writes to stderr so piped stdout stays clean.
type Spinner struct {
	frames []string
	msg    string
	out    io.Writer
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// NewSpinner creates a new spinner with the given message.
func NewSpinner(msg string) *Spinner {
	return NewSpinnerTo(os.Stderr, msg)
}

// NewSpinnerTo creates a spinner drawing on out.
func NewSpinnerTo(out io.Writer, msg string) *Spinner {
	return &Spinner{
		frames: spinnerFrames,
		msg:    msg,
		out:    out,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start begins the spinner animation in a goroutine.
func (s *Spinner) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			frame := StyleChain.Render(s.frames[i%len(s.frames)])
			fmt.Fprintf(s.out, "\r%s  %s", frame, s.msg)
			select {
			case <-s.stop:
				fmt.Fprintf(s.out, "\r%-60s\r", "") // clear line
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop halts the spinner and waits for it to finish. Safe to call twice.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
	})
}

// StopWithMsg halts the spinner and prints a final message.
func (s *Spinner) StopWithMsg(msg string) {
	s.Stop()
	fmt.Fprintln(s.out, msg)
}
