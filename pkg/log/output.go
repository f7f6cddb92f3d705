package log

import (
	"io"
	"os"
	"sync"
)

// ConsoleOutput writes formatted entries to stdout, routing Error and Fatal
// lines to stderr.
type ConsoleOutput struct {
	mu sync.Mutex

	// Stdout/Stderr may be overridden for tests. Nil defaults to the
	// process streams.
	Stdout io.Writer
	Stderr io.Writer
}

// NewConsoleOutput creates a console output with default streams.
func NewConsoleOutput() *ConsoleOutput { return &ConsoleOutput{} }

// Write implements Output.
func (c *ConsoleOutput) Write(entry *Entry, formatted []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.Stdout
	if entry.Level >= ErrorLevel {
		w = c.Stderr
		if w == nil {
			w = os.Stderr
		}
	} else if w == nil {
		w = os.Stdout
	}
	_, err := w.Write(formatted)
	return err
}

// Close implements Output.
func (c *ConsoleOutput) Close() error { return nil }

// WriterOutput adapts any io.Writer into an Output. Used by tests and by
// callers that capture log lines.
type WriterOutput struct {
	mu sync.Mutex
	W  io.Writer
}

// Write implements Output.
func (o *WriterOutput) Write(_ *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.W.Write(formatted)
	return err
}

// Close implements Output.
func (o *WriterOutput) Close() error { return nil }
