// Package notify delivers short text messages to user handles.
package notify

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Channel sends text to a destination handle.
type Channel interface {
	Send(ctx context.Context, to, text string) error
}

// LogWriter provides logging operations.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// Console writes each message as a "[to] text" block. It backs the local
// REPL and tests.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole creates a console channel writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Send implements Channel.
func (c *Console) Send(_ context.Context, to, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintf(c.w, "[%s] %s\n", to, text)
	return err
}

// Discard drops every message.
type Discard struct{}

// Send implements Channel.
func (Discard) Send(context.Context, string, string) error { return nil }
