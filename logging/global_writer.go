package logging

import (
	"io"
	"os"
	"sync"
)

// console is the stderr sink shared by every component logger. Each logrus
// Logger only serializes its own writes, so the sink takes a full lock to keep
// lines from different components (and the router log follower) whole.
type console struct {
	mu sync.Mutex
	w  io.Writer
}

func (c *console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Write(p)
}

func (c *console) swap(w io.Writer) io.Writer {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.w
	c.w = w
	return prev
}

var sharedConsole = &console{w: os.Stderr}

// SetGlobalOutput redirects the shared stderr sink of all loggers.
func SetGlobalOutput(w io.Writer) {
	sharedConsole.swap(w)
}

// RedirectOutput sends the shared sink to w and returns a func restoring the
// previous destination.
func RedirectOutput(w io.Writer) (restore func()) {
	prev := sharedConsole.swap(w)
	return func() { sharedConsole.swap(prev) }
}

// GetGlobalOutput returns the shared sink itself, not its current destination.
func GetGlobalOutput() io.Writer {
	return sharedConsole
}
