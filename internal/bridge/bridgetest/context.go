// Package bridgetest provides an in-memory execution context for testing
// code built on the bridge.
package bridgetest

import (
	"regexp"
	"sync"

	"github.com/GriffinCanCode/notebridge/internal/bridge"
)

var postPattern = regexp.MustCompile(`post\("([^"]+)", response\)`)

// Responder decides what the fake context posts for an injected payload.
// Returning ok=false posts nothing, like a fragment that threw.
type Responder func(script string) (value any, ok bool)

// Context records injected payloads and answers them through a Responder
type Context struct {
	deliver func(bridge.Message) bool
	respond Responder

	mu       sync.Mutex
	scripts  []string
	injected chan string
}

// New creates a context that posts its answers to inv
func New(inv *bridge.Invoker, respond Responder) *Context {
	return &Context{
		deliver:  inv.Deliver,
		respond:  respond,
		injected: make(chan string, 64),
	}
}

// Inject records script and, if the responder says so, posts a response
func (c *Context) Inject(script string) error {
	c.mu.Lock()
	c.scripts = append(c.scripts, script)
	c.mu.Unlock()

	select {
	case c.injected <- script:
	default:
	}

	if c.respond == nil {
		return nil
	}
	if value, ok := c.respond(script); ok {
		c.deliver(bridge.Message{ID: JobID(script), Value: value})
	}
	return nil
}

// Injected yields payloads as they arrive
func (c *Context) Injected() <-chan string {
	return c.injected
}

// Scripts returns every payload injected so far
func (c *Context) Scripts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.scripts...)
}

// Count returns the number of payloads injected so far
func (c *Context) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.scripts)
}

// Last returns the most recent payload, or "" if none
func (c *Context) Last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.scripts) == 0 {
		return ""
	}
	return c.scripts[len(c.scripts)-1]
}

// JobID extracts the correlation id a payload posts under
func JobID(script string) string {
	m := postPattern.FindStringSubmatch(script)
	if m == nil {
		return ""
	}
	return m[1]
}

// Always answers every payload with value
func Always(value any) Responder {
	return func(string) (any, bool) { return value, true }
}

// Never answers nothing, leaving every call pending
func Never() Responder {
	return func(string) (any, bool) { return nil, false }
}
