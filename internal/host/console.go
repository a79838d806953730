// SPDX-License-Identifier: MPL-2.0

package host

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Console is a line-oriented reference host: each input line is a command
// name followed by raw argument text, and every reply goes to a single
// writer. It implements Registrar.
type Console struct {
	mu       sync.Mutex
	out      io.Writer
	handlers map[string]Handler
}

// NewConsole creates a console host replying on out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out, handlers: map[string]Handler{}}
}

// RegisterCommand implements Registrar. Duplicate names are rejected.
func (c *Console) RegisterCommand(name, help string, handler Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, taken := c.handlers[name]; taken {
		return fmt.Errorf("command %q already registered", name)
	}
	c.handlers[name] = handler
	return nil
}

// Serve reads command lines from in until EOF or context cancellation.
// Each invocation runs in its own goroutine, so long-running commands do not
// block the read loop; Serve waits for in-flight invocations before
// returning.
func (c *Console) Serve(ctx context.Context, in io.Reader) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		name, rawArgs, _ := strings.Cut(line, " ")

		c.mu.Lock()
		handler, ok := c.handlers[name]
		c.mu.Unlock()
		if !ok {
			c.reply(fmt.Sprintf("I don't know a command named %q.", name))
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			handler(ctx, rawArgs, replierFunc(c.reply))
		}()
	}
	return scanner.Err()
}

func (c *Console) reply(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, text)
}

// replierFunc adapts a function to the Replier interface.
type replierFunc func(text string)

// Reply implements Replier.
func (f replierFunc) Reply(text string) { f(text) }
