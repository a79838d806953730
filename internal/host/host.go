// SPDX-License-Identifier: MPL-2.0

// Package host is the boundary to the chat platform. The platform supplies a
// command-registration sink and a per-request reply sink; the dispatcher
// binds the finalized registry to them and formats every user-visible
// message. Raw internal errors never cross this boundary.
package host

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chatops-anything/internal/command"
	"chatops-anything/internal/event"
	"chatops-anything/internal/executor"
	"chatops-anything/internal/registry"
)

type (
	// Handler runs one invocation of a registered command, replying on rep.
	Handler func(ctx context.Context, rawArgs string, rep Replier)

	// Registrar is the host's command-registration sink.
	Registrar interface {
		RegisterCommand(name, help string, handler Handler) error
	}

	// Replier delivers reply text to the originating request.
	Replier interface {
		Reply(text string)
	}

	// Dispatcher resolves invocations against the registry and relays the
	// acknowledgment/result pair as two reply messages.
	Dispatcher struct {
		reg     *registry.Registry
		exec    *executor.Executor
		bus     *event.Bus
		timeout time.Duration
	}
)

// NewDispatcher wires the dispatcher. timeout is the global default applied
// when a descriptor carries none.
func NewDispatcher(reg *registry.Registry, exec *executor.Executor, bus *event.Bus, timeout time.Duration) *Dispatcher {
	return &Dispatcher{reg: reg, exec: exec, bus: bus, timeout: timeout}
}

// RegisterAll hands every finalized command to the host's registration sink
// as a static (name, help, handler) triple.
func (d *Dispatcher) RegisterAll(sink Registrar) error {
	for _, desc := range d.reg.Commands() {
		name := desc.Name
		if err := sink.RegisterCommand(name, desc.Help, func(ctx context.Context, rawArgs string, rep Replier) {
			d.Invoke(ctx, name, rawArgs, rep)
		}); err != nil {
			return fmt.Errorf("registering %s: %w", name, err)
		}
	}
	return nil
}

// Invoke runs the named command against the raw argument text. The first
// reply acknowledges the spawn with the process ID; the second carries the
// combined output and the exit code, or a timeout notice. Failures become
// textual replies.
func (d *Dispatcher) Invoke(ctx context.Context, name, rawArgs string, rep Replier) {
	desc, err := d.reg.Lookup(name)
	if err != nil {
		rep.Reply(lookupFailureText(name, err))
		return
	}

	execID := executor.NewExecutionID()
	unsubscribe := d.bus.Subscribe(event.CommandStarted, func(ev event.Event) {
		if p, ok := ev.Data.(*event.StartedPayload); ok && p.ExecutionID == execID {
			rep.Reply(fmt.Sprintf("Started your command with PID %d", p.PID))
		}
	})
	defer unsubscribe()

	result, err := d.exec.RunWithID(ctx, execID, desc, rawArgs, d.timeout)
	if err != nil {
		rep.Reply(runFailureText(desc, err))
		return
	}
	rep.Reply(resultText(desc, result))
}

func lookupFailureText(name string, err error) string {
	switch {
	case errors.Is(err, registry.ErrUnknownCommand):
		return fmt.Sprintf("I don't know a command named %q.", name)
	case errors.Is(err, registry.ErrNotReady):
		return "Commands are not available right now."
	default:
		return fmt.Sprintf("Could not run %q.", name)
	}
}

func runFailureText(desc *command.Descriptor, err error) string {
	switch {
	case errors.Is(err, executor.ErrNotFound):
		return fmt.Sprintf("The executable for %q does not exist anymore.", desc.Name)
	case errors.Is(err, executor.ErrBadArguments):
		return fmt.Sprintf("Could not parse the arguments for %q: check your quoting.", desc.Name)
	default:
		return fmt.Sprintf("Running %q failed: the binary could not be started.", desc.Name)
	}
}

func resultText(desc *command.Descriptor, result *executor.Result) string {
	var b strings.Builder
	if out := strings.TrimRight(result.Output, "\n"); out != "" {
		b.WriteString(out)
		b.WriteString("\n")
	}
	if result.TimedOut {
		fmt.Fprintf(&b, "Command %q timed out after %s", desc.Name, result.Duration.Round(time.Millisecond))
	} else {
		fmt.Fprintf(&b, "Command RC: %d", int(result.ExitCode))
	}
	return b.String()
}
