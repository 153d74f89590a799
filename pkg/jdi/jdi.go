// Package jdi defines the contract jdb requires from the native
// debug-control interface of the target virtual machine: process
// enumeration, connector negotiation, event delivery and stack frame
// access. Implementations of this contract (a JDWP transport, a fake
// backend in tests) register their connectors with Bootstrap.
package jdi

import (
	"context"
	"errors"
)

// ProcessAttachConnector is the name of the connector used to attach to
// a local process by pid.
const ProcessAttachConnector = "com.sun.jdi.ProcessAttach"

var (
	// ErrDisconnected is returned by EventQueue.Remove when the remote
	// virtual machine has terminated or dropped the connection.
	ErrDisconnected = errors.New("vm disconnected")

	// ErrIncompatibleThreadState is returned by ThreadReference.Frame
	// when the thread is not suspended in a state that allows frame
	// inspection.
	ErrIncompatibleThreadState = errors.New("incompatible thread state")

	// ErrNoMoreFrames is returned by ThreadReference.Frame when the
	// requested index is past the end of the call stack.
	ErrNoMoreFrames = errors.New("no more frames")
)

// ProcessLister enumerates attachable target processes.
type ProcessLister interface {
	// AttachablePIDs returns a map of pid to a short descriptor of the
	// process (typically its main class).
	AttachablePIDs() (map[int]string, error)
}

// Argument is a single connector argument.
type Argument interface {
	SetValue(v string)
	Value() string
}

// Connector negotiates an attachment to a target virtual machine.
type Connector interface {
	Name() string
	DefaultArguments() map[string]Argument
	Attach(args map[string]Argument) (VirtualMachine, error)
}

// VirtualMachineManager is the entry point of the native interface: it
// knows the available attaching connectors.
type VirtualMachineManager interface {
	AttachingConnectors() []Connector
}

// VirtualMachine is a handle to an attached target process.
type VirtualMachine interface {
	EventQueue() EventQueue
	// CreateBreakpointRequest registers a breakpoint at the given class
	// and line with the target and returns its descriptor.
	CreateBreakpointRequest(className string, line int) (BreakpointRequest, error)
	// Dispose releases the connection to the target, resuming it.
	Dispose() error
	// Exit terminates the target process with the given exit code.
	Exit(code int) error
}

// EventQueue delivers batches of debug events from the target.
type EventQueue interface {
	// Remove blocks until a batch of events is available. It returns
	// ErrDisconnected if the remote side has gone away and ctx.Err() if
	// the context is cancelled while waiting.
	Remove(ctx context.Context) (EventSet, error)
}

// EventSet is one batch of events. The target stays suspended until the
// set is resumed.
type EventSet interface {
	Events() []Event
	Resume() error
}

// Event is a single debug event. Consumers type switch on the concrete
// event interfaces below.
type Event interface{}

// BreakpointEvent reports that target execution reached a registered
// breakpoint location.
type BreakpointEvent interface {
	Event
	Location() Location
	Thread() ThreadReference
}

// Location identifies a source position in the target.
type Location interface {
	SourceName() string
	LineNumber() int
	DeclaringTypeName() string
}

// ThreadReference is a thread of the target process.
type ThreadReference interface {
	Name() string
	// Frame returns the stack frame at the given index, 0 being the
	// innermost. It returns ErrNoMoreFrames past the end of the stack
	// and ErrIncompatibleThreadState if the thread cannot be inspected.
	Frame(i int) (StackFrame, error)
}

// StackFrame is one frame of a suspended thread's call stack.
type StackFrame interface {
	Location() Location
}

// BreakpointRequest is the descriptor of a breakpoint registered with
// the target.
type BreakpointRequest interface {
	Enable() error
	Disable() error
}
