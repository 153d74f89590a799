// Package session maintains the state of a single debugging session
// against an attached JVM: the attach/detach lifecycle, registered
// breakpoints, the currently active breakpoint and the history of
// captured call stacks. A background listener started on attach drains
// the native event stream and publishes breakpoint hits back into the
// session.
package session

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-jdb/jdb/pkg/jdi"
	"github.com/go-jdb/jdb/pkg/logflags"
	"github.com/go-jdb/jdb/pkg/source"
	"github.com/sirupsen/logrus"
)

// detachExitCode is the exit code forced on the target when
// close-on-detach is set.
const detachExitCode = 3

var (
	// ErrNotAttached is returned by operations that require an attached
	// target.
	ErrNotAttached = errors.New("not attached")

	// ErrNoActiveBreakpoint is returned by ResumeActive when no
	// breakpoint hit is pending.
	ErrNoActiveBreakpoint = errors.New("no active breakpoint")
)

// Config provides the collaborators of a Session.
type Config struct {
	// Manager is the connector registry of the native debug interface.
	Manager jdi.VirtualMachineManager
	// Lister enumerates attachable target processes.
	Lister jdi.ProcessLister
	// Prompt asks the user a question and returns the answer. Used for
	// the attach-over-attach confirmation.
	Prompt func(question string) (string, error)
	// Out receives synchronous user-facing output.
	Out io.Writer
	// PrintAsync queues a message on the interactive output channel.
	// Used by the listener and by detaches it forces.
	PrintAsync func(msg string)
	// ContextRadius is the number of source lines shown around a
	// breakpoint hit. Defaults to 3.
	ContextRadius int
	// CloseOnDetach makes detach terminate the target instead of
	// disposing of the connection.
	CloseOnDetach bool
}

// FrameSnapshot is an immutable capture of a thread's call stack at the
// moment a breakpoint fired.
type FrameSnapshot struct {
	ThreadName string
	Frames     []jdi.StackFrame
}

// Session holds the state of the JVM being debugged. All mutating
// operations are serialized by the session lock. The frame history and
// the active breakpoint slot have their own locks: they are the only
// state the listener publishes into, and detach joins the listener
// while holding the session lock, so the listener must never need it.
type Session struct {
	manager    jdi.VirtualMachineManager
	lister     jdi.ProcessLister
	prompt     func(string) (string, error)
	out        io.Writer
	printAsync func(string)
	radius     int
	src        *source.Map
	log        *logrus.Entry

	mu             sync.Mutex
	pid            int
	vm             jdi.VirtualMachine
	closeOnDetach  bool
	listenerCancel func()
	listenerDone   chan struct{}
	currentRef     string
	breakpoints    map[string]jdi.BreakpointRequest

	historyMu sync.Mutex
	history   []FrameSnapshot

	bpMu              sync.Mutex
	currentBreakpoint jdi.BreakpointEvent
	resumeSet         jdi.EventSet
}

// New constructs a detached Session.
func New(cfg *Config) *Session {
	s := &Session{
		manager:       cfg.Manager,
		lister:        cfg.Lister,
		prompt:        cfg.Prompt,
		out:           cfg.Out,
		printAsync:    cfg.PrintAsync,
		radius:        cfg.ContextRadius,
		closeOnDetach: cfg.CloseOnDetach,
		src:           source.New(),
		log:           logflags.SessionLogger(),
		pid:           -1,
		breakpoints:   make(map[string]jdi.BreakpointRequest),
	}
	if s.out == nil {
		s.out = os.Stdout
	}
	if s.printAsync == nil {
		s.printAsync = func(msg string) { fmt.Fprintln(s.out, msg) }
	}
	if s.prompt == nil {
		s.prompt = func(question string) (string, error) {
			fmt.Fprint(s.out, question)
			r := bufio.NewReader(os.Stdin)
			line, err := r.ReadString('\n')
			return strings.TrimSpace(line), err
		}
	}
	if s.radius <= 0 {
		s.radius = 3
	}
	return s
}

// Source returns the class to source path mapping owned by the session.
func (s *Session) Source() *source.Map {
	return s.src
}

// Pid returns the pid of the attached target, or -1.
func (s *Session) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pid
}

// Attached reports whether a target is attached.
func (s *Session) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vm != nil
}

// SetCloseOnDetach sets whether the target should be terminated when
// the session detaches.
func (s *Session) SetCloseOnDetach(close bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeOnDetach = close
}

// CurrentRef returns the class currently entered for inspection.
func (s *Session) CurrentRef() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentRef
}

// SetCurrentRef sets the class currently entered for inspection. The
// empty string leaves no class entered.
func (s *Session) SetCurrentRef(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentRef = ref
}

// ListJVMs enumerates the currently attachable target processes.
func (s *Session) ListJVMs() (map[int]string, error) {
	return s.lister.AttachablePIDs()
}

// Attach attaches the session to the JVM running at the given pid and
// starts the breakpoint listener. User-level failures (bad pid, no such
// process, declined confirmation) are reported on the session output
// and leave the session state unchanged.
func (s *Session) Attach(pid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pid < 0 {
		fmt.Fprintln(s.out, "failed")
		return nil
	}
	if s.pid == pid {
		fmt.Fprintln(s.out, "process already attached")
		return nil
	}
	if s.pid >= 0 {
		fmt.Fprintln(s.out)
		fmt.Fprintf(s.out, "Currently attached to %d\n", s.pid)
		yn, err := s.prompt("Do you really want to attach [Y/n]? ")
		if err != nil {
			return err
		}
		yn = strings.ToLower(strings.TrimSpace(yn))
		if yn != "y" && yn != "yes" {
			fmt.Fprintln(s.out, "abort")
			return nil
		}
	}

	pids, err := s.lister.AttachablePIDs()
	if err != nil {
		return err
	}
	desc, ok := pids[pid]
	if !ok {
		fmt.Fprintf(s.out, "no JVM with PID %d\n", pid)
		return nil
	}

	var pac jdi.Connector
	for _, c := range s.manager.AttachingConnectors() {
		if c.Name() == jdi.ProcessAttachConnector {
			pac = c
		}
	}
	if pac == nil {
		fmt.Fprintln(s.out, "ProcessAttach not found")
		return nil
	}
	args := pac.DefaultArguments()
	arg, ok := args["pid"]
	if !ok {
		fmt.Fprintln(s.out, "corrupt transport")
		return nil
	}
	arg.SetValue(strconv.Itoa(pid))

	fmt.Fprintf(s.out, "Attaching to %d: %s...\n", pid, desc)

	// Only one attached target at a time: replacing the current one
	// tears it down first, confirmation already given above.
	if s.vm != nil {
		if err := s.detachLocked(false); err != nil {
			return err
		}
	}

	vm, err := pac.Attach(args)
	if err != nil {
		return fmt.Errorf("attach to %d failed: %v", pid, err)
	}
	s.vm = vm
	s.pid = pid
	s.startListenerLocked()

	fmt.Fprintf(s.out, "Successfully attached to %d\n", pid)
	s.log.Infof("attached to pid %d", pid)
	return nil
}

// Detach detaches from the currently attached JVM. async reports the
// completion message on the asynchronous output channel instead of the
// session output; it is set when the detach was forced by the listener
// on remote disconnection.
func (s *Session) Detach(async bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detachLocked(async)
}

func (s *Session) detachLocked(async bool) error {
	if s.vm == nil {
		return ErrNotAttached
	}

	hadListener := s.listenerDone != nil
	if hadListener {
		s.listenerCancel()
		<-s.listenerDone
		for key, req := range s.breakpoints {
			// Best effort: on a remotely disconnected session the
			// descriptor is already dead.
			if err := req.Disable(); err != nil {
				s.log.Debugf("disabling breakpoint %s: %v", key, err)
			}
		}
	}

	s.currentRef = ""
	s.src.Clear()
	s.historyMu.Lock()
	s.history = nil
	s.historyMu.Unlock()
	s.bpMu.Lock()
	s.currentBreakpoint = nil
	s.resumeSet = nil
	s.bpMu.Unlock()
	s.breakpoints = make(map[string]jdi.BreakpointRequest)

	if s.closeOnDetach {
		if err := s.vm.Exit(detachExitCode); err != nil {
			s.log.Debugf("exit on detach: %v", err)
		}
	} else if hadListener {
		if err := s.vm.Dispose(); err != nil {
			s.log.Debugf("dispose on detach: %v", err)
		}
	}
	s.listenerCancel = nil
	s.listenerDone = nil
	s.vm = nil

	msg := fmt.Sprintf("Detached from JVM %d", s.pid)
	if async {
		s.printAsync(msg)
	} else {
		fmt.Fprintln(s.out, msg)
	}
	s.pid = -1
	s.log.Info("detached")
	return nil
}

// forceDetach is invoked (on its own goroutine) by the listener when
// the remote session disconnects.
func (s *Session) forceDetach() {
	if err := s.Detach(true); err != nil && err != ErrNotAttached {
		s.log.Errorf("forced detach: %v", err)
	}
}

func (s *Session) startListenerLocked() {
	done := make(chan struct{})
	l := &listener{
		queue:      s.vm.EventQueue(),
		session:    s,
		printAsync: s.printAsync,
		radius:     s.radius,
		log:        logflags.ListenerLogger(),
	}
	s.listenerCancel = l.start(done)
	s.listenerDone = done
}

// RegisterBreakpoint creates and enables a breakpoint at the given
// class and line and stores its descriptor.
func (s *Session) RegisterBreakpoint(className string, line int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vm == nil {
		return ErrNotAttached
	}
	key := breakpointKey(className, line)
	if _, exists := s.breakpoints[key]; exists {
		return fmt.Errorf("breakpoint already set at %s", key)
	}
	req, err := s.vm.CreateBreakpointRequest(className, line)
	if err != nil {
		return err
	}
	if err := req.Enable(); err != nil {
		return err
	}
	s.breakpoints[key] = req
	s.log.Infof("breakpoint set at %s", key)
	return nil
}

// ClearBreakpoint disables and removes the breakpoint at the given
// class and line.
func (s *Session) ClearBreakpoint(className string, line int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := breakpointKey(className, line)
	req, ok := s.breakpoints[key]
	if !ok {
		return fmt.Errorf("no breakpoint at %s", key)
	}
	if err := req.Disable(); err != nil {
		return err
	}
	delete(s.breakpoints, key)
	s.log.Infof("breakpoint cleared at %s", key)
	return nil
}

// Breakpoints returns the keys of all registered breakpoints, sorted.
func (s *Session) Breakpoints() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.breakpoints))
	for k := range s.breakpoints {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func breakpointKey(className string, line int) string {
	return fmt.Sprintf("%s:%d", className, line)
}

// History returns the captured frame snapshots, one per breakpoint hit,
// in delivery order.
func (s *Session) History() []FrameSnapshot {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	r := make([]FrameSnapshot, len(s.history))
	copy(r, s.history)
	return r
}

func (s *Session) appendSnapshot(snap FrameSnapshot) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	s.history = append(s.history, snap)
}

// ActiveBreakpoint returns the most recent unresolved breakpoint hit
// and the event set needed to resume past it.
func (s *Session) ActiveBreakpoint() (jdi.BreakpointEvent, jdi.EventSet) {
	s.bpMu.Lock()
	defer s.bpMu.Unlock()
	return s.currentBreakpoint, s.resumeSet
}

func (s *Session) publishBreakpoint(bp jdi.BreakpointEvent, es jdi.EventSet) {
	s.bpMu.Lock()
	defer s.bpMu.Unlock()
	s.currentBreakpoint = bp
	s.resumeSet = es
}

// ResumeActive resumes target execution past the active breakpoint and
// clears the slot.
func (s *Session) ResumeActive() error {
	s.bpMu.Lock()
	defer s.bpMu.Unlock()
	if s.resumeSet == nil {
		return ErrNoActiveBreakpoint
	}
	err := s.resumeSet.Resume()
	s.currentBreakpoint = nil
	s.resumeSet = nil
	return err
}
